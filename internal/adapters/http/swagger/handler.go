// Package swagger serves the OpenAPI description of the HTTP API.
package swagger

import (
	"context"
	_ "embed"
	"net/http"
)

// OpenAPI is the embedded OpenAPI 3 document for the HTTP API.
//
//go:embed openapi.yaml
var OpenAPI []byte

// Register attaches the OpenAPI route to mux.
//
//	GET /openapi.yaml -> embedded OpenAPI document
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}
