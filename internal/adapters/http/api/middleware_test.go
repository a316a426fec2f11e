package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler", t, func() {
		status := http.StatusOK
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			w.WriteHeader(http.StatusTeapot)
		}, "test")

		Convey("The first status code reaches the client", func() {
			status = http.StatusTooManyRequests
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		})
	})

	Convey("Error kinds", t, func() {
		So(errorKind(http.StatusRequestEntityTooLarge), ShouldEqual, "too_large")
		So(errorKind(http.StatusConflict), ShouldEqual, "client_error")
		So(errorKind(http.StatusBadGateway), ShouldEqual, "server_error")
		So(errorSeverity(http.StatusInternalServerError), ShouldEqual, "high")
		So(errorSeverity(http.StatusServiceUnavailable), ShouldEqual, "medium")
		So(errorSeverity(http.StatusTooManyRequests), ShouldEqual, "medium")
		So(errorSeverity(http.StatusGatewayTimeout), ShouldEqual, "high")
		So(errorSeverity(http.StatusNotFound), ShouldEqual, "low")
	})
}
