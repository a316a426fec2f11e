package api

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
)

const (
	mediaJSON = "application/json"
	mediaCSV  = "text/csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeClusterRequest reads a request body and applies query overrides.
// JSON bodies are either a request object or a bare array of records.
// CSV bodies carry a header row naming the fields.
func decodeClusterRequest(r *http.Request) (model.ClusterRequest, error) {
	const op = "api.decodeClusterRequest"

	var req model.ClusterRequest
	media := mediaJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return req, WrapKind(op, ErrUnsupported, err)
		}
		media = mt
	}

	var err error
	switch media {
	case mediaJSON, "application/geo+json", "text/plain":
		req, err = decodeJSON(r.Body)
	case mediaCSV, "application/csv":
		req.Records, err = decodeCSV(r.Body)
	default:
		return req, WrapKind(op, ErrUnsupported, fmt.Errorf("content type %q", media))
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, err
		}
		return req, WrapKind(op, ErrBadRequest, err)
	}

	if err := applyQuery(&req, r.URL.Query()); err != nil {
		return req, WrapKind(op, ErrBadRequest, err)
	}
	return req, nil
}

func decodeJSON(body io.Reader) (model.ClusterRequest, error) {
	var req model.ClusterRequest
	br := bufio.NewReader(body)
	first, err := peekNonSpace(br)
	if err != nil {
		return req, err
	}
	dec := json.NewDecoder(br)
	dec.UseNumber()
	if first == '[' {
		err = dec.Decode(&req.Records)
	} else {
		err = dec.Decode(&req)
	}
	return req, err
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errors.New("empty body")
			}
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.Discard(1)
		default:
			return b[0], nil
		}
	}
}

func decodeCSV(body io.Reader) ([]record.Record, error) {
	br := bufio.NewReader(body)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header row")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []record.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := record.New()
		for i, name := range header {
			if i < len(row) {
				rec.Set(name, row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func applyQuery(req *model.ClusterRequest, q url.Values) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"clusters", &req.Clusters},
		{"min_points", &req.MinPoints},
		{"max_points", &req.MaxPoints},
	}
	for _, p := range ints {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
		*p.dst = v
	}
	if raw := q.Get("strategy"); raw != "" {
		s, err := clustering.ParseStrategy(raw)
		if err != nil {
			return err
		}
		req.Strategy = s
	}
	if id := q.Get("request_id"); id != "" {
		req.RequestID = id
	}
	return nil
}

func wantsGeoJSON(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "geojson") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/geo+json")
}
