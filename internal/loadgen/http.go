package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/pkg/logger"
)

// HTTPClient wraps http.Client with the service routes.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health checks GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	var discard json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, &discard); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// Cluster posts records to /cluster and returns the labeled response.
func (c *HTTPClient) Cluster(ctx context.Context, records []record.Record) (*model.ClusterResponse, error) {
	var resp model.ClusterResponse
	if err := c.do(ctx, http.MethodPost, "/cluster", records, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit posts records to /jobs under requestID.
func (c *HTTPClient) Submit(ctx context.Context, requestID string, records []record.Record) (model.Submission, error) {
	var sub model.Submission
	body := model.ClusterRequest{RequestID: requestID, Records: records}
	err := c.do(ctx, http.MethodPost, "/jobs", body, 0, &sub)
	return sub, err
}

// Job fetches GET /jobs/{id}.
func (c *HTTPClient) Job(ctx context.Context, id string) (model.JobRecord, error) {
	var job model.JobRecord
	err := c.do(ctx, http.MethodGet, "/jobs/"+id, nil, http.StatusOK, &job)
	return job, err
}

// Wait polls a job until it reaches a terminal state.
func (c *HTTPClient) Wait(ctx context.Context, id string, every time.Duration) (model.JobRecord, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return job, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// do sends a JSON request. want == 0 accepts any 2xx status.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	ok := resp.StatusCode == want || (want == 0 && resp.StatusCode/100 == 2)
	if !ok {
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
