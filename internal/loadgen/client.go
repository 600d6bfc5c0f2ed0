package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/types"
)

// ErrStatus is returned when the service answers with an unexpected status.
var ErrStatus = errors.New("unexpected status")

// roleHeader mirrors the header the API reads the staff role from.
const roleHeader = "X-Staff-Role"

// Client calls the report endpoints of a running service.
type Client struct {
	baseURL string
	role    string
	http    *http.Client
}

// NewClient creates a client for baseURL that writes as role.
func NewClient(baseURL, role string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		role:    role,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// Create posts a report and returns the stored view.
func (c *Client) Create(ctx context.Context, r model.Report) (types.ReportView, error) {
	var view types.ReportView
	err := c.do(ctx, http.MethodPost, "/reports", r, http.StatusCreated, &view)
	return view, err
}

// Get reads a stored report.
func (c *Client) Get(ctx context.Context, id string) (types.ReportView, error) {
	var view types.ReportView
	err := c.do(ctx, http.MethodGet, "/reports/"+id, nil, http.StatusOK, &view)
	return view, err
}

// Delete removes a stored report.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reports/"+id, nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set(roleHeader, c.role)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %d %s", ErrStatus, method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
