package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrDecode marks a response that arrived but could not be decoded.
var ErrDecode = errors.New("decode response")

// StatusError is returned for non-2xx responses. Body holds at most the
// first 4KiB of the response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// API is a small JSON-over-HTTP helper bound to one base URL.
type API struct {
	client  *http.Client
	baseURL string
}

func NewAPI(baseURL string, client *http.Client) *API {
	if client == nil {
		client = http.DefaultClient
	}
	return &API{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
