package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher downloads a collaborator's result from the URL it returned.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// HTTPFetcher is the production Fetcher with a download size cap.
type HTTPFetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 64 * 1024 * 1024
	}
	return &HTTPFetcher{httpClient: client, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &Error{Err: err}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", &Error{Err: fmt.Errorf("fetch result: http %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", &Error{Err: fmt.Errorf("fetch result: %w", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", &Error{Err: fmt.Errorf("fetch result: exceeds %d byte limit", f.maxBytes)}
	}
	return data, resp.Header.Get("Content-Type"), nil
}
