package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"renova/internal/domain"
)

// Options configures the HTTP model client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls the generation API over HTTP. One POST per invocation; the
// response carries the output URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// endpointPaths maps each model type onto its API route.
var endpointPaths = map[domain.ModelType]string{
	domain.ModelInteriorDesign:     "/generate/interior",
	domain.ModelExteriorDesign:     "/generate/exterior",
	domain.ModelImageEnhancement:   "/generate/enhance",
	domain.ModelElementReplacement: "/generate/replace",
	domain.ModelVideoMotion:        "/generate/motion",
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

type generateRequest struct {
	Prompt   string `json:"prompt,omitempty"`
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
}

type generateResponse struct {
	OutputURL string `json:"output_url"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Invoke posts the image and prompt to the model's endpoint and returns the
// output URL. All failures, including context timeouts, come back as *Error.
func (c *Client) Invoke(ctx context.Context, req Request) (Result, error) {
	if c == nil {
		return Result{}, &Error{ModelType: req.ModelType, Err: errors.New("client not configured")}
	}
	if c.token == "" {
		return Result{}, &Error{ModelType: req.ModelType, Err: errors.New("api key is missing")}
	}
	path, ok := endpointPaths[req.ModelType]
	if !ok {
		return Result{}, &Error{ModelType: req.ModelType, Err: domain.ErrInvalidModelType}
	}
	if len(req.ImageData) == 0 {
		return Result{}, &Error{ModelType: req.ModelType, Err: domain.ErrEmptyInput}
	}

	payload := generateRequest{
		Prompt:   req.Prompt,
		Image:    base64.StdEncoding.EncodeToString(req.ImageData),
		MimeType: req.MimeType,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, &Error{ModelType: req.ModelType, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, &Error{ModelType: req.ModelType, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, &Error{ModelType: req.ModelType, Err: err}
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return Result{}, &Error{ModelType: req.ModelType, Err: fmt.Errorf("http %d", resp.StatusCode)}
		}
		return Result{}, &Error{ModelType: req.ModelType, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return Result{}, &Error{ModelType: req.ModelType, Err: fmt.Errorf("%s (%s)", out.Message, out.Code)}
		}
		return Result{}, &Error{ModelType: req.ModelType, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	if strings.TrimSpace(out.OutputURL) == "" {
		return Result{}, &Error{ModelType: req.ModelType, Err: errors.New("missing output url")}
	}
	return Result{OutputURL: out.OutputURL}, nil
}
