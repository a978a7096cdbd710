package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"renova/internal/domain"
)

func TestClientInvoke(t *testing.T) {
	imageBytes := []byte{0xff, 0xd8, 0xff, 0xe0}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if r.URL.Path != "/generate/interior" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload generateRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Prompt != "scandinavian living room" {
			t.Fatalf("prompt mismatch: %s", payload.Prompt)
		}
		if payload.Image != base64.StdEncoding.EncodeToString(imageBytes) {
			t.Fatal("image payload mismatch")
		}
		if payload.MimeType != "image/jpeg" {
			t.Fatalf("mime mismatch: %s", payload.MimeType)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{OutputURL: "https://results.example.com/out.png"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	got, err := client.Invoke(context.Background(), Request{
		ModelType: domain.ModelInteriorDesign,
		Prompt:    "scandinavian living room",
		ImageData: imageBytes,
		MimeType:  "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.OutputURL != "https://results.example.com/out.png" {
		t.Fatalf("unexpected url: %s", got.OutputURL)
	}
}

func TestClientInvokeEndpointPerModel(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(generateResponse{OutputURL: "https://x/out.png"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: ts.URL})
	cases := []struct {
		modelType domain.ModelType
		wantPath  string
	}{
		{domain.ModelExteriorDesign, "/generate/exterior"},
		{domain.ModelImageEnhancement, "/generate/enhance"},
		{domain.ModelElementReplacement, "/generate/replace"},
		{domain.ModelVideoMotion, "/generate/motion"},
	}
	for _, tc := range cases {
		if _, err := client.Invoke(context.Background(), Request{
			ModelType: tc.modelType, ImageData: []byte{1}, MimeType: "image/png",
		}); err != nil {
			t.Fatalf("%s: %v", tc.modelType, err)
		}
		if gotPath != tc.wantPath {
			t.Fatalf("%s: path %s, want %s", tc.modelType, gotPath, tc.wantPath)
		}
	}
}

func TestClientInvokeMissingKey(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://localhost:0"})
	_, err := client.Invoke(context.Background(), Request{ModelType: domain.ModelInteriorDesign, ImageData: []byte{1}})
	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestClientInvokeUnknownModel(t *testing.T) {
	client := NewClient(Options{APIKey: "k", BaseURL: "http://localhost:0"})
	_, err := client.Invoke(context.Background(), Request{ModelType: "styling", ImageData: []byte{1}})
	if !errors.Is(err, domain.ErrInvalidModelType) {
		t.Fatalf("expected ErrInvalidModelType, got %v", err)
	}
}

func TestClientInvokeAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(generateResponse{Code: "model_busy", Message: "try again later"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: ts.URL})
	_, err := client.Invoke(context.Background(), Request{
		ModelType: domain.ModelImageEnhancement, ImageData: []byte{1}, MimeType: "image/png",
	})
	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if me.ModelType != domain.ModelImageEnhancement {
		t.Fatalf("error lost the model type: %s", me.ModelType)
	}
}

func TestClientInvokeMissingOutputURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: ts.URL})
	_, err := client.Invoke(context.Background(), Request{
		ModelType: domain.ModelInteriorDesign, ImageData: []byte{1}, MimeType: "image/png",
	})
	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("expected *Error for empty output url, got %v", err)
	}
}

func TestClientInvokeTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(generateResponse{OutputURL: "https://x/out.png"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: ts.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Invoke(ctx, Request{
		ModelType: domain.ModelInteriorDesign, ImageData: []byte{1}, MimeType: "image/png",
	})
	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("timeout must surface as *Error, got %v", err)
	}
}
