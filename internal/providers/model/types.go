// Package model is the boundary to the external generative-AI collaborators.
// Each model call is a single HTTP request that yields a result URL; the
// pipeline treats every failure from this package uniformly.
package model

import (
	"context"
	"fmt"

	"renova/internal/domain"
)

// Request carries one invocation of an external model.
type Request struct {
	ModelType domain.ModelType
	Prompt    string
	ImageData []byte
	MimeType  string
}

// Result is the collaborator's answer: a URL where the generated artifact can
// be fetched.
type Result struct {
	OutputURL string
}

// Invoker invokes an external model. Implementations must treat timeouts the
// same as any other failure and wrap everything in *Error.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// Error is the uniform failure type for collaborator calls, regardless of
// which model was invoked.
type Error struct {
	ModelType domain.ModelType
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model %s: %v", e.ModelType, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
