package domain

import "context"

// GenerationStore is the durable record store for generation requests.
//
// Create must commit the record before any external model work happens;
// callers abort the pipeline when it fails so that no untracked generation
// consumes model quota. Finalize writes the terminal state exactly once;
// a repeated call reports ErrAlreadyFinalized.
type GenerationStore interface {
	Create(ctx context.Context, gen *Generation) error
	Finalize(ctx context.Context, id string, fin Finalization) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Generation, error)
}

// Finalization carries the terminal write for one generation.
type Finalization struct {
	Status           GenerationStatus
	OutputKey        string
	OutputURL        string
	ErrorMessage     string
	ProcessingTimeMs int64
}
