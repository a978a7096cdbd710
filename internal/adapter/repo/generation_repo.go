package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"renova/internal/domain"
	"renova/internal/infra"
)

// GenerationRepositoryPG implements domain.GenerationStore on PostgreSQL.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a generation repository backed by PostgreSQL.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

// Create inserts a new generation record with status processing.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	query := `
INSERT INTO generations (id, user_id, model_type, status, input_key, input_image_url, prompt)
VALUES ($1, $2, $3, 'processing', $4, $5, $6)
RETURNING created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query,
		gen.ID,
		gen.UserID,
		gen.ModelType,
		gen.InputKey,
		gen.InputURL,
		gen.Prompt,
	)
	if err := row.Scan(&gen.CreatedAt, &gen.UpdatedAt); err != nil {
		return &domain.PersistenceError{Op: "create generation", Err: err}
	}
	gen.Status = domain.StatusProcessing
	return nil
}

// Finalize writes the terminal state for a generation. The status guard in
// the WHERE clause makes the terminal write exactly-once: a second call
// matches zero rows and reports ErrAlreadyFinalized.
func (r *GenerationRepositoryPG) Finalize(ctx context.Context, id string, fin domain.Finalization) error {
	if fin.Status != domain.StatusCompleted && fin.Status != domain.StatusFailed {
		return &domain.PersistenceError{Op: "finalize generation", Err: errors.New("finalize requires a terminal status")}
	}
	query := `
UPDATE generations
SET status = $2,
    output_key = $3,
    output_image_url = $4,
    error_message = $5,
    processing_time_ms = $6,
    updated_at = NOW()
WHERE id = $1 AND status = 'processing';
`
	tag, err := r.pool.Exec(ctx, query,
		id,
		fin.Status,
		nullable(fin.OutputKey),
		nullable(fin.OutputURL),
		nullable(fin.ErrorMessage),
		fin.ProcessingTimeMs,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "finalize generation", Err: err}
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyFinalized
	}
	return nil
}

// GetByID fetches a generation by its identifier.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	query := `
SELECT id, user_id, model_type, status, input_key, input_image_url,
       COALESCE(output_key, ''), COALESCE(output_image_url, ''),
       prompt, COALESCE(error_message, ''), COALESCE(processing_time_ms, 0),
       created_at, updated_at
FROM generations
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var gen domain.Generation
	if err := scanGeneration(row, &gen); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &gen, nil
}

// ListByUser returns a user's most recent generations.
func (r *GenerationRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Generation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
SELECT id, user_id, model_type, status, input_key, input_image_url,
       COALESCE(output_key, ''), COALESCE(output_image_url, ''),
       prompt, COALESCE(error_message, ''), COALESCE(processing_time_ms, 0),
       created_at, updated_at
FROM generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		var gen domain.Generation
		if err := scanGeneration(rows, &gen); err != nil {
			return nil, err
		}
		out = append(out, gen)
	}
	return out, rows.Err()
}

func scanGeneration(row pgx.Row, gen *domain.Generation) error {
	return row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.ModelType,
		&gen.Status,
		&gen.InputKey,
		&gen.InputURL,
		&gen.OutputKey,
		&gen.OutputURL,
		&gen.Prompt,
		&gen.ErrorMessage,
		&gen.ProcessingTimeMs,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
