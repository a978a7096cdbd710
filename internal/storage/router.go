package storage

import (
	"context"

	"github.com/rs/zerolog"

	"renova/internal/infra"
)

// Router is the single storage facade handed to the rest of the application.
// It wraps the backend chosen at process start and is stateless afterwards,
// so one instance is shared safely across concurrent requests.
type Router struct {
	Backend
}

// NewRouter wraps an already-constructed backend. Tests use this to inject
// doubles.
func NewRouter(b Backend) *Router { return &Router{Backend: b} }

// SelectBackend decides the backend once for the process lifetime: remote
// when every credential is present, local otherwise. The decision is logged
// here and never re-derived elsewhere; mixing backends mid-run would split
// the key namespace and make the recorded backend kind meaningless.
func SelectBackend(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Router, error) {
	if cfg.RemoteStorageConfigured() {
		remote, err := NewRemoteStore(ctx, RemoteConfig{
			AccountID:     cfg.R2AccountID,
			AccessKeyID:   cfg.R2AccessKeyID,
			SecretKey:     cfg.R2SecretKey,
			Bucket:        cfg.R2Bucket,
			PublicBaseURL: cfg.R2PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", string(BackendRemote)).Str("bucket", cfg.R2Bucket).Msg("storage: remote backend selected")
		return NewRouter(remote), nil
	}

	logger.Warn().Str("backend", string(BackendLocal)).Str("dir", cfg.LocalStorageDir).
		Msg("storage: remote credentials incomplete, falling back to local backend")
	local, err := NewLocalStore(cfg.LocalStorageDir, cfg.LocalURLPrefix)
	if err != nil {
		return nil, err
	}
	return NewRouter(local), nil
}
