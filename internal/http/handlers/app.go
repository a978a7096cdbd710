package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"renova/internal/domain"
	"renova/internal/infra"
	"renova/internal/pipeline"
)

// Generator is the slice of the pipeline the HTTP layer depends on.
type Generator interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	RunBatch(ctx context.Context, reqs []pipeline.Request) ([]pipeline.BatchItem, error)
}

type App struct {
	Cfg      *infra.Config
	Logger   zerolog.Logger
	Store    domain.GenerationStore
	Pipeline Generator
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, store domain.GenerationStore, gen Generator) *App {
	return &App{Cfg: cfg, Logger: logger, Store: store, Pipeline: gen}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}

// pipelineError maps a pipeline failure onto an HTTP response.
func (a *App) pipelineError(w http.ResponseWriter, err error) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
		return
	}
	switch pe.Code {
	case pipeline.CodeInvalidRequest:
		a.error(w, http.StatusBadRequest, pe.Code, pe.Message)
	case pipeline.CodeUnsupportedFormat:
		a.error(w, http.StatusUnprocessableEntity, pe.Code, pe.Message)
	case pipeline.CodeModelFailure:
		a.error(w, http.StatusBadGateway, pe.Code, pe.Message)
	default:
		a.error(w, http.StatusInternalServerError, pe.Code, pe.Message)
	}
}

// currentUserID reads the caller identity established upstream. Auth proper
// lives at the edge proxy; this service only keys records by the id.
func (a *App) currentUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
