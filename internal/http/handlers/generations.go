package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"renova/internal/domain"
	"renova/internal/pipeline"
	"renova/internal/storage"
)

const maxBatchSize = 10

type generateResponse struct {
	GenerationID     string `json:"generation_id"`
	OriginalURL      string `json:"original_url"`
	ResultURL        string `json:"result_url"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// Generate handles POST /v1/generations/{model_type}: one multipart image in,
// one generated result out. The call is synchronous; the model invocation
// dominates the latency.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	modelType := domain.ModelType(chi.URLParam(r, "model_type"))
	if !modelType.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown model type")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.Cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.Cfg.MaxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "request_too_large", "upload exceeds the size limit")
		return
	}
	data, header, ok := a.readUpload(w, r, "image")
	if !ok {
		return
	}

	res, err := a.Pipeline.Run(r.Context(), pipeline.Request{
		UserID:        userID,
		ModelType:     modelType,
		Prompt:        r.FormValue("prompt"),
		Input:         storage.BytesSource(data),
		FileName:      header.Filename,
		MimeType:      header.Header.Get("Content-Type"),
		InvokeTimeout: a.Cfg.ModelTimeout,
	})
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		GenerationID:     res.GenerationID,
		OriginalURL:      res.OriginalURL,
		ResultURL:        res.ResultURL,
		ProcessingTimeMs: res.ProcessingTimeMs,
	})
}

type batchItemResponse struct {
	Index  int               `json:"index"`
	Status string            `json:"status"`
	Result *generateResponse `json:"result,omitempty"`
	Error  map[string]string `json:"error,omitempty"`
}

// EnhanceBatch handles POST /v1/generations/enhance-batch: N images fanned
// out through the enhancement model. Items succeed or fail independently;
// a partial failure returns 207 with per-item detail.
func (a *App) EnhanceBatch(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.Cfg.MaxUploadBytes*maxBatchSize)
	if err := r.ParseMultipartForm(a.Cfg.MaxUploadBytes * maxBatchSize); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "request_too_large", "upload exceeds the size limit")
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "no images provided")
		return
	}
	if len(files) > maxBatchSize {
		a.error(w, http.StatusBadRequest, "bad_request", "too many images in one batch")
		return
	}
	prompt := r.FormValue("prompt")

	reqs := make([]pipeline.Request, 0, len(files))
	for _, fh := range files {
		data, err := readMultipartFile(fh)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload: "+fh.Filename)
			return
		}
		reqs = append(reqs, pipeline.Request{
			UserID:        userID,
			ModelType:     domain.ModelImageEnhancement,
			Prompt:        prompt,
			Input:         storage.BytesSource(data),
			FileName:      fh.Filename,
			MimeType:      fh.Header.Get("Content-Type"),
			InvokeTimeout: a.Cfg.ModelTimeout,
		})
	}

	items, batchErr := a.Pipeline.RunBatch(r.Context(), reqs)
	out := make([]batchItemResponse, len(items))
	for i, item := range items {
		if item.Err != nil {
			var pe *pipeline.Error
			detail := map[string]string{"code": "internal", "message": "generation failed"}
			if errors.As(item.Err, &pe) {
				detail = map[string]string{"code": pe.Code, "message": pe.Message}
			}
			out[i] = batchItemResponse{Index: item.Index, Status: "failed", Error: detail}
			continue
		}
		out[i] = batchItemResponse{
			Index:  item.Index,
			Status: "completed",
			Result: &generateResponse{
				GenerationID:     item.Result.GenerationID,
				OriginalURL:      item.Result.OriginalURL,
				ResultURL:        item.Result.ResultURL,
				ProcessingTimeMs: item.Result.ProcessingTimeMs,
			},
		}
	}

	code := http.StatusOK
	if batchErr != nil {
		code = http.StatusMultiStatus
	}
	a.json(w, code, map[string]any{"items": out})
}

func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	gen, err := a.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	if gen.UserID != userID {
		a.error(w, http.StatusForbidden, "forbidden", "not your generation")
		return
	}
	a.json(w, http.StatusOK, generationJSON(gen))
}

func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	gens, err := a.Store.ListByUser(r.Context(), userID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generations")
		return
	}
	items := make([]map[string]any, 0, len(gens))
	for i := range gens {
		items = append(items, generationJSON(&gens[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func generationJSON(gen *domain.Generation) map[string]any {
	out := map[string]any{
		"id":                 gen.ID,
		"model_type":         gen.ModelType,
		"status":             gen.Status,
		"original_url":       gen.InputURL,
		"created_at":         gen.CreatedAt,
		"updated_at":         gen.UpdatedAt,
		"processing_time_ms": gen.ProcessingTimeMs,
	}
	if gen.Prompt != "" {
		out["prompt"] = gen.Prompt
	}
	if gen.OutputURL != "" {
		out["result_url"] = gen.OutputURL
	}
	if gen.ErrorMessage != "" {
		out["error_message"] = gen.ErrorMessage
	}
	return out
}

// readUpload pulls one named file out of an already parsed multipart form.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, *multipart.FileHeader, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "missing "+field+" file")
		return nil, nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
		return nil, nil, false
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "empty upload")
		return nil, nil, false
	}
	return data, header, true
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
