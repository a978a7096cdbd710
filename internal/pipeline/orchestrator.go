// Package pipeline composes storage, normalization, model invocation, and
// record tracking into the end-to-end generation flow.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"renova/internal/domain"
	"renova/internal/imaging"
	"renova/internal/providers/model"
	"renova/internal/storage"
	"renova/internal/tempfiles"
)

// Request is the normalized descriptor handed in by the transport layer.
type Request struct {
	UserID    string
	ModelType domain.ModelType
	Prompt    string
	Input     storage.Source
	FileName  string
	MimeType  string

	// InvokeTimeout bounds only the model invocation step; zero means the
	// client's own timeout applies.
	InvokeTimeout time.Duration
}

// Result is the success payload for one generation.
type Result struct {
	GenerationID     string
	OriginalURL      string
	ResultURL        string
	ProcessingTimeMs int64
}

// Orchestrator runs the generation state machine:
//
//	Staging -> Normalizing -> Invoking -> Persisting -> Finalizing -> Done
//
// The flow is linear with no backward edges. Any step may fail onto the
// terminal path, which still finalizes the record and releases temp files
// before the error surfaces. All collaborators are injected; the Orchestrator
// holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	router    *storage.Router
	store     domain.GenerationStore
	norm      *imaging.Normalizer
	invoker   model.Invoker
	fetcher   model.Fetcher
	logger    zerolog.Logger
	tempDir   string
	maxWidth  int
	maxHeight int
}

// Options bundles the Orchestrator's collaborators.
type Options struct {
	Router     *storage.Router
	Store      domain.GenerationStore
	Normalizer *imaging.Normalizer
	Invoker    model.Invoker
	Fetcher    model.Fetcher
	Logger     zerolog.Logger
	TempDir    string
	MaxWidth   int
	MaxHeight  int
}

func NewOrchestrator(opts Options) *Orchestrator {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	maxW, maxH := opts.MaxWidth, opts.MaxHeight
	if maxW <= 0 {
		maxW = 1024
	}
	if maxH <= 0 {
		maxH = 1024
	}
	return &Orchestrator{
		router:    opts.Router,
		store:     opts.Store,
		norm:      opts.Normalizer,
		invoker:   opts.Invoker,
		fetcher:   opts.Fetcher,
		logger:    opts.Logger,
		tempDir:   tempDir,
		maxWidth:  maxW,
		maxHeight: maxH,
	}
}

// Run executes one generation request end to end.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	logger := o.logger.With().
		Str("user_id", req.UserID).
		Str("model_type", string(req.ModelType)).
		Logger()

	if !req.ModelType.Valid() {
		return Result{}, newError(CodeInvalidRequest, "unknown model type", domain.ErrInvalidModelType)
	}
	if req.Input.Len() == 0 {
		return Result{}, newError(CodeInvalidRequest, "empty upload", domain.ErrEmptyInput)
	}

	ledger := tempfiles.New()
	defer ledger.ReleaseAll(logger)

	// Staging: persist the original before any record exists. A failure here
	// aborts with nothing to finalize.
	inputKey := storage.GenerateKey(req.FileName, storage.PrefixUploads)
	inObj, err := o.router.Put(ctx, inputKey, req.Input, req.MimeType, map[string]string{"user_id": req.UserID})
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: staging upload failed")
		return Result{}, newError(CodeStorageFailure, "failed to store the uploaded image", err)
	}

	gen := &domain.Generation{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ModelType: req.ModelType,
		InputKey:  inObj.Key,
		InputURL:  inObj.URL,
		Prompt:    req.Prompt,
	}
	if err := o.store.Create(ctx, gen); err != nil {
		// No untracked generation may consume model quota.
		logger.Error().Err(err).Msg("pipeline: record creation failed, aborting")
		return Result{}, newError(CodePersistenceFailure, "failed to track the generation request", err)
	}
	logger = logger.With().Str("generation_id", gen.ID).Logger()

	outObj, err := o.process(ctx, req, ledger, logger)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		o.finalize(ctx, gen.ID, domain.Finalization{
			Status:           domain.StatusFailed,
			ErrorMessage:     userMessage(err),
			ProcessingTimeMs: elapsed,
		}, logger)
		return Result{}, err
	}

	o.finalize(ctx, gen.ID, domain.Finalization{
		Status:           domain.StatusCompleted,
		OutputKey:        outObj.Key,
		OutputURL:        outObj.URL,
		ProcessingTimeMs: elapsed,
	}, logger)

	logger.Info().Int64("processing_time_ms", elapsed).Msg("pipeline: completed")
	return Result{
		GenerationID:     gen.ID,
		OriginalURL:      inObj.URL,
		ResultURL:        outObj.URL,
		ProcessingTimeMs: elapsed,
	}, nil
}

// process covers the Normalizing, Invoking, and Persisting steps. Every
// failure comes back as a *Error; the caller finalizes and re-raises.
func (o *Orchestrator) process(ctx context.Context, req Request, ledger *tempfiles.Ledger, logger zerolog.Logger) (storage.Object, error) {
	// Normalizing. A bytes input only touches the disk because the
	// normalizer works on paths.
	srcPath := req.Input.Path()
	if srcPath == "" {
		data, err := req.Input.Bytes()
		if err != nil {
			return storage.Object{}, newError(CodeInvalidRequest, "empty upload", err)
		}
		srcPath, err = ledger.WriteTemp(o.tempDir, "upload-*"+strings.ToLower(filepath.Ext(req.FileName)), data)
		if err != nil {
			return storage.Object{}, newError(CodeInternal, "failed to stage the upload", err)
		}
	}

	normPath, err := o.norm.Normalize(ctx, srcPath, o.maxWidth, o.maxHeight)
	if err != nil {
		var ufe *imaging.UnsupportedFormatError
		if errors.As(err, &ufe) {
			return storage.Object{}, newError(CodeUnsupportedFormat, ufe.Error(), err)
		}
		var de *imaging.DimensionsError
		if errors.As(err, &de) {
			return storage.Object{}, newError(CodeInvalidRequest, de.Error(), err)
		}
		logger.Error().Err(err).Msg("pipeline: normalization failed")
		return storage.Object{}, newError(CodeInternal, "failed to process the uploaded image", err)
	}
	// A rewritten path means the normalizer re-encoded to JPEG; the original
	// MIME type no longer describes the bytes.
	mimeType := req.MimeType
	if normPath != srcPath {
		ledger.Register(normPath)
		mimeType = "image/jpeg"
	}

	imageData, err := os.ReadFile(normPath)
	if err != nil {
		return storage.Object{}, newError(CodeInternal, "failed to read the processed image", err)
	}

	// Invoking: the long step, and the only one with its own timeout.
	ictx := ctx
	if req.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, req.InvokeTimeout)
		defer cancel()
	}
	out, err := o.invoker.Invoke(ictx, model.Request{
		ModelType: req.ModelType,
		Prompt:    req.Prompt,
		ImageData: imageData,
		MimeType:  mimeType,
	})
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: model invocation failed")
		return storage.Object{}, newError(CodeModelFailure, "the generation model failed to produce a result", err)
	}

	// Persisting: pull the result down and re-home it on our backend, then
	// verify the object actually reads back.
	resultData, contentType, err := o.fetcher.Fetch(ctx, out.OutputURL)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: result download failed")
		return storage.Object{}, newError(CodeModelFailure, "failed to download the generated result", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(resultData)
	}

	outputKey := storage.GenerateKey(resultName(req.FileName, contentType), storage.PrefixProcessed)
	obj, err := o.router.Put(ctx, outputKey, storage.BytesSource(resultData), contentType, map[string]string{
		"user_id":    req.UserID,
		"model_type": string(req.ModelType),
	})
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: result upload failed")
		return storage.Object{}, newError(CodeStorageFailure, "failed to store the generated result", err)
	}
	ok, err := o.router.Exists(ctx, obj.Key)
	if err != nil || !ok {
		cerr := error(&storage.ConsistencyError{Backend: obj.Backend, Key: obj.Key})
		if err != nil {
			cerr = err
		}
		logger.Error().Err(cerr).Msg("pipeline: result not retrievable after upload")
		return storage.Object{}, newError(CodeStorageFailure, "stored result could not be verified", cerr)
	}

	return obj, nil
}

// finalize writes the terminal record state. A failed finalize is logged and
// swallowed: the external work already happened and the caller still gets
// the primary result or error.
func (o *Orchestrator) finalize(ctx context.Context, id string, fin domain.Finalization, logger zerolog.Logger) {
	if err := o.store.Finalize(ctx, id, fin); err != nil {
		logger.Error().Err(err).
			Str("status", string(fin.Status)).
			Msg("pipeline: finalize failed")
	}
}

// userMessage extracts a safe user-facing message from a pipeline error.
func userMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return "generation failed"
}

// resultName derives a stored-result filename from the original upload and
// the result's content type.
func resultName(originalName, contentType string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if base == "" || base == "." {
		base = "result"
	}
	return base + extensionForMIME(contentType)
}

func extensionForMIME(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}
