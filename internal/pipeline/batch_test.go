package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"renova/internal/domain"
	"renova/internal/storage"
)

func TestRunBatchPartialFailure(t *testing.T) {
	fx := newFixture(t)
	fx.invoker.failOnPrompt = "poison"

	img := jpegBytes(t, 400, 300)
	reqs := make([]Request, 5)
	for i := range reqs {
		reqs[i] = Request{
			UserID:    "user-1",
			ModelType: domain.ModelImageEnhancement,
			Prompt:    fmt.Sprintf("enhance photo %d", i),
			Input:     storage.BytesSource(img),
			FileName:  fmt.Sprintf("photo-%d.jpg", i),
			MimeType:  "image/jpeg",
		}
	}
	reqs[2].Prompt = "poison pill"

	items, err := fx.orch.RunBatch(context.Background(), reqs)
	if err == nil {
		t.Fatal("batch with a failed item must report failure")
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}

	for i, item := range items {
		if item.Index != i {
			t.Fatalf("item %d carries index %d", i, item.Index)
		}
		if i == 2 {
			var pe *Error
			if !errors.As(item.Err, &pe) || pe.Code != CodeModelFailure {
				t.Fatalf("item 2: expected model_failure, got %v", item.Err)
			}
			continue
		}
		if item.Err != nil {
			t.Fatalf("item %d failed despite sibling isolation: %v", i, item.Err)
		}
		if item.Result.ResultURL == "" {
			t.Fatalf("item %d missing result url", i)
		}
	}

	// Every item gets its own record and every record reaches a terminal
	// state, failure included.
	gens, err := fx.store.ListByUser(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(gens) != 5 {
		t.Fatalf("expected 5 records, got %d", len(gens))
	}
	var completed, failed int
	for _, gen := range gens {
		switch gen.Status {
		case domain.StatusCompleted:
			completed++
		case domain.StatusFailed:
			failed++
		default:
			t.Fatalf("record %s left in %s", gen.ID, gen.Status)
		}
	}
	if completed != 4 || failed != 1 {
		t.Fatalf("expected 4 completed / 1 failed, got %d / %d", completed, failed)
	}
	fx.assertTempDirEmpty(t)
}

func TestRunBatchAllSucceed(t *testing.T) {
	fx := newFixture(t)
	img := jpegBytes(t, 200, 200)
	reqs := []Request{
		testRequest(t, storage.BytesSource(img)),
		testRequest(t, storage.BytesSource(img)),
		testRequest(t, storage.BytesSource(img)),
	}

	items, err := fx.orch.RunBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	for i, item := range items {
		if item.Err != nil {
			t.Fatalf("item %d: %v", i, item.Err)
		}
		if item.Result.GenerationID == "" {
			t.Fatalf("item %d missing generation id", i)
		}
	}
	fx.assertTempDirEmpty(t)
}

func TestRunBatchEmpty(t *testing.T) {
	fx := newFixture(t)
	items, err := fx.orch.RunBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch must succeed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}
