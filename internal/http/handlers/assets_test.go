package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"renova/internal/infra"
)

func newAssetsRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	app := NewApp(&infra.Config{LocalStorageDir: dir}, zerolog.Nop(), &stubStore{}, &fakeGenerator{})

	r := chi.NewRouter()
	r.Handle("/v1/assets/*", http.StripPrefix("/v1/assets/", app.Assets()))
	return r, dir
}

func TestAssetsServesObject(t *testing.T) {
	router, dir := newAssetsRouter(t)
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "uploads", "photo.jpg"), []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/assets/uploads/photo.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestAssetsRejectsDirectoryListing(t *testing.T) {
	router, dir := newAssetsRouter(t)
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "uploads", "secret.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, path := range []string{"/v1/assets/", "/v1/assets/uploads/"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestAssetsRejectsWrites(t *testing.T) {
	router, _ := newAssetsRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/assets/uploads/photo.jpg", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
