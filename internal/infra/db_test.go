package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(pgx.ErrNoRows) {
		t.Fatal("bare pgx.ErrNoRows not recognized")
	}
	if !IsNoRows(fmt.Errorf("scan generation: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped pgx.ErrNoRows not recognized")
	}
	if IsNoRows(errors.New("connection refused")) {
		t.Fatal("unrelated error misclassified as no-rows")
	}
}
