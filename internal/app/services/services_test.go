package services

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func assertKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := apperrors.KindOf(err); got != want {
		t.Fatalf("kind = %v, want %v (err: %v)", got, want, err)
	}
}

func assertIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
