package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), KindInternal},
		{"sentinel", ErrGroupNotFound, KindNotFound},
		{"wrapped by fmt", fmt.Errorf("loading: %w", ErrAlreadyMember), KindConflict},
		{"outer custom error wins", ErrInviteCodeExhausted.Wrap(ErrInviteCodeCollision), KindInternal},
		{"validation helper", NewValidationError("title", "title is required"), KindValidation},
		{"upstream helper", NewUpstreamError("weather", errors.New("timeout")), KindUpstream},
		{"forbidden", ErrRideCreatorOnly, KindForbidden},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("%s: KindOf = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWrapKeepsIdentity(t *testing.T) {
	cause := errors.New("duplicate key")
	err := ErrAlreadyMember.Wrap(cause)

	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatal("wrapped copy should match its sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should stay reachable")
	}
	if errors.Is(err, ErrMembershipNotFound) {
		t.Fatal("different codes must not match")
	}
	if err.Error() != "user is already a member of this group: duplicate key" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
