package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func usernameOf(ctx context.Context, profiles ProfileStore, userID uuid.UUID) string {
	if profiles == nil {
		return "Someone"
	}
	p, err := profiles.GetByID(ctx, userID)
	if err != nil || p.Username == "" {
		return "Someone"
	}
	return p.Username
}

func linkTo(format string, id uuid.UUID) *string {
	link := fmt.Sprintf(format, id)
	return &link
}
