package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/mpbooks/mpbooks-backend/api/middleware"
	pkgerrors "github.com/mpbooks/mpbooks-backend/pkg/errors"
)

// authedUserID resolves the authenticated user seeded by the auth middleware.
func authedUserID(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}
