package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rodrigoferraz/autovendas-backend/api/middleware"
	"github.com/rodrigoferraz/autovendas-backend/internal/negotiations"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
)

// callerFromRequest resolves the authenticated actor placed in the request
// context by the auth middleware.
func callerFromRequest(r *http.Request) (negotiations.Caller, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return negotiations.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return negotiations.Caller{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id in token")
	}

	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		role = enums.UserRoleUser
	}

	return negotiations.Caller{ID: userID, Role: role}, nil
}

// userIDFromRequest is the shortcut for endpoints that only need the actor id.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	caller, err := callerFromRequest(r)
	if err != nil {
		return uuid.Nil, err
	}
	return caller.ID, nil
}
