package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ecoswap/ecoswap-api/api/middleware"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return uid, nil
}
