package controllers

import (
	"net/http"
	"strings"

	"github.com/ecoswap/ecoswap-api/api/middleware"
	"github.com/ecoswap/ecoswap-api/api/responses"
	"github.com/ecoswap/ecoswap-api/api/validators"
	"github.com/ecoswap/ecoswap-api/internal/users"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
)

type upsertProfileRequest struct {
	Email    string  `json:"email,omitempty" validate:"omitempty,email"`
	Name     string  `json:"name,omitempty" validate:"omitempty,max=100"`
	Avatar   *string `json:"avatar,omitempty" validate:"omitempty,url"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=200"`
}

func GetMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Me(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// UpsertMe creates or updates the caller's profile. Email and name fall back
// to the token claims when the body leaves them out.
func UpsertMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		email := strings.TrimSpace(payload.Email)
		if email == "" {
			email = middleware.EmailFromContext(r.Context())
		}
		name := strings.TrimSpace(payload.Name)
		if name == "" {
			name = middleware.NameFromContext(r.Context())
		}

		profile, err := svc.UpsertMe(r.Context(), uid, users.UpsertProfileInput{
			Email:    email,
			Name:     name,
			Avatar:   payload.Avatar,
			Location: payload.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// GetUser returns the public profile of any user.
func GetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
