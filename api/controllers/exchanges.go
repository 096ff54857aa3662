package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecoswap/ecoswap-api/api/responses"
	"github.com/ecoswap/ecoswap-api/api/validators"
	"github.com/ecoswap/ecoswap-api/internal/exchanges"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
)

type createExchangeRequest struct {
	ProductID           string  `json:"product_id" validate:"required,uuid"`
	Type                string  `json:"type"`
	Message             string  `json:"message"`
	ExchangeItemDetails *string `json:"exchange_item_details,omitempty"`
}

type updateExchangeStatusRequest struct {
	Status         string     `json:"status" validate:"required"`
	MeetupLocation *string    `json:"meetup_location,omitempty"`
	MeetupTime     *time.Time `json:"meetup_time,omitempty"`
}

type submitFeedbackRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

// CreateExchange opens a swap or donation request for a product owned by someone else.
func CreateExchange(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createExchangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		exchange, err := svc.Create(r.Context(), exchanges.CreateInput{
			ProductID:           productID,
			RequesterID:         uid,
			Type:                enums.ExchangeType(strings.TrimSpace(payload.Type)),
			Message:             payload.Message,
			ExchangeItemDetails: payload.ExchangeItemDetails,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, exchange)
	}
}

// ListUserExchanges returns every exchange the caller takes part in, newest first.
func ListUserExchanges(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetExchange returns a single exchange to one of its two parties.
func GetExchange(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchangeID, err := validators.ParseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchange, err := svc.Get(r.Context(), exchangeID, uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exchange)
	}
}

// UpdateExchangeStatus moves an exchange along its lifecycle on behalf of the product owner.
func UpdateExchangeStatus(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchangeID, err := validators.ParseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateExchangeStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchange, err := svc.UpdateStatus(r.Context(), exchanges.UpdateStatusInput{
			ExchangeID:     exchangeID,
			ActorID:        uid,
			Status:         enums.ExchangeStatus(strings.TrimSpace(payload.Status)),
			MeetupLocation: payload.MeetupLocation,
			MeetupTime:     payload.MeetupTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exchange)
	}
}

// SubmitExchangeFeedback records the caller's rating on a completed exchange.
func SubmitExchangeFeedback(svc exchanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		uid, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchangeID, err := validators.ParseUUIDParam(r, "exchangeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitFeedbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchange, err := svc.SubmitFeedback(r.Context(), exchanges.FeedbackInput{
			ExchangeID: exchangeID,
			ActorID:    uid,
			Rating:     payload.Rating,
			Comment:    payload.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exchange)
	}
}
