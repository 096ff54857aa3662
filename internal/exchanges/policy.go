package exchanges

import (
	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/google/uuid"
)

// TransitionPolicy decides whether actor may move exchange to target.
type TransitionPolicy interface {
	CanTransition(actorID uuid.UUID, exchange *models.Exchange, target enums.ExchangeStatus) error
	// MeetupFor returns the meetup fields to store with the move, or nil.
	MeetupFor(input UpdateStatusInput) (*Meetup, error)
}

var allowedTransitions = map[enums.ExchangeStatus][]enums.ExchangeStatus{
	enums.ExchangeStatusPending:  {enums.ExchangeStatusAccepted, enums.ExchangeStatusRejected},
	enums.ExchangeStatusAccepted: {enums.ExchangeStatusArranged},
	enums.ExchangeStatusArranged: {enums.ExchangeStatusCompleted},
}

// NewTransitionPolicy returns the strict lifecycle graph, or the permissive
// owner-only policy when legacy is set.
func NewTransitionPolicy(legacy bool) TransitionPolicy {
	if legacy {
		return legacyPolicy{}
	}
	return strictPolicy{}
}

type strictPolicy struct{}

func (strictPolicy) CanTransition(actorID uuid.UUID, exchange *models.Exchange, target enums.ExchangeStatus) error {
	if err := checkOwnerAndTarget(actorID, exchange, target); err != nil {
		return err
	}
	for _, next := range allowedTransitions[exchange.Status] {
		if next == target {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "exchange cannot move to the requested status").
		WithDetails(map[string]any{
			"from": exchange.Status,
			"to":   target,
		})
}

// MeetupFor requires both meetup fields when arranging and ignores them otherwise.
func (strictPolicy) MeetupFor(input UpdateStatusInput) (*Meetup, error) {
	if input.Status != enums.ExchangeStatusArranged {
		return nil, nil
	}
	location := trimmedOrNil(input.MeetupLocation)
	if location == nil || input.MeetupTime == nil || input.MeetupTime.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "meetup location and time are required to arrange an exchange")
	}
	return &Meetup{Location: *location, Time: input.MeetupTime.UTC()}, nil
}

// legacyPolicy accepts any known status from the owner.
type legacyPolicy struct{}

func (legacyPolicy) CanTransition(actorID uuid.UUID, exchange *models.Exchange, target enums.ExchangeStatus) error {
	return checkOwnerAndTarget(actorID, exchange, target)
}

// MeetupFor keeps whichever meetup fields were supplied, whatever the target.
func (legacyPolicy) MeetupFor(input UpdateStatusInput) (*Meetup, error) {
	var meetup Meetup
	if location := trimmedOrNil(input.MeetupLocation); location != nil {
		meetup.Location = *location
	}
	if input.MeetupTime != nil && !input.MeetupTime.IsZero() {
		meetup.Time = input.MeetupTime.UTC()
	}
	if meetup.Location == "" && meetup.Time.IsZero() {
		return nil, nil
	}
	return &meetup, nil
}

func checkOwnerAndTarget(actorID uuid.UUID, exchange *models.Exchange, target enums.ExchangeStatus) error {
	if exchange == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
	}
	if actorID != exchange.OwnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the product owner can update the exchange status")
	}
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown exchange status").
			WithDetails(map[string]any{"status": target})
	}
	return nil
}
