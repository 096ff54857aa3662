package exchanges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ecoswap/ecoswap-api/internal/notifications"
	"github.com/ecoswap/ecoswap-api/internal/users"
	"github.com/ecoswap/ecoswap-api/pkg/db"
	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
	"github.com/ecoswap/ecoswap-api/pkg/metrics"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	activeExchangeIndex = "exchanges_active_product_requester_uidx"
	maxCommentLength    = 1000
	minRating           = 1
	maxRating           = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductStore reads listings and flips their status inside the caller's transaction.
type ProductStore interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.ProductStatus) error
}

// UserDirectory resolves display summaries for exchange parties.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]users.Summary, error)
}

// Notifier records inbox entries in the same transaction as the lifecycle change.
type Notifier interface {
	Record(ctx context.Context, tx *gorm.DB, input notifications.RecordInput) error
}

// Service defines the exchange lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ExchangeDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*ExchangeDTO, error)
	SubmitFeedback(ctx context.Context, input FeedbackInput) (*ExchangeDTO, error)
	Get(ctx context.Context, exchangeID, actorID uuid.UUID) (*ExchangeDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ExchangeDTO, error)
}

// ServiceParams groups the collaborators of the exchange service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Products ProductStore
	Users    UserDirectory
	Notifier Notifier
	Policy   TransitionPolicy
	Metrics  *metrics.ExchangeMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	products ProductStore
	users    UserDirectory
	notifier Notifier
	policy   TransitionPolicy
	metrics  *metrics.ExchangeMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the exchange lifecycle service. Metrics are optional; the
// policy defaults to the strict transition graph.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("exchanges repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	policy := params.Policy
	if policy == nil {
		policy = NewTransitionPolicy(false)
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		products: params.Products,
		users:    params.Users,
		notifier: params.Notifier,
		policy:   policy,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ExchangeDTO, error) {
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.products.FindByID(ctx, nil, input.ProductID)
	if err != nil {
		return nil, mapLoadError(err, "product")
	}
	if product.OwnerID == input.RequesterID {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "you cannot request your own product")
	}
	if product.Status == enums.ProductStatusExchanged {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "product has already been exchanged")
	}

	active, err := s.repo.HasActive(ctx, product.ID, input.RequesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active exchanges")
	}
	if active {
		return nil, duplicateRequestError()
	}

	input, err = normalizeCreate(input)
	if err != nil {
		return nil, err
	}

	summaries, err := s.users.Summaries(ctx, []uuid.UUID{product.OwnerID, input.RequesterID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user summaries")
	}
	// A requester without a profile is announced as "Someone".
	requester := summaries[input.RequesterID]

	now := s.now().UTC()
	exchange := &models.Exchange{
		ID:                  uuid.New(),
		ProductID:           product.ID,
		OwnerID:             product.OwnerID,
		RequesterID:         input.RequesterID,
		Type:                input.Type,
		ExchangeItemDetails: input.ExchangeItemDetails,
		Message:             input.Message,
		Status:              enums.ExchangeStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := repo.HasActive(ctx, exchange.ProductID, exchange.RequesterID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active exchanges")
		}
		if active {
			return duplicateRequestError()
		}
		if err := repo.Create(ctx, exchange); err != nil {
			if db.IsUniqueViolation(err, activeExchangeIndex) {
				return duplicateRequestError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange")
		}
		return s.notify(ctx, tx, exchange, product, requester, enums.ExchangeStatusPending)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithExchangeID(ctx, exchange.ID.String())
	s.logg.Info(logCtx, "exchange requested")
	s.metrics.IncCreated(exchange.Type.String())

	return populate(exchange, product, summaries), nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*ExchangeDTO, error) {
	if input.ExchangeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		updated *models.Exchange
		from    enums.ExchangeStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exchange, err := repo.FindByID(ctx, input.ExchangeID)
		if err != nil {
			return mapLoadError(err, "exchange")
		}
		from = exchange.Status

		if err := s.policy.CanTransition(input.ActorID, exchange, input.Status); err != nil {
			return err
		}

		meetup, err := s.policy.MeetupFor(input)
		if err != nil {
			return err
		}

		ok, err := repo.UpdateStatus(ctx, exchange.ID, exchange.Status, input.Status, meetup)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update exchange status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "exchange was modified concurrently")
		}

		if input.Status == enums.ExchangeStatusCompleted {
			if err := s.products.UpdateStatus(ctx, tx, exchange.ProductID, enums.ProductStatusExchanged); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product exchanged").
					WithDetails(map[string]any{"step": "product_status"})
			}
		}

		updated, err = repo.FindByID(ctx, exchange.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload exchange")
		}
		if updated.Status == enums.ExchangeStatusPending {
			// Only a fresh request notifies the owner.
			return nil
		}
		product, err := s.products.FindByID(ctx, tx, updated.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		return s.notify(ctx, tx, updated, product, users.Summary{}, input.Status)
	})

	logCtx := s.logg.WithExchangeID(ctx, input.ExchangeID.String())
	if err != nil {
		s.metrics.IncRefused(string(pkgerrors.CodeOf(err)))
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"target": input.Status,
			"code":   pkgerrors.CodeOf(err),
		}), "exchange status change refused")
		return nil, err
	}

	s.metrics.IncTransition(from.String(), updated.Status.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"from": from,
		"to":   updated.Status,
	}), "exchange status changed")

	return s.populateOne(ctx, updated)
}

func (s *service) SubmitFeedback(ctx context.Context, input FeedbackInput) (*ExchangeDTO, error) {
	if input.ExchangeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		updated *models.Exchange
		role    Role
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exchange, err := repo.FindByID(ctx, input.ExchangeID)
		if err != nil {
			return mapLoadError(err, "exchange")
		}

		var party bool
		role, party = roleOf(exchange, input.ActorID)
		if !party {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only exchange parties can leave feedback")
		}
		if exchange.Status != enums.ExchangeStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "feedback is only accepted on completed exchanges").
				WithDetails(map[string]any{"status": exchange.Status})
		}
		if input.Rating < minRating || input.Rating > maxRating {
			return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
				WithDetails(map[string]any{"rating": input.Rating})
		}
		comment := trimmedOrNil(input.Comment)
		if comment != nil && utf8.RuneCountInString(*comment) > maxCommentLength {
			return pkgerrors.New(pkgerrors.CodeValidation, "comment must be at most 1000 characters")
		}

		submittedAt := s.now().UTC()
		rating := input.Rating
		ok, err := repo.SubmitFeedback(ctx, exchange.ID, role, models.Feedback{
			Rating:      &rating,
			Comment:     comment,
			SubmittedAt: &submittedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save feedback")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "feedback already submitted")
		}

		updated, err = repo.FindByID(ctx, exchange.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload exchange")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncFeedback(string(role))
	s.logg.Info(s.logg.WithField(s.logg.WithExchangeID(ctx, updated.ID.String()), "role", role), "exchange feedback submitted")

	return s.populateOne(ctx, updated)
}

func (s *service) Get(ctx context.Context, exchangeID, actorID uuid.UUID) (*ExchangeDTO, error) {
	if exchangeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}
	exchange, err := s.repo.FindByID(ctx, exchangeID)
	if err != nil {
		return nil, mapLoadError(err, "exchange")
	}
	if _, party := roleOf(exchange, actorID); !party {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only exchange parties can view this exchange")
	}
	return s.populateOne(ctx, exchange)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]ExchangeDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchanges")
	}
	if len(rows) == 0 {
		return []ExchangeDTO{}, nil
	}

	productIDs := lo.Uniq(lo.Map(rows, func(e models.Exchange, _ int) uuid.UUID { return e.ProductID }))
	productRows, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	productsByID := lo.KeyBy(productRows, func(p models.Product) uuid.UUID { return p.ID })

	userIDs := lo.Uniq(lo.FlatMap(rows, func(e models.Exchange, _ int) []uuid.UUID {
		return []uuid.UUID{e.OwnerID, e.RequesterID}
	}))
	summaries, err := s.users.Summaries(ctx, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user summaries")
	}

	out := make([]ExchangeDTO, 0, len(rows))
	for i := range rows {
		var product *models.Product
		if p, ok := productsByID[rows[i].ProductID]; ok {
			product = &p
		}
		out = append(out, *populate(&rows[i], product, summaries))
	}
	return out, nil
}

func (s *service) populateOne(ctx context.Context, exchange *models.Exchange) (*ExchangeDTO, error) {
	product, err := s.products.FindByID(ctx, nil, exchange.ProductID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	summaries, err := s.users.Summaries(ctx, []uuid.UUID{exchange.OwnerID, exchange.RequesterID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user summaries")
	}
	return populate(exchange, product, summaries), nil
}

// notify records the inbox entry for the party that did not act: the owner
// for a new request, the requester for every later status.
func (s *service) notify(ctx context.Context, tx *gorm.DB, exchange *models.Exchange, product *models.Product, requester users.Summary, status enums.ExchangeStatus) error {
	kind, ok := enums.NotificationTypeForStatus(status)
	if !ok {
		return nil
	}

	exchangeID := exchange.ID
	input := notifications.RecordInput{
		RecipientID: exchange.RequesterID,
		Type:        kind,
		ExchangeID:  &exchangeID,
	}
	switch status {
	case enums.ExchangeStatusPending:
		input.RecipientID = exchange.OwnerID
		input.Title = "New exchange request"
		input.Message = fmt.Sprintf("%s would like your %q.", displayName(requester), product.Title)
	case enums.ExchangeStatusAccepted:
		input.Title = "Exchange accepted"
		input.Message = fmt.Sprintf("Your request for %q was accepted.", product.Title)
	case enums.ExchangeStatusRejected:
		input.Title = "Exchange declined"
		input.Message = fmt.Sprintf("Your request for %q was declined.", product.Title)
	case enums.ExchangeStatusArranged:
		input.Title = "Meetup arranged"
		input.Message = fmt.Sprintf("Meet at %s on %s to collect %q.",
			lo.FromPtr(exchange.MeetupLocation),
			lo.FromPtr(exchange.MeetupTime).UTC().Format(time.RFC1123),
			product.Title)
	case enums.ExchangeStatusCompleted:
		input.Title = "Exchange completed"
		input.Message = fmt.Sprintf("The exchange for %q is complete. Leave feedback for the owner.", product.Title)
	}

	if err := s.notifier.Record(ctx, tx, input); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record notification")
	}
	return nil
}

// normalizeCreate checks the request body once the product and the parties are settled.
func normalizeCreate(input CreateInput) (CreateInput, error) {
	if !input.Type.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "type must be exchange or donation").
			WithDetails(map[string]any{"type": input.Type})
	}
	input.Message = strings.TrimSpace(input.Message)
	if input.Message == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	input.ExchangeItemDetails = trimmedOrNil(input.ExchangeItemDetails)
	if input.Type == enums.ExchangeTypeExchange && input.ExchangeItemDetails == nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "exchange item details are required for exchanges")
	}
	return input, nil
}

func mapLoadError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func duplicateRequestError() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "you already have an active request for this product")
}

func displayName(summary users.Summary) string {
	if name := strings.TrimSpace(summary.Name); name != "" {
		return name
	}
	return "Someone"
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
