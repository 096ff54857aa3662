package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db"
	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	pkgerrors "github.com/ecoswap/ecoswap-api/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes profile operations and the display directory used by other domains.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpsertMe(ctx context.Context, userID uuid.UUID, input UpsertProfileInput) (*ProfileDTO, error)
	Get(ctx context.Context, userID uuid.UUID) (*PublicProfileDTO, error)
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error)
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Upsert(ctx context.Context, user *models.User) error
	RatingsReceived(ctx context.Context, id uuid.UUID) ([]int, error)
}

type service struct {
	repo  userRepository
	cache *SummaryCache
	now   func() time.Time
}

// NewService wires the user repository with the summary cache. A nil cache disables caching.
func NewService(repo userRepository, cache *SummaryCache) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user repository required")
	}
	return &service{repo: repo, cache: cache, now: time.Now}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	rep, err := s.reputation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileFromModel(user, rep), nil
}

func (s *service) UpsertMe(ctx context.Context, userID uuid.UUID, input UpsertProfileInput) (*ProfileDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        userID,
		Email:     email,
		Name:      name,
		Avatar:    trimmedOrNil(input.Avatar),
		Location:  trimmedOrNil(input.Location),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_uidx") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save profile")
	}
	s.cache.Invalidate(userID)

	return s.Me(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*PublicProfileDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	rep, err := s.reputation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return publicFromModel(user, rep), nil
}

// Summaries resolves display summaries for ids. Unknown users are omitted from the result.
func (s *service) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error) {
	out := make(map[uuid.UUID]Summary, len(ids))
	var missing []uuid.UUID
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		if summary, ok := s.cache.Get(id); ok {
			out[id] = summary
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	rows, err := s.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user summaries")
	}
	for i := range rows {
		summary := summaryFromModel(&rows[i])
		s.cache.Add(summary)
		out[summary.ID] = summary
	}
	return out, nil
}

func (s *service) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	ok, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	return ok, nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) reputation(ctx context.Context, userID uuid.UUID) (Reputation, error) {
	ratings, err := s.repo.RatingsReceived(ctx, userID)
	if err != nil {
		return Reputation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ratings")
	}
	return averageRating(ratings), nil
}

// averageRating rounds to one decimal place.
func averageRating(ratings []int) Reputation {
	if len(ratings) == 0 {
		return Reputation{}
	}
	sum := decimal.Zero
	for _, r := range ratings {
		sum = sum.Add(decimal.NewFromInt(int64(r)))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)
	return Reputation{Average: avg.InexactFloat64(), Count: len(ratings)}
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
