package users

import (
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/google/uuid"
)

// Summary is the display view of a user joined into other payloads.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Avatar   *string   `json:"avatar,omitempty"`
	Location *string   `json:"location,omitempty"`
}

// Reputation is the average rating a user has received across exchanges.
type Reputation struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ProfileDTO is the caller's own profile.
type ProfileDTO struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Avatar     *string    `json:"avatar,omitempty"`
	Location   *string    `json:"location,omitempty"`
	Reputation Reputation `json:"reputation"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PublicProfileDTO omits contact details.
type PublicProfileDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Avatar     *string    `json:"avatar,omitempty"`
	Location   *string    `json:"location,omitempty"`
	Reputation Reputation `json:"reputation"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UpsertProfileInput holds the editable profile fields.
type UpsertProfileInput struct {
	Email    string
	Name     string
	Avatar   *string
	Location *string
}

func summaryFromModel(u *models.User) Summary {
	return Summary{
		ID:       u.ID,
		Name:     u.Name,
		Avatar:   u.Avatar,
		Location: u.Location,
	}
}

func profileFromModel(u *models.User, rep Reputation) *ProfileDTO {
	return &ProfileDTO{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Avatar:     u.Avatar,
		Location:   u.Location,
		Reputation: rep,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func publicFromModel(u *models.User, rep Reputation) *PublicProfileDTO {
	return &PublicProfileDTO{
		ID:         u.ID,
		Name:       u.Name,
		Avatar:     u.Avatar,
		Location:   u.Location,
		Reputation: rep,
		CreatedAt:  u.CreatedAt,
	}
}
