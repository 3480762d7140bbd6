package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
)

// UserDTO is the transport shape for user profiles.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Picture     *string    `json:"picture,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Role        *string    `json:"role,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UpdateUserDTO carries the optional profile fields a caller may change.
// Nil means "leave unchanged". Email and Role only take effect for
// admin actors; the service rejects them otherwise.
type UpdateUserDTO struct {
	Name    *string `json:"name,omitempty"`
	Picture *string `json:"picture,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Role    *string `json:"role,omitempty"`
}

// GoogleProfileDTO is the identity handed over by the OAuth callback.
type GoogleProfileDTO struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Picture:     u.Picture,
		Phone:       u.Phone,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
