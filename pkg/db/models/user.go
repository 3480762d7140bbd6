package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Role is nullable: NULL means
// the role was never set and the account is treated as a regular user. Older
// databases may additionally carry a legacy is_admin column; it is deliberately
// not mapped here and is only consulted by the role resolver's fallback query.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GoogleID    *string    `gorm:"column:google_id;uniqueIndex" json:"google_id,omitempty"`
	Email       string     `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name        string     `gorm:"type:text;not null" json:"name"`
	Picture     *string    `gorm:"type:text" json:"picture,omitempty"`
	Phone       *string    `gorm:"type:text" json:"phone,omitempty"`
	Role        *string    `gorm:"type:text" json:"role,omitempty"`
	LastLoginAt *time.Time `gorm:"column:last_login_at" json:"last_login,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
