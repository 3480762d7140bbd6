package roles

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

const adminRole = "admin"

// Resolver answers "is this user an admin" against the users table.
//
// Resolution runs ordered strategies: the role column is consulted first
// and is decisive whenever it holds a non-NULL value; only a NULL role
// falls through to the legacy is_admin flag kept by older databases.
// Every failure mode, including an unknown user, resolves to false.
type Resolver struct {
	db         *gorm.DB
	logg       *logger.Logger
	strategies []strategy
}

type strategy interface {
	name() string
	// resolve reports (isAdmin, decisive). A non-decisive result hands
	// the question to the next strategy.
	resolve(ctx context.Context, db *gorm.DB, userID uuid.UUID) (bool, bool, error)
}

// NewResolver builds the resolver with the role-column and legacy-flag
// strategies in precedence order.
func NewResolver(db *gorm.DB, logg *logger.Logger) *Resolver {
	return &Resolver{
		db:   db,
		logg: logg,
		strategies: []strategy{
			roleColumnStrategy{},
			legacyFlagStrategy{},
		},
	}
}

// WithDB returns a resolver bound to the given handle, typically a
// transaction, keeping the same strategies and logger.
func (r *Resolver) WithDB(db *gorm.DB) *Resolver {
	if r == nil || db == nil {
		return r
	}
	return &Resolver{db: db, logg: r.logg, strategies: r.strategies}
}

// IsAdmin resolves the admin decision for the given user. It never
// returns an error: lookups that fail resolve to false.
func (r *Resolver) IsAdmin(ctx context.Context, userID uuid.UUID) bool {
	if r == nil || r.db == nil || userID == uuid.Nil {
		return false
	}
	for _, s := range r.strategies {
		isAdmin, decisive, err := s.resolve(ctx, r.db, userID)
		if err != nil {
			if r.logg != nil {
				logCtx := r.logg.WithFields(ctx, map[string]any{
					"user_id":  userID.String(),
					"strategy": s.name(),
				})
				r.logg.Error(logCtx, "role resolution failed, denying admin", err)
			}
			return false
		}
		if decisive {
			return isAdmin
		}
	}
	return false
}

type roleColumnStrategy struct{}

func (roleColumnStrategy) name() string { return "role_column" }

func (roleColumnStrategy) resolve(ctx context.Context, db *gorm.DB, userID uuid.UUID) (bool, bool, error) {
	var role sql.NullString
	row := db.WithContext(ctx).Raw("SELECT role FROM users WHERE id = ?", userID).Row()
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown user: decisively not an admin.
			return false, true, nil
		}
		return false, false, err
	}
	if !role.Valid {
		return false, false, nil
	}
	return strings.EqualFold(strings.TrimSpace(role.String), adminRole), true, nil
}

type legacyFlagStrategy struct{}

func (legacyFlagStrategy) name() string { return "legacy_is_admin" }

func (legacyFlagStrategy) resolve(ctx context.Context, db *gorm.DB, userID uuid.UUID) (bool, bool, error) {
	var raw any
	row := db.WithContext(ctx).Raw("SELECT is_admin FROM users WHERE id = ?", userID).Row()
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, true, nil
		}
		return false, false, err
	}
	return truthyFlag(raw), true, nil
}

// truthyFlag accepts the representations the legacy column has shipped
// with: a real boolean, the integer 1, or the string "1".
func truthyFlag(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v == 1
	case float64:
		return v == 1
	case string:
		return strings.TrimSpace(v) == "1"
	case []byte:
		return strings.TrimSpace(string(v)) == "1"
	default:
		return false
	}
}
