package users

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/pkg/db"
	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/pagination"
)

const maxPhoneLength = 20

var phoneRe = regexp.MustCompile(`^[0-9\-\+\(\)\s]+$`)

// Service defines profile and account management operations.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto UpdateUserDTO) (*UserDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	UpsertFromGoogle(ctx context.Context, profile GoogleProfileDTO) (*models.User, error)
}

// AdminResolver answers admin checks for arbitrary users.
type AdminResolver interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListParams configures pagination for the admin user listing.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult wraps returned users and the cursor for the next page.
type ListResult struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type service struct {
	repo     Repository
	runner   txRunner
	resolver AdminResolver
	logg     *logger.Logger
}

// NewService wires user dependencies.
func NewService(repo Repository, runner txRunner, resolver AdminResolver, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin resolver required")
	}
	return &service{repo: repo, runner: runner, resolver: resolver, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !actor.IsAdmin && actor.UserID != id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's profile")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.List(ctx, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	result := &ListResult{Items: FromModels(rows)}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, dto UpdateUserDTO) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !actor.IsAdmin && actor.UserID != id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot update another user's profile")
	}
	if (dto.Email != nil || dto.Role != nil) && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may change email or role")
	}

	fields, err := buildUpdateFields(dto)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			if IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}
	return FromModel(user), nil
}

func buildUpdateFields(dto UpdateUserDTO) (map[string]any, error) {
	fields := map[string]any{}

	if dto.Name != nil {
		name := strings.TrimSpace(*dto.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if dto.Picture != nil {
		fields["picture"] = strings.TrimSpace(*dto.Picture)
	}
	if dto.Phone != nil {
		phone := strings.TrimSpace(*dto.Phone)
		if phone == "" {
			fields["phone"] = nil
		} else {
			if len(phone) > maxPhoneLength || !phoneRe.MatchString(phone) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number")
			}
			fields["phone"] = phone
		}
	}
	if dto.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*dto.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
		}
		fields["email"] = email
	}
	if dto.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*dto.Role))
		switch role {
		case "admin", "user":
			fields["role"] = role
		case "":
			fields["role"] = nil
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be admin or user")
		}
	}
	return fields, nil
}

// Delete removes an account. Deleting the last remaining admin is
// refused: the count and the delete run in one transaction so two
// concurrent deletes cannot both pass the guard.
func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !actor.IsAdmin && actor.UserID != id {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete another user's account")
	}

	targetIsAdmin := s.resolver.IsAdmin(ctx, id)

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if targetIsAdmin {
			count, err := txRepo.CountAdmins(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
			}
			if count <= 1 {
				return pkgerrors.New(pkgerrors.CodeConflict, "cannot delete the last admin account")
			}
		}

		deleted, err := txRepo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil
	})
}

// UpsertFromGoogle finds or creates the account for a verified Google
// identity. Match order is google_id first, then email for accounts
// created before the account was linked.
func (s *service) UpsertFromGoogle(ctx context.Context, profile GoogleProfileDTO) (*models.User, error) {
	if profile.GoogleID == "" || profile.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "google id and email required")
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	now := time.Now().UTC()

	user, err := s.repo.FindByGoogleID(ctx, profile.GoogleID)
	if err != nil && !IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by google id")
	}
	if user == nil {
		user, err = s.repo.FindByEmail(ctx, email)
		if err != nil && !IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by email")
		}
	}

	if user == nil {
		created := &models.User{
			ID:          uuid.New(),
			GoogleID:    &profile.GoogleID,
			Email:       email,
			Name:        profile.Name,
			LastLoginAt: &now,
		}
		if profile.Picture != "" {
			created.Picture = &profile.Picture
		}
		if err := s.repo.Create(ctx, created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "account already exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return created, nil
	}

	fields := map[string]any{
		"google_id":     profile.GoogleID,
		"name":          profile.Name,
		"last_login_at": now,
	}
	if profile.Picture != "" {
		fields["picture"] = profile.Picture
	}
	if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh user profile")
	}

	refreshed, err := s.repo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}
	return refreshed, nil
}
