package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-api/internal/authz"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

// RegisterRequest represents the open registration payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserRequest is a partial update; only provided fields change.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Username *string `json:"username" validate:"omitempty,min=3"`
	Email    *string `json:"email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

// UserService handles account management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Register creates a new account. The duplicate pre-checks are advisory;
// the storage unique constraints are authoritative and their violation is
// translated to a conflict.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing or invalid registration fields")
	}

	name := strings.TrimSpace(req.Name)
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	if !validEmail(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
	}
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid role, must be 'admin', 'instructor', or 'student'")
	}

	if taken, err := s.repo.EmailTaken(ctx, email, 0); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	} else if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}
	if taken, err := s.repo.UsernameTaken(ctx, username, 0); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	} else if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or username already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	profile := user.ToProfile()
	return &profile, nil
}

// List returns all account profiles.
func (s *UserService) List(ctx context.Context) ([]models.Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	profiles := make([]models.Profile, len(users))
	for i := range users {
		profiles[i] = users[i].ToProfile()
	}
	return profiles, nil
}

// Get returns a single account profile.
func (s *UserService) Get(ctx context.Context, id int64) (*models.Profile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	profile := user.ToProfile()
	return &profile, nil
}

// Update applies a partial update to an account. Callers may update
// themselves; admins may update anyone. Role and active flag changes are
// admin-only regardless of target: a self-update never changes its own role.
func (s *UserService) Update(ctx context.Context, targetID int64, req UpdateUserRequest, callerID int64) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	caller, err := s.resolveCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := authz.SelfOrAdmin(caller, user.ID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if len(username) < 3 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "username must be at least 3 characters long")
		}
		if taken, err := s.repo.UsernameTaken(ctx, username, user.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
		} else if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already in use")
		}
		user.Username = username
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !validEmail(email) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
		}
		if taken, err := s.repo.EmailTaken(ctx, email, user.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		} else if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		user.Email = email
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if req.Role != nil {
		role := models.Role(strings.ToLower(strings.TrimSpace(*req.Role)))
		if !caller.IsAdmin() && role != user.Role {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "role can only be changed by an admin")
		}
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid role, must be 'admin', 'instructor', or 'student'")
		}
		user.Role = role
	}

	if req.Active != nil {
		if !caller.IsAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "active flag can only be changed by an admin")
		}
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or username already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	profile := user.ToProfile()
	return &profile, nil
}

// Delete removes an account. Admin-only, and admins may not delete their own
// account.
func (s *UserService) Delete(ctx context.Context, targetID int64, callerID int64) error {
	caller, err := s.resolveCaller(ctx, callerID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admins only")
	}
	if caller.ID == targetID {
		return appErrors.Clone(appErrors.ErrForbidden, "admins cannot delete themselves")
	}

	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.logger.Info("user deleted", zap.Int64("user_id", targetID), zap.Int64("deleted_by", caller.ID))
	return nil
}

// resolveCaller loads the caller's account. A valid token whose account no
// longer exists carries no identity and is treated as unauthorized.
func (s *UserService) resolveCaller(ctx context.Context, callerID int64) (*models.User, error) {
	caller, err := s.repo.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid user token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load caller")
	}
	return caller, nil
}

// validEmail applies the minimal shape check used across update paths.
func validEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}
