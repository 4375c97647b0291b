package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/lab-booking/internal/persistence"
)

// UserRepository captures the persistence interactions for accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user persistence.User) error
	UpdateUser(ctx context.Context, user persistence.User) error
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserService manages accounts. Creating or deleting accounts and granting
// the validator capability require a validator principal; users may update
// their own display name and password.
type UserService struct {
	users       UserRepository
	logger      *slog.Logger
	idGenerator func() string
	hashParams  Argon2idParams
}

// NewUserService wires dependencies for account operations.
func NewUserService(users UserRepository, logger *slog.Logger, idGenerator func() string) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &UserService{
		users:       users,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		hashParams:  DefaultArgon2idParams,
	}
}

// CreateUser registers a new account.
func (s *UserService) CreateUser(ctx context.Context, principal Principal, input UserInput) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}
	if !principal.IsValidator {
		return User{}, ErrUnauthorized
	}
	if err := validateUserInput(input, true); err != nil {
		return User{}, err
	}

	hash, err := CreatePasswordHash(input.Password, s.hashParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	record := persistence.User{
		ID:           s.idGenerator(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hash,
		IsValidator:  input.IsValidator,
	}
	if err := s.users.CreateUser(ctx, record); err != nil {
		err = mapRepoError(err)
		serviceLogger(ctx, s.logger, "user", "create").ErrorContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}
	return s.getUser(ctx, record.ID)
}

// UpdateUser changes account attributes. Only validators may flip the
// validator capability or touch other accounts.
func (s *UserService) UpdateUser(ctx context.Context, principal Principal, userID string, input UserInput) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}
	existing, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	if principal.UserID != userID && !principal.IsValidator {
		return User{}, ErrUnauthorized
	}
	if input.IsValidator != existing.IsValidator && !principal.IsValidator {
		return User{}, ErrUnauthorized
	}
	if err := validateUserInput(input, false); err != nil {
		return User{}, err
	}

	existing.Email = strings.ToLower(strings.TrimSpace(input.Email))
	existing.DisplayName = strings.TrimSpace(input.DisplayName)
	existing.IsValidator = input.IsValidator
	if input.Password != "" {
		hash, err := CreatePasswordHash(input.Password, s.hashParams)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		existing.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, existing); err != nil {
		return User{}, mapRepoError(err)
	}
	return s.getUser(ctx, userID)
}

// GetUser retrieves an account.
func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}
	return s.getUser(ctx, id)
}

// ListUsers returns all accounts ordered by display name.
func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user service not configured")
	}
	records, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	users := make([]User, len(records))
	for i, record := range records {
		users[i] = fromStoredUser(record)
	}
	return users, nil
}

// DeleteUser removes an account and cascades its sessions.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.users == nil {
		return fmt.Errorf("user service not configured")
	}
	if !principal.IsValidator {
		return ErrUnauthorized
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return mapRepoError(err)
	}
	serviceLogger(ctx, s.logger, "user", "delete").InfoContext(ctx, "user deleted", "target_user_id", id)
	return nil
}

func (s *UserService) getUser(ctx context.Context, id string) (User, error) {
	record, err := s.users.GetUser(ctx, id)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return fromStoredUser(record), nil
}

func fromStoredUser(record persistence.User) User {
	return User{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		IsValidator: record.IsValidator,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func validateUserInput(input UserInput, passwordRequired bool) error {
	vErr := &ValidationError{}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		vErr.add("email", "email is invalid")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if passwordRequired && input.Password == "" {
		vErr.add("password", "password is required")
	}
	if input.Password != "" && len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
