package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	PasswordHash(ctx context.Context, id int64) (string, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Update(ctx context.Context, u User, passwordHash string) (User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountActiveAdmins(ctx context.Context) (int, error)
}

// ActivityPort records account changes.
type ActivityPort interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	activity ActivityPort
	cost     int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, activity ActivityPort) *Service {
	return &Service{repo: repo, activity: activity, cost: bcrypt.DefaultCost}
}

// HashPassword hashes a plain password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hash), nil
}

// SeedAdmin creates the first admin account. It does nothing and reports false
// when an active admin already exists.
func (s *Service) SeedAdmin(ctx context.Context, username, fullName, password string) (User, bool, error) {
	admins, err := s.repo.CountActiveAdmins(ctx)
	if err != nil {
		return User{}, false, wrapErr(err, "count admins")
	}
	if admins > 0 {
		return User{}, false, nil
	}
	input := CreateInput{Username: username, FullName: fullName, Password: password, Role: rbac.RoleAdmin}
	if input.FullName == "" {
		input.FullName = username
	}
	u, err := s.Create(ctx, input)
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, wrapErr(err, "list users")
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, wrapErr(err, "get user")
	}
	return u, nil
}

// Create adds an active account.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" {
		return User{}, shared.Validationf("username is required")
	}
	if !rbac.ValidRole(input.Role) {
		return User{}, shared.Validationf("role must be admin or staff")
	}
	hash, err := HashPassword(input.Password, s.cost)
	if err != nil {
		return User{}, shared.Internal(err, "hash password")
	}
	created, err := s.repo.Create(ctx, User{
		Username: username,
		FullName: strings.TrimSpace(input.FullName),
		Role:     input.Role,
		IsActive: true,
	}, hash)
	if err != nil {
		return User{}, wrapErr(err, "create user")
	}
	s.record(ctx, activity.ActionCreateUser, created.ID, nil, created)
	return created, nil
}

// Update applies admin changes. The last active admin cannot be demoted or deactivated.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, wrapErr(err, "get user")
	}
	next := before
	if input.FullName != nil {
		next.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Role != nil {
		if !rbac.ValidRole(*input.Role) {
			return User{}, shared.Validationf("role must be admin or staff")
		}
		next.Role = *input.Role
	}
	if input.IsActive != nil {
		next.IsActive = *input.IsActive
	}
	if id == shared.ActorID(ctx) && (!next.IsActive || next.Role != before.Role) {
		return User{}, shared.Validationf("you cannot change your own role or deactivate yourself")
	}
	losesAdmin := before.Role == rbac.RoleAdmin && before.IsActive && (next.Role != rbac.RoleAdmin || !next.IsActive)
	if losesAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return User{}, err
		}
	}

	hash := ""
	if input.Password != nil && *input.Password != "" {
		if hash, err = HashPassword(*input.Password, s.cost); err != nil {
			return User{}, shared.Internal(err, "hash password")
		}
	}
	updated, err := s.repo.Update(ctx, next, hash)
	if err != nil {
		return User{}, wrapErr(err, "update user")
	}
	after := map[string]any{"user": updated, "password_changed": hash != ""}
	s.record(ctx, activity.ActionUpdateUser, id, before, after)
	return updated, nil
}

// Delete removes an account other than the caller's own.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == shared.ActorID(ctx) {
		return shared.Validationf("you cannot delete your own account")
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return wrapErr(err, "get user")
	}
	if before.Role == rbac.RoleAdmin && before.IsActive {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return wrapErr(err, "delete user")
	}
	if !deleted {
		return shared.NotFoundf("user %d not found", id)
	}
	s.record(ctx, activity.ActionDeleteUser, id, before, nil)
	return nil
}

// UpdateProfile changes the caller's own name or password. A new password
// requires the current one.
func (s *Service) UpdateProfile(ctx context.Context, input ProfileInput) (User, error) {
	id := shared.ActorID(ctx)
	if id == 0 {
		return User{}, shared.ErrUnauthorized
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, wrapErr(err, "get user")
	}
	next := before
	if name := strings.TrimSpace(input.FullName); name != "" {
		next.FullName = name
	}
	hash := ""
	if input.NewPassword != "" {
		current, err := s.repo.PasswordHash(ctx, id)
		if err != nil {
			return User{}, wrapErr(err, "load password")
		}
		if bcrypt.CompareHashAndPassword([]byte(current), []byte(input.CurrentPassword)) != nil {
			return User{}, shared.Validationf("current password is incorrect")
		}
		if hash, err = HashPassword(input.NewPassword, s.cost); err != nil {
			return User{}, shared.Internal(err, "hash password")
		}
	}
	if next.FullName == before.FullName && hash == "" {
		return before, nil
	}
	updated, err := s.repo.Update(ctx, next, hash)
	if err != nil {
		return User{}, wrapErr(err, "update profile")
	}
	s.record(ctx, activity.ActionUpdateProfile, id, before, map[string]any{"user": updated, "password_changed": hash != ""})
	return updated, nil
}

func (s *Service) ensureAnotherAdmin(ctx context.Context) error {
	n, err := s.repo.CountActiveAdmins(ctx)
	if err != nil {
		return wrapErr(err, "count admins")
	}
	if n <= 1 {
		return shared.Conflictf("at least one active admin must remain")
	}
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, before, after any) {
	if s.activity == nil {
		return
	}
	entry := activity.Entry{
		Action:    action,
		TableName: activity.TableUsers,
		RecordID:  strconv.FormatInt(id, 10),
	}
	if before != nil {
		entry.OldData = activity.Snapshot(before)
	}
	if after != nil {
		entry.NewData = activity.Snapshot(after)
	}
	s.activity.Record(ctx, entry)
}

func wrapErr(err error, op string) error {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.Internal(fmt.Errorf("users: %s: %w", op, err), op)
}
