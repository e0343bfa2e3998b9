package auth

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mayondo/mwf/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates username/password credentials and checks that the user
// holds the role chosen at login.
func (s *Service) Authenticate(ctx context.Context, username, password, role string) (*User, error) {
	role = canonicalRole(role)
	if !shared.ValidRole(role) {
		return nil, shared.ValidationError{Field: "role", Message: "must be Manager or Employee"}
	}
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !slices.Contains(user.Roles, role) {
		return nil, shared.ErrRoleMismatch
	}
	return user, nil
}

func canonicalRole(role string) string {
	for _, r := range []string{shared.RoleManager, shared.RoleEmployee} {
		if strings.EqualFold(strings.TrimSpace(role), r) {
			return r
		}
	}
	return role
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
