package users

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mayondo/mwf/internal/shared"
)

const minPasswordLength = 8

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListUsers(ctx context.Context, role string) ([]User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	validate *validator.Validate
	cost     int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, used by tests and seeding.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx, "")
}

// Employees lists the accounts holding the Employee role.
func (s *Service) Employees(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx, shared.RoleEmployee)
}

// CreateUser registers an account with a single role and tells every manager.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	role, err := s.check(input)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		user, err := tx.InsertUser(ctx, User{Username: input.Username, Email: input.Email}, string(hash))
		if err != nil {
			return err
		}
		if err := tx.AssignRole(ctx, user.ID, role); err != nil {
			return err
		}
		user.Roles = []string{role}
		created = user
		return tx.NotifyManagers(ctx, NewUserMessage)
	})
	if err != nil {
		return User{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "user:create",
			Entity:   "user",
			EntityID: strconv.FormatInt(created.ID, 10),
			Meta:     map[string]any{"username": created.Username, "role": role},
		})
	}
	return created, nil
}

func (s *Service) check(input CreateInput) (string, error) {
	var errs shared.ValidationErrors
	if input.Username == "" {
		errs.Add("username", "is required")
	} else if len(input.Username) > 150 {
		errs.Add("username", "must be at most 150 characters")
	}
	if input.Email != "" {
		if err := s.validate.Var(input.Email, "email"); err != nil {
			errs.Add("email", "must be a valid email address")
		}
	}
	if len(input.Password) < minPasswordLength {
		errs.Add("password", "must be at least 8 characters")
	}
	role := ""
	for _, r := range []string{shared.RoleManager, shared.RoleEmployee} {
		if strings.EqualFold(strings.TrimSpace(input.Role), r) {
			role = r
		}
	}
	if role == "" {
		errs.Add("role", "must be Manager or Employee")
	}
	return role, errs.Err()
}

// SetActive enables or disables an account. Managers cannot disable themselves.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actorID int64) error {
	if id <= 0 {
		return ErrUserNotFound
	}
	if !active && id == actorID {
		return shared.ValidationError{Field: "is_active", Message: "you cannot deactivate your own account"}
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user:set_active",
			Entity:   "user",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"is_active": active},
		})
	}
	return nil
}
