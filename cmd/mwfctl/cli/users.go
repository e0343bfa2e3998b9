package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mayondo/mwf/internal/shared"
	"github.com/mayondo/mwf/internal/users"
)

// UserCreator creates accounts.
type UserCreator interface {
	CreateUser(ctx context.Context, input users.CreateInput) (users.User, error)
}

// CreateUserOptions configures the create-user command.
type CreateUserOptions struct {
	Username   string
	Email      string
	Password   string
	Role       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CreateUserCommand creates an account outside the HTTP surface, typically the
// first manager of a fresh install. It returns the process exit code.
func CreateUserCommand(ctx context.Context, creator UserCreator, opts CreateUserOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if creator == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "create-user: service not configured")
		return 1
	}
	user, err := creator.CreateUser(ctx, users.CreateInput{
		Username: opts.Username,
		Email:    opts.Email,
		Password: opts.Password,
		Role:     opts.Role,
	})
	if err != nil {
		var fields shared.ValidationErrors
		var field shared.ValidationError
		switch {
		case errors.As(err, &fields):
			for _, f := range fields {
				_, _ = fmt.Fprintf(opts.Stderr, "create-user: %s\n", f.Error())
			}
			return 2
		case errors.As(err, &field):
			_, _ = fmt.Fprintf(opts.Stderr, "create-user: %s\n", field.Error())
			return 2
		default:
			_, _ = fmt.Fprintf(opts.Stderr, "create-user: %v\n", err)
			return 1
		}
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(user); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "create-user: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "created user %s (id %d, roles %v)\n", user.Username, user.ID, user.Roles)
	return 0
}
