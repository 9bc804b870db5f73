// Package auth verifies login credentials and reports who signed in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/security"
)

// UserFinder looks up accounts. Implementations return (nil, nil) when the
// user does not exist, and load the user's role with it.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Identity describes a successfully authenticated user.
type Identity struct {
	UserID   int64
	Role     models.Role
	Active   bool
	Username string
	FullName string
}

// DisplayName returns the full name, falling back to the username.
func (i *Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Username
}

// Authenticator checks a login and password against stored credentials.
type Authenticator struct {
	users    UserFinder
	verifier security.Verifier
	logger   zerolog.Logger
}

// NewAuthenticator creates an Authenticator. A nil verifier selects the
// PBKDF2 verifier.
func NewAuthenticator(users UserFinder, verifier security.Verifier, logger zerolog.Logger) *Authenticator {
	if verifier == nil {
		verifier = security.PBKDF2Verifier{}
	}
	return &Authenticator{
		users:    users,
		verifier: verifier,
		logger:   logger.With().Str("component", "authenticator").Logger(),
	}
}

// Authenticate resolves login to a user and verifies password. login is
// matched against the username first and then, when numeric, the user id.
//
// Failures are returned as *Error. A cancelled or expired ctx is returned
// unchanged.
func (a *Authenticator) Authenticate(ctx context.Context, login, password string) (identity *Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("authentication panicked")
			identity, err = nil, fail(ReasonInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	// Blank checks trim, the lookup does not: usernames match exactly.
	if strings.TrimSpace(login) == "" || strings.TrimSpace(password) == "" {
		return nil, fail(ReasonCredentialsRequired, nil)
	}

	user, err := a.findUser(ctx, login)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		a.logger.Error().Err(err).Str("login", login).Msg("user lookup failed")
		return nil, fail(ReasonInternal, err)
	}
	if user == nil {
		a.logger.Debug().Str("login", login).Msg("unknown user")
		return nil, fail(ReasonUserNotFound, nil)
	}
	if !user.IsActive() {
		a.logger.Info().Int64("user_id", user.ID).Msg("login rejected: user not active")
		return nil, fail(ReasonUserNotActive, nil)
	}
	if !user.Role.Valid() {
		a.logger.Warn().Int64("user_id", user.ID).Msg("login rejected: no role assigned")
		return nil, fail(ReasonRoleNotAssigned, nil)
	}

	ok, verr := a.verifier.Verify(password, user.Salt, user.PasswordHash)
	if verr != nil {
		a.logger.Warn().Err(verr).Int64("user_id", user.ID).Msg("password verification error")
		return nil, fail(ReasonInvalidCredentials, verr)
	}
	if !ok {
		return nil, fail(ReasonInvalidCredentials, nil)
	}

	return &Identity{
		UserID:   user.ID,
		Role:     user.Role,
		Active:   true,
		Username: user.Username,
		FullName: user.FullName,
	}, nil
}

func (a *Authenticator) findUser(ctx context.Context, login string) (*models.User, error) {
	user, err := a.users.GetByUsername(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	if user != nil {
		return user, nil
	}

	id, perr := strconv.ParseInt(login, 10, 64)
	if perr != nil {
		return nil, nil
	}
	user, err = a.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}
