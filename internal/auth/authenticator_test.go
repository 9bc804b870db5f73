package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/security"
)

type memUsers struct {
	byName map[string]*models.User
	byID   map[int64]*models.User
	err    error
	panics bool
	calls  int
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{byName: map[string]*models.User{}, byID: map[int64]*models.User{}}
	for _, u := range users {
		m.byName[u.Username] = u
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.calls++
	if m.panics {
		panic("storage exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.byName[username], nil
}

func (m *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.byID[id], nil
}

type erroringVerifier struct{}

func (erroringVerifier) Verify(password, salt, hash string) (bool, error) {
	return false, errors.New("kdf unavailable")
}

func seedUser(t *testing.T, id int64, username, password string, role models.Role) *models.User {
	t.Helper()
	hash, salt, err := security.NewCredentials(password)
	if err != nil {
		t.Fatalf("NewCredentials failed: %v", err)
	}
	u := models.NewUser(username, username+"@example.com", "Full "+username, role)
	u.ID = id
	u.PasswordHash = hash
	u.Salt = salt
	return u
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	admin := seedUser(t, 1, "admin", "Admin123!", models.RoleAdministrator)
	a := NewAuthenticator(newMemUsers(admin), nil, zerolog.Nop())
	ctx := context.Background()

	identity, err := a.Authenticate(ctx, "admin", "Admin123!")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	res := NewResult(identity, err)
	if !res.Success || res.RoleName != "Administrator" || res.UserID != 1 || !res.IsActive {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.FullName != "Full admin" || res.Username != "admin" {
		t.Errorf("unexpected names: %+v", res)
	}

	_, err = a.Authenticate(ctx, "admin", "wrong")
	if got := PublicMessage(err); got != MessageInvalidCredentials {
		t.Errorf("wrong password message = %q", got)
	}

	_, err = a.Authenticate(ctx, "admin", "")
	if ReasonOf(err) != ReasonCredentialsRequired {
		t.Errorf("empty password reason = %v", ReasonOf(err))
	}

	admin.SetActive(false)
	_, err = a.Authenticate(ctx, "admin", "Admin123!")
	if got := PublicMessage(err); got != MessageUserNotActive {
		t.Errorf("inactive user message = %q", got)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	active := seedUser(t, 7, "dev", "Dev12345!", models.RoleDeveloper)
	unset := seedUser(t, 8, "unset", "Unset123!", models.RoleViewer)
	unset.Active = nil
	noRole := seedUser(t, 9, "norole", "NoRole123!", models.RoleUnknown)

	a := NewAuthenticator(newMemUsers(active, unset, noRole), nil, zerolog.Nop())

	tests := []struct {
		name       string
		login      string
		password   string
		wantReason Reason
		wantMsg    string
	}{
		{"blank login", "   ", "x", ReasonCredentialsRequired, MessageCredentialsRequired},
		{"blank password", "dev", "  ", ReasonCredentialsRequired, MessageCredentialsRequired},
		{"unknown user", "ghost", "Dev12345!", ReasonUserNotFound, MessageInvalidCredentials},
		{"unknown numeric id", "404", "Dev12345!", ReasonUserNotFound, MessageInvalidCredentials},
		{"padded username", " dev", "Dev12345!", ReasonUserNotFound, MessageInvalidCredentials},
		{"padded numeric id", "7 ", "Dev12345!", ReasonUserNotFound, MessageInvalidCredentials},
		{"unset active flag", "unset", "Unset123!", ReasonUserNotActive, MessageUserNotActive},
		{"no role", "norole", "NoRole123!", ReasonRoleNotAssigned, MessageInvalidCredentials},
		{"wrong password", "dev", "nope", ReasonInvalidCredentials, MessageInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := a.Authenticate(context.Background(), tt.login, tt.password)
			if identity != nil {
				t.Fatalf("expected no identity, got %+v", identity)
			}
			if ReasonOf(err) != tt.wantReason {
				t.Errorf("reason = %v, want %v", ReasonOf(err), tt.wantReason)
			}
			res := NewResult(identity, err)
			if res.Success || res.ErrorMessage != tt.wantMsg {
				t.Errorf("result = %+v, want message %q", res, tt.wantMsg)
			}
		})
	}
}

func TestAuthenticate_NumericLoginFallsBackToID(t *testing.T) {
	u := seedUser(t, 42, "jane", "Jane1234!", models.RoleViewer)
	a := NewAuthenticator(newMemUsers(u), nil, zerolog.Nop())

	identity, err := a.Authenticate(context.Background(), "42", "Jane1234!")
	if err != nil {
		t.Fatalf("Authenticate by id failed: %v", err)
	}
	if identity.Username != "jane" || identity.Role != models.RoleViewer {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestAuthenticate_UsernameTakesPrecedenceOverID(t *testing.T) {
	byID := seedUser(t, 5, "five", "Five1234!", models.RoleViewer)
	named := seedUser(t, 6, "5", "Named123!", models.RoleDeveloper)
	a := NewAuthenticator(newMemUsers(byID, named), nil, zerolog.Nop())

	identity, err := a.Authenticate(context.Background(), "5", "Named123!")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.UserID != 6 {
		t.Errorf("expected user 6 matched by name, got %d", identity.UserID)
	}
}

func TestAuthenticate_InternalFaults(t *testing.T) {
	t.Run("repository error", func(t *testing.T) {
		users := newMemUsers()
		users.err = errors.New("connection refused on 10.0.0.5")
		a := NewAuthenticator(users, nil, zerolog.Nop())

		_, err := a.Authenticate(context.Background(), "admin", "pw")
		if ReasonOf(err) != ReasonInternal {
			t.Fatalf("reason = %v, want internal", ReasonOf(err))
		}
		if msg := PublicMessage(err); msg != MessageFailed {
			t.Errorf("public message leaked detail: %q", msg)
		}
	})

	t.Run("panic", func(t *testing.T) {
		users := newMemUsers()
		users.panics = true
		a := NewAuthenticator(users, nil, zerolog.Nop())

		_, err := a.Authenticate(context.Background(), "admin", "pw")
		if ReasonOf(err) != ReasonInternal {
			t.Errorf("reason = %v, want internal", ReasonOf(err))
		}
	})

	t.Run("verifier error is invalid credentials", func(t *testing.T) {
		u := seedUser(t, 1, "admin", "Admin123!", models.RoleAdministrator)
		a := NewAuthenticator(newMemUsers(u), erroringVerifier{}, zerolog.Nop())

		_, err := a.Authenticate(context.Background(), "admin", "Admin123!")
		if ReasonOf(err) != ReasonInvalidCredentials {
			t.Errorf("reason = %v, want invalid credentials", ReasonOf(err))
		}
	})
}

func TestAuthenticate_ContextCancelled(t *testing.T) {
	users := newMemUsers()
	users.err = context.Canceled
	a := NewAuthenticator(users, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Authenticate(ctx, "admin", "pw")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		t.Error("cancellation should not be converted to an authentication error")
	}
}

func TestAuthenticate_BlankInputSkipsLookup(t *testing.T) {
	users := newMemUsers()
	a := NewAuthenticator(users, nil, zerolog.Nop())

	_, _ = a.Authenticate(context.Background(), "", "")
	if users.calls != 0 {
		t.Errorf("expected no repository calls, got %d", users.calls)
	}
}
