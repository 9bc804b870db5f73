package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
)

type mockUsers struct {
	users map[int64]*models.User
	err   error
}

func (m *mockUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[id], nil
}

func activeUser(id int64, role models.Role) *models.User {
	u := models.NewUser("user", "", "Test User", role)
	u.ID = id
	return u
}

func issueToken(t *testing.T, issuer session.Issuer, userID int64, role models.Role) string {
	t.Helper()
	token, err := issuer.Issue(context.Background(), session.Claims{UserID: userID, Role: role, Username: "user"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token.Value
}

func TestSessionAuth(t *testing.T) {
	issuer := session.NewJWTIssuer([]byte("test-secret-key-32-bytes-long!!!"), time.Hour)
	cookies := session.NewCookies(false)

	inactive := activeUser(3, models.RoleDeveloper)
	inactive.SetActive(false)
	users := &mockUsers{users: map[int64]*models.User{
		1: activeUser(1, models.RoleAdministrator),
		2: activeUser(2, models.RoleViewer),
		3: inactive,
	}}

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
		wantRole models.Role
	}{
		{
			name:     "no session",
			prepare:  func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "bearer token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issueToken(t, issuer, 1, models.RoleAdministrator))
			},
			wantCode: http.StatusOK,
			wantRole: models.RoleAdministrator,
		},
		{
			name: "cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: session.CookieName, Value: issueToken(t, issuer, 1, models.RoleAdministrator)})
			},
			wantCode: http.StatusOK,
			wantRole: models.RoleAdministrator,
		},
		{
			name: "stored role wins",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issueToken(t, issuer, 2, models.RoleAdministrator))
			},
			wantCode: http.StatusOK,
			wantRole: models.RoleViewer,
		},
		{
			name: "malformed token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer not-a-token")
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "inactive user",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issueToken(t, issuer, 3, models.RoleDeveloper))
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "deleted user",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issueToken(t, issuer, 99, models.RoleDeveloper))
			},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRole models.Role
			var gotUserID int64
			handler := SessionAuth(issuer, cookies, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotRole = GetRole(r.Context())
				gotUserID = GetUserID(r.Context())
				if GetSessionValue(r.Context()) == "" {
					t.Error("session value not in context")
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/v1/incidents", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				if gotRole != tt.wantRole {
					t.Errorf("role = %v, want %v", gotRole, tt.wantRole)
				}
				if gotUserID == 0 {
					t.Error("user id not in context")
				}
			}
		})
	}
}

func TestSessionAuth_LookupError(t *testing.T) {
	issuer := session.NewJWTIssuer([]byte("test-secret-key-32-bytes-long!!!"), time.Hour)
	handler := SessionAuth(issuer, session.NewCookies(false), &mockUsers{err: errors.New("db down")})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, issuer, 1, models.RoleAdministrator))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSessionAuth_ClearsBadCookie(t *testing.T) {
	issuer := session.NewJWTIssuer([]byte("test-secret-key-32-bytes-long!!!"), time.Hour)
	handler := SessionAuth(issuer, session.NewCookies(false), nil)(http.NotFoundHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestGetClaims_Empty(t *testing.T) {
	ctx := context.Background()
	if GetClaims(ctx) != nil || GetUserID(ctx) != 0 || GetRole(ctx) != models.RoleUnknown || GetSessionValue(ctx) != "" {
		t.Error("empty context should yield zero values")
	}
}
