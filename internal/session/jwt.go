package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

const jwtIssuerName = "incidentdesk"

// jwtClaims is the signed token payload.
type jwtClaims struct {
	jwt.RegisteredClaims
	UserID      int64       `json:"uid"`
	Username    string      `json:"usr"`
	DisplayName string      `json:"name,omitempty"`
	Role        models.Role `json:"role"`
}

// JWTIssuer carries the whole session in an HS256-signed token.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTIssuer creates a JWT issuer. A zero ttl selects DefaultTTL.
func NewJWTIssuer(secret []byte, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JWTIssuer{
		secret: secret,
		ttl:    ttl,
		issuer: jwtIssuerName,
		now:    time.Now,
	}
}

// Issue signs a new token for claims.
func (s *JWTIssuer) Issue(_ context.Context, claims Claims) (*Token, error) {
	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	payload := &jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:      claims.UserID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	metrics.SessionsIssuedTotal.WithLabelValues("token").Inc()
	return &Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Validate checks the signature, issuer and expiry of value.
func (s *JWTIssuer) Validate(_ context.Context, value string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(value, &jwtClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	parsed, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}
	if parsed.UserID <= 0 || !parsed.Role.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidSession)
	}

	claims := &Claims{
		UserID:      parsed.UserID,
		Role:        parsed.Role,
		Username:    parsed.Username,
		DisplayName: parsed.DisplayName,
		ExpiresAt:   parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

// Refresh issues a replacement token once half of the lifetime has passed.
func (s *JWTIssuer) Refresh(ctx context.Context, _ string, claims *Claims) (*Token, error) {
	if !renewalDue(s.now(), claims.ExpiresAt, s.ttl) {
		return nil, nil
	}
	return s.Issue(ctx, *claims)
}

// Revoke is a no-op: signed tokens stay valid until they expire, and the
// caller clears the cookie.
func (s *JWTIssuer) Revoke(context.Context, string) error {
	return nil
}

// TTL returns the token lifetime.
func (s *JWTIssuer) TTL() time.Duration {
	return s.ttl
}
