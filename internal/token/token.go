// Package token implements the bearer-token lifecycle: issuance,
// verification, header extraction, refresh-window checks, and refresh.
//
// The manager is purely computational — it holds only immutable
// configuration, so it is trivially safe under concurrent use.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requesttime"
)

// HeaderScheme is the expected authorization scheme keyword.
const HeaderScheme = "Bearer"

// RefreshWindow is the remaining lifetime below which a token should be
// refreshed.
const RefreshWindow = time.Hour

// Claims are the session token claims. Immutable once signed; owned
// exclusively by this package.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the authenticated subject id carried by the token.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Config holds the signing and validation parameters.
type Config struct {
	SigningKey string
	Issuer     string
	Audience   string
	Lifetime   time.Duration
}

// Manager issues and verifies session tokens.
type Manager struct {
	signingKey []byte
	issuer     string
	audience   string
	lifetime   time.Duration
}

// NewManager creates a token manager from config. A zero lifetime defaults
// to 7 days.
func NewManager(cfg Config) *Manager {
	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}
	return &Manager{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		lifetime:   lifetime,
	}
}

// Issue creates a signed token for the subject with the configured issuer,
// audience and lifetime. The issue time comes from the request-scoped clock.
func (m *Manager) Issue(ctx context.Context, subjectID, email string) (string, error) {
	if subjectID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id cannot be empty")
	}

	now := requesttime.Now(ctx)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			Issuer:    m.issuer,
			Audience:  []string{m.audience},
		},
	})

	signed, err := tok.SignedString(m.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign token")
	}
	return signed, nil
}

// Verify parses and validates a token. Failures map onto the verification
// taxonomy: token_expired when past exp, token_issuer_mismatch when issuer
// or audience differ from configuration, token_malformed for everything
// else (bad signature, wrong algorithm, garbage input).
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.signingKey, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token expired")
		case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, dErrors.New(dErrors.CodeTokenIssuerMismatch, "token issuer or audience mismatch")
		default:
			return nil, dErrors.New(dErrors.CodeTokenMalformed, "invalid token")
		}
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "invalid token")
	}

	return claims, nil
}

// ExtractFromHeader parses a two-part "Bearer <token>" authorization header
// value. Returns false when the scheme keyword does not match or the value
// has more or fewer than two parts.
func ExtractFromHeader(headerValue string) (string, bool) {
	parts := strings.Fields(headerValue)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], HeaderScheme) {
		return "", false
	}
	return parts[1], true
}

// ShouldRefresh reports whether the token is close enough to expiry that the
// caller should obtain a fresh one: true when the expiry cannot be decoded
// or when the remaining lifetime is at most RefreshWindow.
func (m *Manager) ShouldRefresh(tokenString string) bool {
	claims := new(Claims)
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return time.Until(claims.ExpiresAt.Time) <= RefreshWindow
}

// Refresh verifies the old token and issues a new one for the same subject.
// An already-expired token fails verification rather than being silently
// revived.
func (m *Manager) Refresh(ctx context.Context, oldToken string) (string, error) {
	claims, err := m.Verify(oldToken)
	if err != nil {
		return "", err
	}
	return m.Issue(ctx, claims.Subject, claims.Email)
}
