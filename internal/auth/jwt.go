// Package auth provides credential hashing, bearer-token issuance and the
// request gate that protects the /api/secure routes.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User registers or logs in via POST /api/auth/register or /api/auth/login
//     (or completes the optional GitHub flow)
//  2. Server issues a signed JWT carrying the user's id and email
//  3. The browser keeps the token and sends it as "Authorization: Bearer <jwt>"
//  4. The Gate middleware verifies the token on every /api/secure request and
//     puts the Identity into the request context
//  5. Handlers read the Identity from context; they never verify tokens themselves
//
// Tokens are HS256 with claims {sub, email, iat, exp, iss:"writespace"}.
// Verification needs only the secret, never the database.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// tokenIssuer is stamped into every token and required on verification.
	tokenIssuer = "writespace"

	// DefaultTokenTTL is the lifetime of an issued token when none is configured.
	DefaultTokenTTL = 7 * 24 * time.Hour

	minSecretLength = 16
)

var (
	// ErrInvalidToken covers every verification failure except expiry:
	// bad signature, wrong algorithm, wrong issuer, malformed token, missing subject.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired is returned when the token was valid but its exp has passed.
	// It also matches ErrInvalidToken via errors.Is.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// TokenService signs and verifies session tokens with one HMAC secret.
// Rotating the secret invalidates every outstanding token; there is no
// per-token revocation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A zero ttl falls back to
// DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("auth: token TTL must be positive, got %s", ttl)
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Claims is the token payload: the user id in "sub" plus the email, so the
// Gate can build an Identity without a lookup.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TTL returns the lifetime applied by Issue.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the user that lives for the configured TTL.
func (s *TokenService) Issue(userID, email string) (string, error) {
	return s.IssueWithDuration(userID, email, s.ttl)
}

// IssueWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens (negative d).
func (s *TokenService) IssueWithDuration(userID, email string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}

	now := s.now()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify checks signature, algorithm (HS256 only), issuer and expiry, with
// no leeway, and returns the claims. Every failure wraps ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c, nil
}
