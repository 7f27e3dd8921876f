package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "identity", id), ANY package that knows the string
// can read or shadow your value. Using a package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the verified caller attached to a request by the Gate.
type Identity struct {
	UserID string
	Email  string
}

// WithIdentity returns a copy of ctx carrying id. The Gate is the only
// production caller; tests use it to build authenticated requests directly.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller from the request context.
//
// Returns (Identity{}, false) when the request never passed the Gate.
//
// Usage in handlers:
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // respond 401
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// gateError is the JSON body the Gate writes on rejection. It matches the
// envelope the handler package uses for every other error.
type gateError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Gate is a middleware that enforces bearer authentication on every path under
// prefix (the prefix itself included). Requests outside the prefix pass through
// untouched, with no identity attached.
//
// For protected paths:
//   - no Authorization header, a non-Bearer scheme or an empty token → 401 "Unauthorized"
//   - a token that fails verification (bad signature, expired, malformed) → 401 "Invalid token"
//   - a valid token → the Identity is stored in context and the request continues
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
//
// Mount the Gate once at the router root, not per route group.
func Gate(tokens *TokenService, prefix string, logger *slog.Logger) func(http.Handler) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !underPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				writeGateError(w, "Unauthorized", "unauthorized")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.Debug("rejected bearer token",
					"path", r.URL.Path,
					"expired", errors.Is(err, ErrTokenExpired),
					"error", err,
				)
				writeGateError(w, "Invalid token", "invalid_token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.Subject, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// underPrefix reports whether path is prefix itself or lives below it.
// "/api/securex" is NOT under "/api/secure".
func underPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively; an empty token counts as absent.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func writeGateError(w http.ResponseWriter, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="writespace"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(gateError{OK: false, Error: message, Code: code})
}
