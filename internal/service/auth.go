// Package service: authentication business logic.
//
// AuthService is the business logic layer for accounts. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register local accounts and log them in with email + password
//   - Orchestrate the GitHub OAuth callback: find or create the user, issue a token
//   - Keep login failures indistinguishable (no user enumeration)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/auth"
	"github.com/sakif/writespace/internal/model"
	"github.com/sakif/writespace/internal/repository"
)

// Account field limits.
const (
	MaxPasswordBytes = 72 // bcrypt input limit
	MaxNameLength    = 100
	MaxEmailLength   = 254
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - tokens     *auth.TokenService         → issue JWTs
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the caller
// can respond (or redirect) in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// normalizeEmail is the single email policy: surrounding whitespace is
// dropped and the address is lower-cased. Register, Login and the GitHub
// flow all go through it, so "A@X.com" and "a@x.com" are the same account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a local account and returns its public projection.
//
// The "email taken?" pre-check gives the common case a clean error. Two
// concurrent registrations for the same email can both pass it; the UNIQUE
// index then rejects one INSERT with ErrConflict, which is reported as the
// same DuplicateAccount error.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.PublicUser, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateAccount(email, password, name); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.DuplicateAccount()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.DuplicateAccount()
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	public := user.Public()
	return &public, nil
}

func validateAccount(email, password, name string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength || !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "email must be a valid email address")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	if name == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or fewer", MaxNameLength))
	}
	return nil
}

// Login verifies email + password and issues a token.
//
// USER ENUMERATION:
// Unknown email, an account with no password (GitHub-only) and a wrong
// password all return the exact same InvalidCredentials value. An attacker
// can't use this endpoint to learn which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// Profile returns the public projection of the user with the given id.
// The id comes from a verified token; a user deleted after the token was
// issued yields "User not found".
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.PublicUser, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("Unauthorized")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	public := user.Public()
	return &public, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
//  1. A user already linked to this GitHub id → log them in
//  2. Otherwise, if the GitHub email belongs to a local account → DuplicateAccount.
//     Linking automatically would let anyone who controls a GitHub account
//     with that address take over the local account.
//  3. Otherwise create a password-less account linked to the GitHub id
//
// WHAT THIS METHOD DOES NOT DO:
//   - It does NOT set cookies or redirect (that's the handler's job)
//   - It is NOT tied to Chi or any routing framework
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil || ghUser.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		// existing linked account
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, ghUser)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) createGitHubUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	email := normalizeEmail(ghUser.AccountEmail())

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.DuplicateAccount()
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	githubID := ghUser.ID
	user := &model.User{
		Email:    email,
		Name:     ghUser.DisplayName(),
		GitHubID: &githubID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.DuplicateAccount()
		}
		return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user registered via GitHub", slog.String("userID", user.ID))
	return user, nil
}

// CountUsers returns the number of accounts. Used by the health endpoint.
func (s *AuthService) CountUsers(ctx context.Context) (int, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/auth: counting users: %w", err)
	}
	return n, nil
}
