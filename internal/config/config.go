// Package config loads the server configuration from the environment.
//
// CONFIG LOADING ORDER:
//  1. An optional .env file is read into the process environment
//     (variables that are already set win; .env never overrides them)
//  2. The environment is parsed into a typed Config struct; the `env` tags
//     name the variable and `envDefault` supplies the fallback
//  3. Validate checks the cross-field rules env tags can't express
//
// Any error aborts startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DBPath      string `env:"DB_PATH" envDefault:"data/writespace.db"`
	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"web/static"`

	// TrustProxy makes the server take the client address from
	// X-Forwarded-For / X-Real-IP. Only set it behind a proxy that overwrites
	// those headers; the auth rate limiter keys on that address.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// LogLevel accepts debug, info, warn or error (slog.Level text form).
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	Auth      AuthConfig
	RateLimit RateLimitConfig
	GitHub    GitHubConfig    `envPrefix:"GITHUB_"`
	Generator GeneratorConfig `envPrefix:"GENERATOR_"`
}

// AuthConfig controls token signing and password hashing.
type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
}

// RateLimitConfig throttles the register and login endpoints per client IP.
type RateLimitConfig struct {
	PerSecond float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	Burst     int     `env:"AUTH_RATE_BURST" envDefault:"10"`
}

// GitHubConfig enables the optional GitHub sign-in flow. It is off unless
// ClientID is set.
type GitHubConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// Enabled reports whether GitHub sign-in routes should be registered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != ""
}

// GeneratorConfig points at the text generation backend (an Ollama-compatible
// chat API). Generation is disabled unless BaseURL is set.
type GeneratorConfig struct {
	BaseURL       string        `env:"BASE_URL"`
	Model         string        `env:"MODEL" envDefault:"llama3.2"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"2m"`
	MaxConcurrent int           `env:"MAX_CONCURRENT" envDefault:"4"`
}

// Enabled reports whether a generator backend is configured.
func (g GeneratorConfig) Enabled() bool {
	return g.BaseURL != ""
}

// Addr returns the listen address, e.g. ":8080".
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads envFile (if it exists) and then parses the process environment.
// Pass "" to skip the .env step entirely.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return finish(cfg)
}

// FromMap parses configuration from an explicit variable map instead of the
// process environment. Tests use it to avoid touching os.Environ.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if cfg.GitHub.Enabled() && cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}
	cfg.Generator.BaseURL = strings.TrimSuffix(cfg.Generator.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the rules that struct tags can't express. All problems are
// reported together so one restart fixes them all.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.RateLimit.PerSecond <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT must be positive, got %g", c.RateLimit.PerSecond))
	}
	if c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("AUTH_RATE_BURST must be at least 1, got %d", c.RateLimit.Burst))
	}
	if c.GitHub.Enabled() && c.GitHub.ClientSecret == "" {
		errs = append(errs, errors.New("GITHUB_CLIENT_SECRET is required when GITHUB_CLIENT_ID is set"))
	}
	if c.Generator.Enabled() {
		if !strings.HasPrefix(c.Generator.BaseURL, "http://") && !strings.HasPrefix(c.Generator.BaseURL, "https://") {
			errs = append(errs, fmt.Errorf("GENERATOR_BASE_URL must be an http(s) URL, got %q", c.Generator.BaseURL))
		}
		if c.Generator.Model == "" {
			errs = append(errs, errors.New("GENERATOR_MODEL must not be empty"))
		}
		if c.Generator.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("GENERATOR_TIMEOUT must be positive, got %s", c.Generator.Timeout))
		}
		if c.Generator.MaxConcurrent < 1 {
			errs = append(errs, fmt.Errorf("GENERATOR_MAX_CONCURRENT must be at least 1, got %d", c.Generator.MaxConcurrent))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
