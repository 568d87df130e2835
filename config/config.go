package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AppConfig composes the domain-specific configuration from the files in this package.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library:
//   - auth.go: identity provider and dev-auth identity
//   - api.go: backend gateway, tenant claim and navigation tree
//   - redis.go: token mirror backend
//   - http.go: HTTP server and session cookie
//   - observability.go: metrics and logging
type AppConfig struct {
	// IsDev relaxes cookie security and enables debug logging.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth          AuthConfig
	API           APIConfig
	Session       SessionConfig
	Redis         RedisConfig `envPrefix:"REDIS_"`
	HTTP          HTTPConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call it after parsing and before Validate.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()
	c.Auth.Sanitize()
	c.API.Sanitize()
	c.Session.Sanitize()
	c.HTTP.Sanitize(c.IsDev)
	c.Observability.Sanitize()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidation(err)
	}
	if c.Session.Mirror == TokenMirrorRedis && strings.TrimSpace(c.Redis.URI) == "" &&
		!c.Redis.UseCluster && !c.Redis.UseSentinel {
		return errors.New("config: REDIS_URI is required when TOKEN_MIRROR=redis")
	}
	if c.Auth.Mode == AuthModeMock && !c.IsDev {
		return errors.New("config: AUTH_MODE=mock is only allowed in development (set DEV=true)")
	}
	return nil
}

func formatValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param()))
		case "url", "http_url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}
