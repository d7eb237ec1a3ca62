package config

import (
	"strings"
	"testing"

	"github.com/ridopark/jonbu-patterns/internal/engine"
)

func validConfig() Config {
	return Config{
		Environment: "development",
		Server:      ServerConfig{HTTPPort: 8080},
		Database:    DatabaseConfig{Host: "localhost"},
		Auth:        AuthConfig{Secret: "", Issuer: "jonbu-patterns"},
		Analysis:    engine.DefaultConfiguration(),
	}
}

func TestValidateRejectsMissingHTTPPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTPPort = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when the HTTP port is unset")
	}
}

func TestValidateRejectsMissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when the database host is unset")
	}
}

func TestValidateRequiresAuthSecretInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "production"
	cfg.Auth.Secret = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected production to require a non-empty auth secret")
	}

	cfg.Auth.Secret = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected a configured secret to satisfy production validation, got %v", err)
	}
}

func TestValidateAllowsEmptyAuthSecretInDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "development"
	cfg.Auth.Secret = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected development to tolerate an empty auth secret, got %v", err)
	}
}

func TestValidateDelegatesToAnalysisConfiguration(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.Sensitivity.GeometricPatterns = 5.0 // out of [0,1]

	if err := cfg.Validate(); err == nil {
		t.Error("expected an invalid nested engine.Configuration to fail validation")
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "supersecret"
	cfg.Redis.Password = "anothersecret"
	cfg.Auth.Secret = "jwt-signing-key"

	rendered := cfg.String()

	for _, secret := range []string{"supersecret", "anothersecret", "jwt-signing-key"} {
		if strings.Contains(rendered, secret) {
			t.Errorf("expected String() to mask %q, but it appeared in output: %s", secret, rendered)
		}
	}
}
