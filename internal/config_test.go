package internal

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Site.Me = "https://site.tld"
	cfg.GitHub.User = "user"
	cfg.GitHub.Repo = "site"
	cfg.GitHub.Token = "tok"
	return cfg
}

func TestConfigValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigValidate_MissingSite(t *testing.T) {
	cfg := validConfig()
	cfg.Site.Me = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing site.me")
	}
}

func TestConfigValidate_GitHubRequiredOutsideDebug(t *testing.T) {
	cfg := validConfig()
	cfg.GitHub.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing github token")
	}

	cfg.App.Debug = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("debug mode should not require github settings: %v", err)
	}
}

func TestConfigValidate_AuthModes(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Mode = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty mode should normalise to disabled: %v", err)
	}
	if cfg.Auth.Mode != AuthModeDisabled {
		t.Errorf("mode = %q after validation", cfg.Auth.Mode)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("disabled mode must not report auth enabled")
	}

	cfg.Auth.Mode = AuthModeIndieAuth
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token_endpoint") {
		t.Errorf("indieauth without endpoint: err = %v", err)
	}

	cfg.Auth.TokenEndpoint = "https://tokens.example/verify"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("indieauth mode should report auth enabled")
	}

	cfg.Auth.Mode = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown auth mode")
	}
}

func TestHTTPConfigValidate(t *testing.T) {
	cfg := validConfig()
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing port")
	}
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}
