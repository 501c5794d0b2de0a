package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled  = "disabled"
	AuthModeIndieAuth = "indieauth"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Site   SiteConfig        `yaml:"site"`
	GitHub GitHubConfig      `yaml:"github"`
	Auth   AuthConfig        `yaml:"auth"`
	Mapbox MapboxConfig      `yaml:"mapbox"`
}

// Validate validates the configuration. The GitHub section is only required
// outside debug mode, where posts land in an in-memory store instead.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if !c.App.Debug {
		if err := c.GitHub.Validate(); err != nil {
			return err
		}
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Debug    bool       `yaml:"debug"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SyndicationTarget is one advertised syndication destination.
type SyndicationTarget struct {
	UID  string `yaml:"uid"`
	Name string `yaml:"name"`
}

// SiteConfig describes the published site and its content layout.
type SiteConfig struct {
	Me                string              `yaml:"me"`
	ContentDir        string              `yaml:"content_dir"`
	MediaDir          string              `yaml:"media_dir"`
	MediaEndpoint     string              `yaml:"media_endpoint"`
	FullDateFilenames bool                `yaml:"full_date_filenames"`
	PermanentDelete   bool                `yaml:"permanent_delete"`
	SyndicateTo       []SyndicationTarget `yaml:"syndicate_to"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Me, validation.Required),
	)
}

// GitHubConfig holds the content repository settings.
type GitHubConfig struct {
	User        string `yaml:"user"`
	Repo        string `yaml:"repo"`
	Branch      string `yaml:"branch"`
	Token       string `yaml:"token"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.Token, validation.Required),
	)
}

// AuthConfig holds token verification configuration.
//
// Mode controls how requests are authenticated:
//   - "disabled" (default): every request gets full scopes, local dev only.
//   - "indieauth": bearer tokens are verified against TokenEndpoint.
type AuthConfig struct {
	Mode          string `yaml:"mode"`
	TokenEndpoint string `yaml:"token_endpoint"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeIndieAuth)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeIndieAuth && c.TokenEndpoint == "" {
		return fmt.Errorf("auth: mode is %q but token_endpoint is empty", AuthModeIndieAuth)
	}
	return nil
}

// AuthEnabled returns true when token verification is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeIndieAuth
}

// MapboxConfig holds the optional static maps token. Without it checkins are
// published without map images.
type MapboxConfig struct {
	Token string `yaml:"token"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			ContentDir: "src",
			MediaDir:   "uploads",
		},
		GitHub: GitHubConfig{
			Branch: "main",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
