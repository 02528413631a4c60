package identity

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// ProviderCredentials is an OAuth client id/secret pair plus callback.
// A zero value means the provider is absent and will not be registered.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Present reports whether the provider has usable configuration.
func (c ProviderCredentials) Present() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config enumerates everything the process reads from the environment,
// resolved exactly once at startup. Optional sections left empty disable
// the matching feature; mandatory sections fail LoadConfig.
type Config struct {
	HTTPAddr string

	Session struct {
		Name   string
		Secret string
		TTL    time.Duration
	}

	Database struct {
		DSN string
	}

	Google       ProviderCredentials
	GoogleMobile struct {
		ClientID string
	}
	Discord ProviderCredentials

	Gateway struct {
		BotToken string
		GuildID  string
	}

	Redirects struct {
		Success string
		Failure string
	}

	Mail struct {
		Host        string
		Port        int
		Username    string
		Password    string
		From        string
		OpsMirror   string
		Suppression []string
	}

	Tokens struct {
		SigningKey string
		Issuer     string
	}
}

// LoadConfig resolves the configuration from the environment. Optional
// provider credentials may be absent; the session secret and database DSN
// are mandatory and their absence is a startup failure.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")

	cfg.Session.Name = envOr("SESSION_NAME", "taskvine.sid")
	cfg.Session.Secret = os.Getenv("SESSION_SECRET")
	cfg.Session.TTL = envDurationOr("SESSION_TTL", 7*24*time.Hour)

	cfg.Database.DSN = os.Getenv("DATABASE_URL")

	cfg.Google = ProviderCredentials{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		CallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
	}
	cfg.GoogleMobile.ClientID = os.Getenv("GOOGLE_MOBILE_CLIENT_ID")

	cfg.Discord = ProviderCredentials{
		ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		CallbackURL:  os.Getenv("DISCORD_CALLBACK_URL"),
	}

	cfg.Gateway.BotToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.Gateway.GuildID = os.Getenv("DISCORD_GUILD_ID")

	cfg.Redirects.Success = os.Getenv("AUTH_SUCCESS_REDIRECT")
	cfg.Redirects.Failure = os.Getenv("AUTH_FAILURE_REDIRECT")

	cfg.Mail.Host = os.Getenv("SMTP_HOST")
	cfg.Mail.Port = envIntOr("SMTP_PORT", 587)
	cfg.Mail.Username = os.Getenv("SMTP_USERNAME")
	cfg.Mail.Password = os.Getenv("SMTP_PASSWORD")
	cfg.Mail.From = envOr("MAIL_FROM", "no-reply@taskvine.app")
	cfg.Mail.OpsMirror = os.Getenv("MAIL_OPS_MIRROR")
	if raw := os.Getenv("MAIL_SUPPRESSION_LIST"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.Mail.Suppression = append(cfg.Mail.Suppression, addr)
			}
		}
	}

	cfg.Tokens.SigningKey = envOr("TOKEN_SIGNING_KEY", cfg.Session.Secret)
	cfg.Tokens.Issuer = envOr("TOKEN_ISSUER", "taskvine")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the mandatory sections. Local login and the session
// engine cannot run without them, so the process should not serve traffic.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET is required", errors.CategoryOperation).
			WithCode(errors.CodeInternal)
	}

	if c.Database.DSN == "" {
		return errors.New("DATABASE_URL is required", errors.CategoryOperation).
			WithCode(errors.CodeInternal)
	}

	return nil
}

// GatewayConfigured reports whether the guild membership gateway can run.
func (c *Config) GatewayConfigured() bool {
	return c.Gateway.BotToken != "" && c.Gateway.GuildID != ""
}

// MailConfigured reports whether SMTP delivery can run.
func (c *Config) MailConfigured() bool {
	return c.Mail.Host != ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
