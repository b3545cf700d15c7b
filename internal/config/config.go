// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/hitoshi/citary/internal/security"
	"github.com/hitoshi/citary/internal/token"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Token
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn string        `env:"JWT_EXPIRES_IN" envDefault:"2h"`
	TokenTTL     time.Duration `env:"-"`

	// OAuth
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `env:"GOOGLE_REDIRECT_URL"`
	GoogleAuthURL      string        `env:"GOOGLE_AUTH_URL"`
	GoogleTokenURL     string        `env:"GOOGLE_TOKEN_URL"`
	GoogleUserInfoURL  string        `env:"GOOGLE_USERINFO_URL"`
	OAuthTimeout       time.Duration `env:"OAUTH_TIMEOUT" envDefault:"10s"`

	// Mail
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@citary.local"`

	// VerificationTTL はメール確認トークンの有効期間。
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"24h"`

	// Rate Limit (1分あたりのリクエスト数)
	RateLimitAuth int `env:"RATE_LIMIT_AUTH" envDefault:"20"`
	RateLimitAPI  int `env:"RATE_LIMIT_API" envDefault:"120"`

	// Worker
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	// Server
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
}

// requiredVars はserve/workerの起動に必須の環境変数。
var requiredVars = []struct {
	name  string
	value func(*Config) string
}{
	{"DATABASE_URL", func(c *Config) string { return c.DatabaseURL }},
	{"JWT_SECRET", func(c *Config) string { return c.JWTSecret }},
	{"GOOGLE_CLIENT_ID", func(c *Config) string { return c.GoogleClientID }},
	{"GOOGLE_CLIENT_SECRET", func(c *Config) string { return c.GoogleClientSecret }},
	{"GOOGLE_REDIRECT_URL", func(c *Config) string { return c.GoogleRedirectURL }},
	{"BASE_URL", func(c *Config) string { return c.BaseURL }},
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	var missing []string
	for _, v := range requiredVars {
		if strings.TrimSpace(v.value(cfg)) == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	ttl, ok := token.ParseTTL(cfg.JWTExpiresIn)
	if !ok {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %q", cfg.JWTExpiresIn)
	}
	cfg.TokenTTL = ttl

	// 上書きされたIdPエンドポイントは外部公開のhttpsのみ許可する
	overrides := map[string]string{
		"GOOGLE_AUTH_URL":     cfg.GoogleAuthURL,
		"GOOGLE_TOKEN_URL":    cfg.GoogleTokenURL,
		"GOOGLE_USERINFO_URL": cfg.GoogleUserInfoURL,
	}
	for name, u := range overrides {
		if u == "" {
			continue
		}
		if err := security.ValidateEndpoint(u); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return cfg, nil
}

// LoadDatabaseURL はmigrateコマンド用にDATABASE_URLのみを読み込む。
func LoadDatabaseURL() (string, error) {
	var raw struct {
		DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	}
	if err := env.Parse(&raw); err != nil {
		return "", fmt.Errorf("parse env: %w", err)
	}
	return raw.DatabaseURL, nil
}

// MailEnabled はSMTP送信が設定されているかを返す。
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// VerifyEmailURL はメール確認リンクのベースURLを返す。トークンは末尾に連結する。
func (c *Config) VerifyEmailURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/verify-email?token="
}

// CookieSecure はOAuth state Cookieにsecure属性を付与するかを返す。
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}
