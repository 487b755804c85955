// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is built once at
// startup and never mutated by request handling.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	Server        ServerConfig             `mapstructure:"server"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Partners      map[string]PartnerConfig `mapstructure:"partners"`
	Notifications NotificationConfig       `mapstructure:"notifications"`
	Logging       LoggingConfig            `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // seconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Partner Integration Config ---

// AuthMethod enumerates the credential exchange schemes partners use.
type AuthMethod string

const (
	AuthOAuth2    AuthMethod = "oauth2"  // client-credential exchange
	AuthBasic     AuthMethod = "basic"   // username/password session exchange
	AuthSignedJWT AuthMethod = "jwt"     // pre-shared signing key
	AuthAPIKey    AuthMethod = "api_key" // static key only
)

// FallbackMethod enumerates the submission paths used when direct
// integration is unavailable.
type FallbackMethod string

const (
	FallbackNone   FallbackMethod = ""
	FallbackEmail  FallbackMethod = "email"
	FallbackPortal FallbackMethod = "portal_redirect"
	FallbackManual FallbackMethod = "manual"
)

// PartnerConfig is the integration record for one partner institution.
// A disabled or absent record must never reach a partner adapter.
type PartnerConfig struct {
	Code        string         `mapstructure:"code"`
	Enabled     bool           `mapstructure:"enabled"`
	BaseURL     string         `mapstructure:"base_url"`
	AuthMethod  AuthMethod     `mapstructure:"auth_method"`
	Credentials Credentials    `mapstructure:"credentials"`
	Features    FeatureFlags   `mapstructure:"features"`
	Fallback    FallbackConfig `mapstructure:"fallback"`
	Webhook     WebhookConfig  `mapstructure:"webhook"`
	Timeout     int            `mapstructure:"timeout"` // milliseconds, per partner call
}

type Credentials struct {
	APIKey       string `mapstructure:"api_key"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	SigningKey   string `mapstructure:"signing_key"`
}

type FeatureFlags struct {
	DirectSubmission bool `mapstructure:"direct_submission"`
	StatusTracking   bool `mapstructure:"status_tracking"`
	DocumentUpload   bool `mapstructure:"document_upload"`
	RealTimeUpdates  bool `mapstructure:"real_time_updates"`
}

type FallbackConfig struct {
	Method          FallbackMethod `mapstructure:"method"`
	AdmissionsEmail string         `mapstructure:"admissions_email"`
	PortalURL       string         `mapstructure:"portal_url"`
}

type WebhookConfig struct {
	Secret          string `mapstructure:"secret"`
	SignatureHeader string `mapstructure:"signature_header"`
	VerifyToken     string `mapstructure:"verify_token"`
}

// --- Notification Config ---

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
