package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Payments PaymentsConfig
	Geocoder GeocoderConfig
	Mail     MailConfig
	Media    MediaConfig
	Formance FormanceConfig
	Feed     FeedConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	SeedDemoData    bool
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Address         string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PaymentsConfig holds payment processor settings
type PaymentsConfig struct {
	StripeKey      string
	Currency       string
	RequestTimeout time.Duration
}

type GeocoderConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// MailConfig holds the SMTP relay used for account creation links
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	LinkBase string
}

type MediaConfig struct {
	Bucket string
	Region string
	Prefix string
}

// FormanceConfig holds the optional ledger mirror settings; an empty
// URL disables mirroring.
type FormanceConfig struct {
	URL          string
	ClientID     string
	ClientSecret string
	Ledger       string
}

type FeedConfig struct {
	PageSize  int
	CacheSize int
}
