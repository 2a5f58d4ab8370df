package config

import "time"

// ServerConfig is the root configuration for the trading simulator server.
type ServerConfig struct {
	Server  HTTPConfig    `yaml:"server"`
	Quote   QuoteConfig   `yaml:"quote"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Events  EventsConfig  `yaml:"events"`
}

// HTTPConfig holds the listener settings for the HTTP boundary.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// QuoteConfig holds the external quote provider settings.
type QuoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"` // provider API key, usually ${FMP_API_KEY}
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects and configures the backing store.
type StorageConfig struct {
	Driver   string       `yaml:"driver"` // "postgres", "sqlite", or "memory"
	Postgres DBConfig     `yaml:"postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// DBConfig holds a PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the on-disk SQLite database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds session and password-hashing settings.
type AuthConfig struct {
	BcryptCost int           `yaml:"bcrypt_cost"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// EventsConfig holds the optional Kafka trade-event publisher settings.
// An empty broker list disables publishing.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}
