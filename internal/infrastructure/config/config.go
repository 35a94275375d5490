package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for ringclient.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Contacts  ContactsConfig  `yaml:"contacts"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Video     VideoConfig     `yaml:"video"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ClientConfig identifies this client instance.
type ClientConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ContactsConfig selects the contact collections registered at startup.
type ContactsConfig struct {
	// VCardDir is the root of the vCard directory collection. Empty disables it.
	VCardDir string `yaml:"vcard_dir"`

	// LoadOnStart loads every contact collection after registration.
	LoadOnStart bool `yaml:"load_on_start"`

	AddressBook AddressBookConfig `yaml:"address_book"`
}

// AddressBookConfig controls the SQLite address-book collection.
type AddressBookConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DaemonConfig describes how the telephony daemon is reached on the bus.
type DaemonConfig struct {
	// Enabled connects to the daemon. When false the client runs without
	// video control and an empty device roster.
	Enabled bool `yaml:"enabled"`

	// TopicPrefix is the root of the daemon's topics.
	TopicPrefix string `yaml:"topic_prefix"`

	// RequestTimeout bounds waits for the daemon's retained state, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// Binary, when set, is launched and supervised by the client.
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`

	// RestartOnFailure relaunches the daemon binary after an unexpected exit.
	RestartOnFailure bool `yaml:"restart_on_failure"`

	// MaxRestarts limits relaunches. 0 means unlimited.
	MaxRestarts int `yaml:"max_restarts"`
}

// VideoConfig contains renderer settings.
type VideoConfig struct {
	// Worker runs renderers on a dedicated goroutine.
	Worker bool `yaml:"worker"`

	// BufferSize is the initial frame buffer size in bytes; 0 uses the default.
	BufferSize int `yaml:"buffer_size"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APIAuthConfig protects the API with a passphrase exchanged for JWTs.
type APIAuthConfig struct {
	Enabled bool `yaml:"enabled"`

	// PassphraseHash is an Argon2id PHC string ("ringclient hash-passphrase").
	PassphraseHash string `yaml:"passphrase_hash"`

	// JWTSecret signs access tokens.
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is the access token lifetime in minutes.
	TokenTTL int `yaml:"token_ttl"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RINGCLIENT_SECTION_KEY
// For example: RINGCLIENT_DATABASE_PATH, RINGCLIENT_CONTACTS_VCARD_DIR
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied, for running without a config file.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			ID:   "ringclient-001",
			Name: "Ring client",
		},
		Contacts: ContactsConfig{
			LoadOnStart: true,
			AddressBook: AddressBookConfig{
				Enabled: true,
				Name:    "Address book",
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/ringclient.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ringclient",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Daemon: DaemonConfig{
			Enabled:          true,
			TopicPrefix:      "ring/daemon",
			RequestTimeout:   2,
			RestartOnFailure: true,
			MaxRestarts:      5,
		},
		Video: VideoConfig{
			Worker: true,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				TokenTTL: 60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RINGCLIENT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Contacts
	if v := os.Getenv("RINGCLIENT_CONTACTS_VCARD_DIR"); v != "" {
		cfg.Contacts.VCardDir = v
	}

	// Database
	if v := os.Getenv("RINGCLIENT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("RINGCLIENT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RINGCLIENT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RINGCLIENT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Daemon
	if v := os.Getenv("RINGCLIENT_DAEMON_TOPIC_PREFIX"); v != "" {
		cfg.Daemon.TopicPrefix = v
	}
	if v := os.Getenv("RINGCLIENT_DAEMON_BINARY"); v != "" {
		cfg.Daemon.Binary = v
	}

	// API
	if v := os.Getenv("RINGCLIENT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RINGCLIENT_API_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}

	// InfluxDB
	if v := os.Getenv("RINGCLIENT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("RINGCLIENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Client.ID == "" {
		errs = append(errs, "client.id is required")
	}

	if c.Contacts.AddressBook.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when contacts.address_book is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Daemon.Enabled {
		if c.Daemon.TopicPrefix == "" {
			errs = append(errs, "daemon.topic_prefix is required")
		} else if strings.ContainsAny(c.Daemon.TopicPrefix, "+#") || strings.HasSuffix(c.Daemon.TopicPrefix, "/") {
			errs = append(errs, "daemon.topic_prefix must not contain wildcards or end with /")
		}
		if c.Daemon.RequestTimeout < 1 {
			errs = append(errs, "daemon.request_timeout must be at least 1 second")
		}
		if c.Daemon.MaxRestarts < 0 {
			errs = append(errs, "daemon.max_restarts must not be negative")
		}
	}

	if c.Video.BufferSize < 0 {
		errs = append(errs, "video.buffer_size must not be negative")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.API.Enabled && c.API.Auth.Enabled {
		if c.API.Auth.PassphraseHash == "" {
			errs = append(errs, "api.auth.passphrase_hash is required when api.auth is enabled")
		}
		if len(c.API.Auth.JWTSecret) < 32 {
			errs = append(errs, "api.auth.jwt_secret must be at least 32 characters")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the API access token lifetime as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.API.Auth.TokenTTL) * time.Minute
}

// GetDaemonTimeout returns the daemon request timeout as a Duration.
func (c *Config) GetDaemonTimeout() time.Duration {
	return time.Duration(c.Daemon.RequestTimeout) * time.Second
}
