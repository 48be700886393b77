package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wildwatch/wildwatch-server/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	NATS      NATSConfig      `yaml:"nats"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig represents server identity
type ServerConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Production reports whether internal error detail must be withheld
func (s ServerConfig) Production() bool {
	return s.Environment == "production"
}

// APIConfig represents the REST listener
type APIConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	CORSOrigins     []string `yaml:"cors_origins"`
	UploadRateLimit int      `yaml:"upload_rate_limit"` // uploads per minute per client IP
}

// Addr returns host:port
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// StoreConfig holds the two store credentials. The gateway is configured
// only when both are present.
type StoreConfig struct {
	URL             string                  `yaml:"url"`
	Key             string                  `yaml:"key"`
	MaxOpenConns    int                     `yaml:"max_open_conns"`
	MaxIdleConns    int                     `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration           `yaml:"conn_max_lifetime"`
	Breaker         storage.BreakerSettings `yaml:"breaker"`
}

// Configured reports whether both credentials are set
func (s StoreConfig) Configured() bool {
	return s.URL != "" && s.Key != ""
}

// Pool returns the connection pool options
func (s StoreConfig) Pool() storage.PoolOptions {
	return storage.PoolOptions{
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
	}
}

// UploadsConfig represents photo storage
type UploadsConfig struct {
	Dir          string    `yaml:"dir"`
	PublicPrefix string    `yaml:"public_prefix"`
	MaxBytes     int64     `yaml:"max_bytes"`
	GCS          GCSConfig `yaml:"gcs"`
}

// GCSConfig selects the Cloud Storage blob store when Bucket is set
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	ClientID          string        `yaml:"client_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// MQTTConfig represents the sensor status broker
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"` // prefix; devices publish to <topic>/<device_id>/status
	QoS      byte   `yaml:"qos"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	AnalyticsTTL time.Duration `yaml:"analytics_ttl"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DashboardConfig represents the dashboard agent
type DashboardConfig struct {
	APIURL               string        `yaml:"api_url"`
	Listen               string        `yaml:"listen"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	RespondFallbackDelay time.Duration `yaml:"respond_fallback_delay"`
	SettingsDir          string        `yaml:"settings_dir"`
	Production           bool          `yaml:"production"`
}

// DefaultCORSOrigins are the local development origins allowed when none are configured
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:8080",
	"http://localhost:8081",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
	"http://127.0.0.1:8080",
	"http://127.0.0.1:8081",
}

// Default returns a configuration that runs entirely in fallback mode
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnvOverrides()
	cfg.setDefaults()
	return cfg
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply environment overrides
	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STORE_URL"); v != "" {
		c.Store.URL = v
	}

	if v := os.Getenv("STORE_KEY"); v != "" {
		c.Store.Key = v
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		c.MQTT.Broker = broker
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		c.Redis.Addr = redisAddr
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		c.Server.Environment = env
	}

	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		c.Uploads.Dir = dir
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.API.CORSOrigins = splitList(origins)
	}

	if apiURL := os.Getenv("API_URL"); apiURL != "" {
		c.Dashboard.APIURL = apiURL
	}
}

// setDefaults fills every zero value that has a sensible default
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "wildwatch"
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}

	if c.API.Port == 0 {
		c.API.Port = 4000
	}
	if len(c.API.CORSOrigins) == 0 {
		c.API.CORSOrigins = append([]string(nil), DefaultCORSOrigins...)
	}
	if c.API.UploadRateLimit == 0 {
		c.API.UploadRateLimit = 30
	}

	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = 10
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = 5
	}
	if c.Store.ConnMaxLifetime == 0 {
		c.Store.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Store.Breaker.Name == "" {
		c.Store.Breaker.Name = "store"
	}

	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.PublicPrefix == "" {
		c.Uploads.PublicPrefix = "/uploads"
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = 5 << 20
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "wildwatch"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "wildwatch-ingest"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "sensors"
	}

	if c.Redis.AnalyticsTTL == 0 {
		c.Redis.AnalyticsTTL = time.Minute
	}

	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "wildwatch"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Dashboard.APIURL == "" {
		c.Dashboard.APIURL = "http://localhost:4000"
	}
	if c.Dashboard.Listen == "" {
		c.Dashboard.Listen = ":8090"
	}
	if c.Dashboard.PollInterval == 0 {
		c.Dashboard.PollInterval = 30 * time.Second
	}
	if c.Dashboard.RespondFallbackDelay == 0 {
		c.Dashboard.RespondFallbackDelay = time.Second
	}
	if c.Dashboard.SettingsDir == "" {
		c.Dashboard.SettingsDir = "data/settings"
	}
}

func (c *Config) validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d", c.API.Port)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos: %d", c.MQTT.QoS)
	}
	if c.Uploads.MaxBytes < 0 {
		return fmt.Errorf("invalid uploads max_bytes: %d", c.Uploads.MaxBytes)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
