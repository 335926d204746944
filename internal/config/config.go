package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration shared by every
// pipeline binary. Each process reads only its own section plus the
// addresses of the components it dials.
type Config struct {
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Storage    StorageConfig    `yaml:"storage"`
	Worker     WorkerConfig     `yaml:"worker"`
	Requester  RequesterConfig  `yaml:"requester"`
	Log        LogConfig        `yaml:"log"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// DispatcherConfig contains the dispatcher's bind address. The same
// HTTP listener serves the client-facing request endpoint and the
// worker-facing topic subscribe endpoint.
type DispatcherConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig contains the storage engine's bind address and the
// embedded ledger store location.
type StorageConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`
}

// WorkerConfig contains worker settings
type WorkerConfig struct {
	ForwardTimeoutMs   int `yaml:"forward_timeout_ms"`
	ReconnectBackoffMs int `yaml:"reconnect_backoff_ms"`
}

// RequesterConfig contains the batch client's retry and pacing settings
type RequesterConfig struct {
	TimeoutMs   int `yaml:"timeout_ms"`
	MaxAttempts int `yaml:"max_attempts"`
	IntervalMs  int `yaml:"interval_ms"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	OverdueLoanReport string `yaml:"overdue_loan_report"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is supplied,
// matching config/config.dev.yaml.
func Default() *Config {
	cfg := &Config{
		Dispatcher: DispatcherConfig{Host: "127.0.0.1", Port: 5555},
		Storage:    StorageConfig{Host: "127.0.0.1", Port: 5570, DBPath: "library.db"},
		Worker:     WorkerConfig{ForwardTimeoutMs: 4000, ReconnectBackoffMs: 500},
		Requester:  RequesterConfig{TimeoutMs: 2000, MaxAttempts: 3, IntervalMs: 200},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
	cfg.overrideWithEnv()
	return cfg
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DISPATCHER_HOST"); val != "" {
		c.Dispatcher.Host = val
	}
	if val := os.Getenv("DISPATCHER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Dispatcher.Port)
	}
	if val := os.Getenv("STORAGE_HOST"); val != "" {
		c.Storage.Host = val
	}
	if val := os.Getenv("STORAGE_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Storage.Port)
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.Storage.DBPath = val
	}
	if val := os.Getenv("FORWARD_TIMEOUT_MS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Worker.ForwardTimeoutMs)
	}
	if val := os.Getenv("REQUEST_TIMEOUT_MS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Requester.TimeoutMs)
	}
	if val := os.Getenv("MAX_ATTEMPTS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Requester.MaxAttempts)
	}
	if val := os.Getenv("SEND_INTERVAL_MS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Requester.IntervalMs)
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Defaults for anything the file left out
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Worker.ForwardTimeoutMs == 0 {
		c.Worker.ForwardTimeoutMs = 4000
	}
	if c.Worker.ReconnectBackoffMs == 0 {
		c.Worker.ReconnectBackoffMs = 500
	}
	if c.Requester.TimeoutMs == 0 {
		c.Requester.TimeoutMs = 2000
	}
	if c.Requester.MaxAttempts == 0 {
		c.Requester.MaxAttempts = 3
	}
	if c.Requester.IntervalMs == 0 {
		c.Requester.IntervalMs = 200
	}
	if c.Scheduler.OverdueLoanReport == "" {
		c.Scheduler.OverdueLoanReport = "0 0 * * * *" // hourly, on the hour
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dispatcher.Port <= 0 || c.Dispatcher.Port > 65535 {
		return fmt.Errorf("invalid dispatcher port: %d", c.Dispatcher.Port)
	}
	if c.Storage.Port <= 0 || c.Storage.Port > 65535 {
		return fmt.Errorf("invalid storage port: %d", c.Storage.Port)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage db_path is required")
	}
	if c.Requester.MaxAttempts <= 0 {
		return fmt.Errorf("requester max_attempts must be positive")
	}
	if c.Requester.TimeoutMs <= 0 {
		return fmt.Errorf("requester timeout_ms must be positive")
	}
	if c.Worker.ForwardTimeoutMs <= 0 {
		return fmt.Errorf("worker forward_timeout_ms must be positive")
	}
	return nil
}

// DispatcherAddr returns the dispatcher bind address
func (c *Config) DispatcherAddr() string {
	return fmt.Sprintf("%s:%d", c.Dispatcher.Host, c.Dispatcher.Port)
}

// StorageAddr returns the storage engine bind address
func (c *Config) StorageAddr() string {
	return fmt.Sprintf("%s:%d", c.Storage.Host, c.Storage.Port)
}

// RequestURL is the client-facing synchronous request endpoint.
func (c *Config) RequestURL() string {
	return fmt.Sprintf("http://%s/requests", c.DispatcherAddr())
}

// SubscribeURL is the worker-facing publish endpoint for one topic.
func (c *Config) SubscribeURL(topic string) string {
	return fmt.Sprintf("http://%s/subscribe/%s", c.DispatcherAddr(), topic)
}

// ApplyURL is the storage engine's synchronous request endpoint.
func (c *Config) ApplyURL() string {
	return fmt.Sprintf("http://%s/apply", c.StorageAddr())
}
