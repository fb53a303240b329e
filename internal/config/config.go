// Package config provides configuration management for wordgate with Viper
// integration: defaults, environment bindings, file watching, and atomic
// in-place updates from the settings command surface.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// File permission constants
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Config represents the complete configuration for wordgate.
type Config struct {
	Blocking  BlockingConfig  `mapstructure:"blocking" yaml:"blocking" json:"blocking"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database" json:"database"`
	API       APIConfig       `mapstructure:"api" yaml:"api" json:"api"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging" json:"logging"`
	Questions QuestionsConfig `mapstructure:"questions" yaml:"questions" json:"questions"`
}

// FirstSightPolicy controls whether a newly observed tab owes a question
// immediately or only after a full interval has elapsed.
type FirstSightPolicy string

const (
	FirstSightWait      FirstSightPolicy = "wait"
	FirstSightImmediate FirstSightPolicy = "immediate"
)

// BlockingConfig holds the scheduling and site-list configuration.
// It is replaced atomically by Settings Sync; all other components read it
// through Manager.Get snapshots.
type BlockingConfig struct {
	PeriodicInterval time.Duration    `mapstructure:"periodic_interval" yaml:"periodic_interval" json:"periodic_interval"`
	PenaltyDuration  time.Duration    `mapstructure:"penalty_duration" yaml:"penalty_duration" json:"penalty_duration"`
	Mode             string           `mapstructure:"mode" yaml:"mode" json:"mode"`
	SiteList         []string         `mapstructure:"site_list" yaml:"site_list" json:"site_list"`
	FirstSight       FirstSightPolicy `mapstructure:"first_sight" yaml:"first_sight" json:"first_sight"`
}

// DatabaseConfig holds sqlite-related configuration.
type DatabaseConfig struct {
	Path           string        `mapstructure:"path" yaml:"path" json:"path"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections" json:"max_connections"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout" yaml:"query_timeout" json:"query_timeout"`
}

// APIConfig holds the local command-surface listener configuration.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" json:"listen_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// QuestionsConfig selects the question provider.
type QuestionsConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider" json:"provider"`
}

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	v := viper.New()

	v.SetConfigName("config")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("WORDGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"blocking.periodic_interval": "BLOCKING_PERIODIC_INTERVAL",
		"blocking.penalty_duration":  "BLOCKING_PENALTY_DURATION",
		"blocking.mode":              "BLOCKING_MODE",
		"blocking.first_sight":       "BLOCKING_FIRST_SIGHT",
		"database.path":              "DATABASE_PATH",
		"database.max_connections":   "DATABASE_MAX_CONNECTIONS",
		"database.query_timeout":     "DATABASE_QUERY_TIMEOUT",
		"api.listen_addr":            "API_LISTEN_ADDR",
		"logging.level":              "LOG_LEVEL",
		"logging.format":             "LOG_FORMAT",
		"questions.provider":         "QUESTIONS_PROVIDER",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "WORDGATE_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	return &Manager{
		viper:     v,
		callbacks: make([]func(*Config), 0),
	}, nil
}

// Load loads the configuration from file and environment variables.
// A missing config file is created from defaults along with its JSON schema.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if err := m.createDefaultConfig(); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Database.Path == "" {
		dbPath, err := GetDatabaseFile()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}
		config.Database.Path = dbPath
	}

	normalize(config)
	m.config = config
	return nil
}

// Get returns a snapshot copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return DefaultConfig()
	}
	cfg := *m.config
	cfg.Blocking.SiteList = append([]string(nil), m.config.Blocking.SiteList...)
	return cfg
}

// OnChange registers a callback invoked after every successful reload or
// in-process settings update. Callbacks receive a private copy.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch starts watching the config file for external edits.
func (m *Manager) Watch() {
	m.mu.Lock()
	if m.watching {
		m.mu.Unlock()
		return
	}
	m.watching = true
	m.mu.Unlock()

	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(_ fsnotify.Event) {
		if err := m.reload(); err != nil {
			// Keep serving the last good config; the next edit retries.
			return
		}
	})
}

func (m *Manager) reload() error {
	m.mu.Lock()
	if err := m.viper.ReadInConfig(); err != nil {
		m.mu.Unlock()
		return err
	}
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		m.mu.Unlock()
		return err
	}
	if config.Database.Path == "" && m.config != nil {
		config.Database.Path = m.config.Database.Path
	}
	normalize(config)
	m.config = config
	callbacks := append([]func(*Config){}, m.callbacks...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		snapshot := *config
		fn(&snapshot)
	}
	return nil
}

// UpdateBlocking replaces the blocking section atomically, persists it to
// the config file, and notifies change callbacks.
func (m *Manager) UpdateBlocking(blocking BlockingConfig) error {
	m.mu.Lock()
	if m.config == nil {
		m.mu.Unlock()
		return errors.New("configuration not loaded")
	}
	config := *m.config
	config.Blocking = blocking
	normalize(&config)

	m.viper.Set("blocking.periodic_interval", config.Blocking.PeriodicInterval)
	m.viper.Set("blocking.penalty_duration", config.Blocking.PenaltyDuration)
	m.viper.Set("blocking.mode", config.Blocking.Mode)
	m.viper.Set("blocking.site_list", config.Blocking.SiteList)
	m.viper.Set("blocking.first_sight", string(config.Blocking.FirstSight))

	m.config = &config
	callbacks := append([]func(*Config){}, m.callbacks...)
	writeErr := m.viper.WriteConfig()
	m.mu.Unlock()

	for _, fn := range callbacks {
		snapshot := config
		fn(&snapshot)
	}

	if writeErr != nil {
		// In-memory update already applied; persistence is best-effort.
		return fmt.Errorf("failed to write config file: %w", writeErr)
	}
	return nil
}
