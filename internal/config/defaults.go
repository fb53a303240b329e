package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Blocking: BlockingConfig{
			PeriodicInterval: 30 * time.Minute,
			PenaltyDuration:  30 * time.Second,
			Mode:             "blacklist",
			SiteList:         []string{},
			FirstSight:       FirstSightWait,
		},
		Database: DatabaseConfig{
			MaxConnections: 4,
			QueryTimeout:   5 * time.Second,
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:7829",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Questions: QuestionsConfig{
			Provider: "static",
		},
	}
}

func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("blocking.periodic_interval", defaults.Blocking.PeriodicInterval)
	m.viper.SetDefault("blocking.penalty_duration", defaults.Blocking.PenaltyDuration)
	m.viper.SetDefault("blocking.mode", defaults.Blocking.Mode)
	m.viper.SetDefault("blocking.site_list", defaults.Blocking.SiteList)
	m.viper.SetDefault("blocking.first_sight", string(defaults.Blocking.FirstSight))

	m.viper.SetDefault("database.max_connections", defaults.Database.MaxConnections)
	m.viper.SetDefault("database.query_timeout", defaults.Database.QueryTimeout)

	m.viper.SetDefault("api.listen_addr", defaults.API.ListenAddr)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)

	m.viper.SetDefault("questions.provider", defaults.Questions.Provider)
}

// createDefaultConfig writes a default config file and its JSON schema.
func (m *Manager) createDefaultConfig() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	configFile := filepath.Join(configDir, "config.yaml")

	if err := m.viper.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	m.viper.SetConfigFile(configFile)

	if err := GenerateSchemaFile(); err != nil {
		// Schema is a convenience for editors; its absence is not fatal.
		return nil
	}
	return nil
}

// normalize validates and canonicalizes fields in place, falling back to
// defaults for unusable values.
func normalize(c *Config) {
	defaults := DefaultConfig()

	switch strings.ToLower(c.Blocking.Mode) {
	case "blacklist", "whitelist":
		c.Blocking.Mode = strings.ToLower(c.Blocking.Mode)
	default:
		c.Blocking.Mode = defaults.Blocking.Mode
	}

	switch FirstSightPolicy(strings.ToLower(string(c.Blocking.FirstSight))) {
	case FirstSightWait, FirstSightImmediate:
		c.Blocking.FirstSight = FirstSightPolicy(strings.ToLower(string(c.Blocking.FirstSight)))
	default:
		c.Blocking.FirstSight = defaults.Blocking.FirstSight
	}

	if c.Blocking.PeriodicInterval <= 0 {
		c.Blocking.PeriodicInterval = defaults.Blocking.PeriodicInterval
	}
	if c.Blocking.PenaltyDuration <= 0 {
		c.Blocking.PenaltyDuration = defaults.Blocking.PenaltyDuration
	}

	cleaned := make([]string, 0, len(c.Blocking.SiteList))
	for _, s := range c.Blocking.SiteList {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	c.Blocking.SiteList = cleaned

	if c.Database.MaxConnections <= 0 {
		c.Database.MaxConnections = defaults.Database.MaxConnections
	}
	if c.Database.QueryTimeout <= 0 {
		c.Database.QueryTimeout = defaults.Database.QueryTimeout
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = defaults.API.ListenAddr
	}
	if c.Questions.Provider == "" {
		c.Questions.Provider = defaults.Questions.Provider
	}
}
