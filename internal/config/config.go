// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless   bool     `mapstructure:"headless" yaml:"headless"`
	ChromePath string   `mapstructure:"chrome_path" yaml:"chrome_path"`
	Args       []string `mapstructure:"args" yaml:"args"`
	Debug      bool     `mapstructure:"debug" yaml:"debug"`
}

// PortalConfig identifies the institutional portal the engine drives.
// Selectors and page markers are portal knowledge and live in internal/portal;
// only deployment-variable values belong here.
type PortalConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// ScraperConfig tunes the orchestrator's timing behavior.
type ScraperConfig struct {
	// AssignmentTimeout bounds the short pipeline; the timetable pipeline has
	// far more hops and gets the full watchdog duration.
	AssignmentTimeout time.Duration `mapstructure:"assignment_timeout" yaml:"assignment_timeout"`
	TimetableTimeout  time.Duration `mapstructure:"timetable_timeout" yaml:"timetable_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	LoginPollBudget   int           `mapstructure:"login_poll_budget" yaml:"login_poll_budget"`
	UnknownPageBudget int           `mapstructure:"unknown_page_budget" yaml:"unknown_page_budget"`
}

// StorageConfig holds the result store connection details.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "unifetch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// Browser defaults
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.debug", false)

	// Portal defaults
	v.SetDefault("portal.base_url", "https://portal.example.ac.jp/campusweb")

	// Scraper defaults
	v.SetDefault("scraper.assignment_timeout", 45*time.Second)
	v.SetDefault("scraper.timetable_timeout", 120*time.Second)
	v.SetDefault("scraper.poll_interval", 250*time.Millisecond)
	v.SetDefault("scraper.settle_delay", 800*time.Millisecond)
	v.SetDefault("scraper.login_poll_budget", 10)
	v.SetDefault("scraper.unknown_page_budget", 3)

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.url", "")
}

// Load reads configuration from the given file (or the default search path
// when cfgFile is empty), layered over defaults and UNIFETCH_* env vars.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".unifetch"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("UNIFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
