package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Quiet   bool `mapstructure:"quiet"`
	Verbose bool `mapstructure:"verbose"`

	// Default values for the collect command
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// DefaultsConfig holds default values for trace collection. These are policy
// knobs, not contracts: flags override anything set here.
type DefaultsConfig struct {
	Profile      string   `mapstructure:"profile"`
	BufferSizeMB int      `mapstructure:"buffer_size_mb"`
	Duration     string   `mapstructure:"duration"`
	Manifests    []string `mapstructure:"manifests"`
	SocketDir    string   `mapstructure:"socket_dir"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Quiet:   false,
		Verbose: false,
		Defaults: DefaultsConfig{
			Profile:      "runtime-basic",
			BufferSizeMB: 256,
		},
	}
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("evtap")
	v.SetConfigType("yaml")

	// Config paths in order of precedence, lowest first
	v.AddConfigPath("/etc/evtap/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "evtap"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".evtap")
	}
	v.AddConfigPath(".")

	// Also check for .evtaprc
	v.SetConfigName(".evtaprc")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	// Environment variables
	v.SetEnvPrefix("EVTAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("quiet", "EVTAP_QUIET")
	v.BindEnv("verbose", "EVTAP_VERBOSE")
	v.BindEnv("defaults.profile", "EVTAP_PROFILE")
	v.BindEnv("defaults.buffer_size_mb", "EVTAP_BUFFER_SIZE_MB")
	v.BindEnv("defaults.socket_dir", "EVTAP_SOCKET_DIR")

	cfg := Default()
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("defaults.profile", cfg.Defaults.Profile)
	v.SetDefault("defaults.buffer_size_mb", cfg.Defaults.BufferSizeMB)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
