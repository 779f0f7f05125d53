package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	configData Config
	v          *viper.Viper
)

// Config holds all configuration settings.
type Config struct {
	// Server configuration
	Server struct {
		Host string
		Port int
	}
	// Plugin discovery and lifecycle configuration
	Plugin struct {
		BuiltinPath string `mapstructure:"builtin_path"`
		Path        string
		Allow       string
		Deny        string
		Cache       bool
		DebounceMs  int `mapstructure:"debounce_ms"`
		Watch       bool
	}
	// Host identity configuration
	Host struct {
		Version string
	}
	// Logging configuration
	Log struct {
		Level  string
		Format string
	}
}

// Initialize sets up the configuration system.
func Initialize() error {
	v = viper.New()

	// Set config name and paths
	v.SetConfigName("config")         // name of config file (without extension)
	v.SetConfigType("yaml")           // config file type
	v.AddConfigPath(".")              // optionally look for config in working directory
	v.AddConfigPath("$HOME/.plughub") // look for config in .plughub directory in home
	v.AddConfigPath("/etc/plughub/")  // path to look for the config file in

	// Set default values
	setDefaults()

	// Environment variables
	v.SetEnvPrefix("PLUGHUB") // prefix for env vars
	v.AutomaticEnv()          // read in environment variables that match
	v.SetEnvKeyReplacer(      // replace dots with underscores in env vars
		strings.NewReplacer(".", "_"),
	)

	// Create config file if it doesn't exist
	if err := ensureConfig(); err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}

	// Read in config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if we can't find a config file, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal config into struct
	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return nil
}

// setDefaults sets default values for all configuration options.
func setDefaults() {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 1500)

	// Plugin defaults
	v.SetDefault("plugin.builtin_path", "plugins")
	v.SetDefault("plugin.path", "")
	v.SetDefault("plugin.allow", "")
	v.SetDefault("plugin.deny", "")
	v.SetDefault("plugin.cache", false)
	v.SetDefault("plugin.debounce_ms", 500)
	v.SetDefault("plugin.watch", true)

	// Host defaults; empty version falls back to the built-in constant
	v.SetDefault("host.version", "")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// ensureConfig creates a default config file if none exists.
func ensureConfig() error {
	// Check if config directory exists
	if _, err := os.Stat(filepath.Join(os.Getenv("HOME"), ".plughub")); os.IsNotExist(err) {
		// Create directory
		if err := os.MkdirAll(filepath.Join(os.Getenv("HOME"), ".plughub"), 0o755); err != nil {
			return err
		}
	}

	configFile := filepath.Join(os.Getenv("HOME"), ".plughub", "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		// Create default config file
		defaultConfig := `# plughub Configuration File
server:
  host: localhost
  port: 1500

plugin:
  builtin_path: plugins
  path: ""
  allow: ""
  deny: ""
  cache: false
  debounce_ms: 500
  watch: true

host:
  version: ""

log:
  level: info
  format: json
`
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// SearchPaths returns the ordered plugin search paths: the built-in path
// first, then any externally configured paths in declaration order.
func (c *Config) SearchPaths() []string {
	paths := []string{c.Plugin.BuiltinPath}
	if c.Plugin.Path != "" {
		for _, p := range strings.Split(c.Plugin.Path, string(os.PathListSeparator)) {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	}

	return paths
}

// AllowList returns the configured allowlist as trimmed plugin names.
func (c *Config) AllowList() []string {
	return splitNames(c.Plugin.Allow)
}

// DenyList returns the configured denylist as trimmed plugin names.
func (c *Config) DenyList() []string {
	return splitNames(c.Plugin.Deny)
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}

	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	return names
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}

// GetViper returns the viper instance.
func GetViper() *viper.Viper {
	return v
}
