package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead of
// searching .dsconv/ in a root directory.
func NewFileLoader(path string) Loader {
	return &loader{
		configFile: path,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DSCONV_*)
// 2. Config file (.dsconv/config.yml or .dsconv/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".dsconv"))
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DSCONV")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., DSCONV_REPORT_WIDTH)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnvVars binds the scalar keys that may be overridden from the environment.
func bindEnvVars(v *viper.Viper) {
	// Report configuration
	v.BindEnv("report.wrap")
	v.BindEnv("report.width")
	v.BindEnv("report.placeholder")
	v.BindEnv("report.show_skipped")

	// Struct configuration
	v.BindEnv("struct.tag")
	v.BindEnv("struct.var_name")
	v.BindEnv("struct.wrap")
	v.BindEnv("struct.internal_init")
	v.BindEnv("struct.external_assign")

	// Output configuration
	v.BindEnv("output.silent")
	v.BindEnv("output.log_file")
	v.BindEnv("output.append_log")
	v.BindEnv("output.file")
	v.BindEnv("output.database")

	// Watch configuration
	v.BindEnv("watch.debounce_ms")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("report.wrap", defaults.Report.Wrap)
	v.SetDefault("report.width", defaults.Report.Width)
	v.SetDefault("report.placeholder", defaults.Report.Placeholder)
	v.SetDefault("report.show_skipped", defaults.Report.ShowSkipped)

	v.SetDefault("struct.tag", defaults.Struct.Tag)
	v.SetDefault("struct.var_name", defaults.Struct.VarName)
	v.SetDefault("struct.wrap", defaults.Struct.Wrap)
	v.SetDefault("struct.internal_init", defaults.Struct.InternalInit)
	v.SetDefault("struct.external_assign", defaults.Struct.ExternalAssign)

	v.SetDefault("output.silent", defaults.Output.Silent)
	v.SetDefault("output.log_file", defaults.Output.LogFile)
	v.SetDefault("output.append_log", defaults.Output.AppendLog)
	v.SetDefault("output.file", defaults.Output.File)
	v.SetDefault("output.database", defaults.Output.Database)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

