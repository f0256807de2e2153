// Package config provides configuration loading for dsconv.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Command line flags (applied by the cli package)
//  2. Environment variables (DSCONV_*)
//  3. Project config (.dsconv/config.yml)
//  4. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: DSCONV_
//   - Nested fields: Use underscores (DSCONV_STRUCT_VAR_NAME)
package config

import (
	"time"

	"github.com/mvp-joe/dsconv/internal/emitter"
	"github.com/mvp-joe/dsconv/internal/report"
)

// Config represents the complete dsconv configuration.
// It can be loaded from .dsconv/config.yml with environment variable overrides.
type Config struct {
	Report ReportConfig `yaml:"report" mapstructure:"report"`
	Struct StructConfig `yaml:"struct" mapstructure:"struct"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
}

// ReportConfig controls the metadata report.
type ReportConfig struct {
	Wrap        bool   `yaml:"wrap" mapstructure:"wrap"`                 // break value lists at Width columns
	Width       int    `yaml:"width" mapstructure:"width"`               // column budget for wrapped lists
	Placeholder string `yaml:"placeholder" mapstructure:"placeholder"`   // marker for uninitialized positions
	ShowSkipped bool   `yaml:"show_skipped" mapstructure:"show_skipped"` // report statements that failed to parse
}

// StructConfig controls struct generation.
type StructConfig struct {
	Tag            string `yaml:"tag" mapstructure:"tag"`
	VarName        string `yaml:"var_name" mapstructure:"var_name"`
	Wrap           bool   `yaml:"wrap" mapstructure:"wrap"`                       // array member instead of scalars
	InternalInit   bool   `yaml:"internal_init" mapstructure:"internal_init"`     // initializers inside the struct
	ExternalAssign bool   `yaml:"external_assign" mapstructure:"external_assign"` // assignments after the struct
}

// OutputConfig defines where results go.
type OutputConfig struct {
	Silent    bool   `yaml:"silent" mapstructure:"silent"`         // suppress the console report
	LogFile   string `yaml:"log_file" mapstructure:"log_file"`     // duplicate the report into this file
	AppendLog bool   `yaml:"append_log" mapstructure:"append_log"` // append instead of truncating the log file
	File      string `yaml:"file" mapstructure:"file"`             // struct output file, empty for stdout
	Database  string `yaml:"database" mapstructure:"database"`     // SQLite export path, empty to disable
}

// PathsConfig defines which files of a directory target are scanned.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for scanned files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Report: ReportConfig{
			Wrap:        false,
			Width:       report.DefaultWidth,
			Placeholder: report.DefaultPlaceholder,
		},
		Struct: StructConfig{
			Tag:     emitter.DefaultTag,
			VarName: emitter.DefaultVarName,
			Wrap:    true,
		},
		Paths: PathsConfig{
			Include: []string{
				"**/*.c",
				"**/*.h",
				"**/*.cc",
				"**/*.cpp",
				"**/*.hpp",
				"**/*.inc",
			},
			Ignore: []string{
				".git/**",
				"build/**",
				"vendor/**",
				"node_modules/**",
			},
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// ReportOptions converts the report section for the reporter.
func (c *Config) ReportOptions() report.Options {
	return report.Options{
		Wrap:        c.Report.Wrap,
		Width:       c.Report.Width,
		Placeholder: c.Report.Placeholder,
	}
}

// EmitterOptions converts the struct section for the emitter.
func (c *Config) EmitterOptions() emitter.Options {
	return emitter.Options{
		Wrap:           c.Struct.Wrap,
		InternalInit:   c.Struct.InternalInit,
		ExternalAssign: c.Struct.ExternalAssign,
		Tag:            c.Struct.Tag,
		VarName:        c.Struct.VarName,
	}
}

// DebounceInterval returns the watch debounce as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// GetSourceExtensions extracts unique file extensions from the include patterns.
// Returns extensions with leading dot (e.g., []string{".c", ".h"}).
func (c *Config) GetSourceExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string

	for _, pattern := range c.Paths.Include {
		ext := extractExtension(pattern)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		extensions = append(extensions, ext)
	}

	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.c" -> ".c", "src/*.h" -> ".h", "Makefile" -> ""
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
