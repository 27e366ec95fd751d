// Package config loads run settings from defaults, an optional merger.yaml,
// MERGER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix = "MERGER_"

	DefaultInputDir       = "input"
	DefaultOutputDir      = "output"
	DefaultDuplicateDir   = "output/Duplicated"
	DefaultTemplateDir    = "templates"
	DefaultOutputName     = "ADVANCED_MERGED_OUTPUT"
	DefaultColumnPadding  = 4
	DefaultMaxRowsPerFile = 600000
	DefaultHTTPTimeout    = 60 * time.Second
)

// configFiles are looked up in the working directory when no file is given.
var configFiles = []string{"merger.yaml", "merger.yml"}

type Config struct {
	InputDir       string        `koanf:"input_dir"`
	OutputDir      string        `koanf:"output_dir"`
	DuplicateDir   string        `koanf:"duplicate_dir"`
	TemplateDir    string        `koanf:"template_dir"`
	OutputName     string        `koanf:"output_name"`
	ColumnPadding  int           `koanf:"column_padding"`
	MaxRowsPerFile int64         `koanf:"max_rows_per_file"` // 0 disables splitting
	HTTPTimeout    time.Duration `koanf:"http_timeout"`
	Parallel       bool          `koanf:"parallel"`
	LogLevel       string        `koanf:"log_level"`
	LogFormat      string        `koanf:"log_format"`

	// File is the config file that was read, empty when none was found.
	File string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"input_dir":         DefaultInputDir,
		"output_dir":        DefaultOutputDir,
		"duplicate_dir":     DefaultDuplicateDir,
		"template_dir":      DefaultTemplateDir,
		"output_name":       DefaultOutputName,
		"column_padding":    DefaultColumnPadding,
		"max_rows_per_file": DefaultMaxRowsPerFile,
		"http_timeout":      DefaultHTTPTimeout.String(),
		"parallel":          false,
		"log_level":         "info",
		"log_format":        "text",
	}
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		InputDir:       DefaultInputDir,
		OutputDir:      DefaultOutputDir,
		DuplicateDir:   filepath.Clean(DefaultDuplicateDir),
		TemplateDir:    DefaultTemplateDir,
		OutputName:     DefaultOutputName,
		ColumnPadding:  DefaultColumnPadding,
		MaxRowsPerFile: DefaultMaxRowsPerFile,
		HTTPTimeout:    DefaultHTTPTimeout,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
// Only flags that were explicitly set take part.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// MERGER_OUTPUT_DIR -> output_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	cfg.InputDir = cleanPath(cfg.InputDir)
	cfg.OutputDir = cleanPath(cfg.OutputDir)
	cfg.DuplicateDir = cleanPath(cfg.DuplicateDir)
	cfg.TemplateDir = cleanPath(cfg.TemplateDir)
	cfg.OutputName = strings.TrimSuffix(strings.TrimSpace(cfg.OutputName), ".xlsx")

	return &cfg, nil
}

func cleanPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return filepath.Clean(p)
}

// findConfigFile returns the explicit path, or the first default file that
// exists in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	var errs []error
	for _, d := range []struct{ key, dir string }{
		{"input_dir", c.InputDir},
		{"output_dir", c.OutputDir},
		{"duplicate_dir", c.DuplicateDir},
		{"template_dir", c.TemplateDir},
	} {
		if d.dir == "" {
			errs = append(errs, fmt.Errorf("%s is required", d.key))
		}
	}
	if err := ValidateOutputName(c.OutputName); err != nil {
		errs = append(errs, err)
	}
	if c.ColumnPadding < 0 {
		errs = append(errs, fmt.Errorf("column_padding must not be negative, got %d", c.ColumnPadding))
	}
	if c.MaxRowsPerFile < 0 {
		errs = append(errs, fmt.Errorf("max_rows_per_file must not be negative, got %d", c.MaxRowsPerFile))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ValidateOutputName rejects names that are empty or point outside the
// output folder.
func ValidateOutputName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("output_name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("output_name %q must be a plain file name", name)
	}
	return nil
}

// EnsureDirs creates the input, output, duplicates and template folders.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.DuplicateDir, c.TemplateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// RegisterFlags adds one flag per setting. Flag names are the keys in
// kebab-case; Load picks up only the flags the user set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("input-dir", DefaultInputDir, "folder scanned for .csv and .xlsx sources")
	fs.String("output-dir", DefaultOutputDir, "folder for merged workbooks")
	fs.String("duplicate-dir", DefaultDuplicateDir, "folder for the duplicates workbook")
	fs.String("template-dir", DefaultTemplateDir, "folder holding saved templates")
	fs.String("output-name", DefaultOutputName, "merged workbook name without extension")
	fs.Int("column-padding", DefaultColumnPadding, "characters added to the widest cell of a column")
	fs.Int64("max-rows-per-file", DefaultMaxRowsPerFile, "split output into _partN files above this many rows (0 = never)")
	fs.Duration("http-timeout", DefaultHTTPTimeout, "timeout for remote sources")
	fs.Bool("parallel", false, "evaluate template rules in parallel")
	fs.String("log-level", "info", "log level (debug|info|warn|error)")
	fs.String("log-format", "text", "log format (text|json)")
}
