package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TWDOC"

	DefaultWorkers    = 4
	DefaultNERTimeout = 2 * time.Second
)

// Config holds the runtime configuration of the extraction CLI.
type Config struct {
	// TablesPath optionally points at a YAML file overriding the built-in
	// extraction tables (labels, suffixes, date patterns).
	TablesPath string

	// SurnamesPath optionally points at a newline-delimited surname
	// dictionary file.
	SurnamesPath string

	// NERURL is the endpoint of the optional external PERSON recognizer.
	// Empty disables the gate (fail-open).
	NERURL     string
	NERTimeout time.Duration

	// Workers bounds concurrent document processing. 0 means one goroutine
	// per document.
	Workers int

	Pretty bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:    DefaultWorkers,
		NERTimeout: DefaultNERTimeout,
	}
}

// LoadFromFlags parses command line flags (with TWDOC_* environment
// overrides) and returns the configuration plus the remaining positional
// arguments, which name the input files.
func LoadFromFlags() (*Config, []string, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("tables", cfg.TablesPath)
	v.SetDefault("surnames", cfg.SurnamesPath)
	v.SetDefault("ner-url", cfg.NERURL)
	v.SetDefault("ner-timeout", cfg.NERTimeout)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("pretty", cfg.Pretty)

	fs := pflag.NewFlagSet("twdoc-extract", pflag.ContinueOnError)
	fs.String("tables", cfg.TablesPath, "YAML file overriding the built-in extraction tables")
	fs.String("surnames", cfg.SurnamesPath, "newline-delimited surname dictionary file")
	fs.String("ner-url", cfg.NERURL, "endpoint of the external PERSON recognizer (empty disables the gate)")
	fs.Duration("ner-timeout", cfg.NERTimeout, "timeout per PERSON recognizer call")
	fs.Int("workers", cfg.Workers, "max concurrent documents (0 = unbounded)")
	fs.Bool("pretty", cfg.Pretty, "indent the JSON output")

	if err := fs.Parse(argsWithoutProgram()); err != nil {
		return nil, nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg.TablesPath = v.GetString("tables")
	cfg.SurnamesPath = v.GetString("surnames")
	cfg.NERURL = v.GetString("ner-url")
	cfg.NERTimeout = v.GetDuration("ner-timeout")
	cfg.Workers = v.GetInt("workers")
	cfg.Pretty = v.GetBool("pretty")

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, fs.Args(), nil
}

func argsWithoutProgram() []string {
	if len(os.Args) < 2 {
		return nil
	}
	return os.Args[1:]
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.NERTimeout <= 0 {
		return fmt.Errorf("ner-timeout must be positive, got %s", c.NERTimeout)
	}
	return nil
}
