package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/ocr"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is read from the working directory when PDFNOTES_CONFIG
// is not set and the file exists.
const DefaultConfigFile = "pdfnotes.toml"

// Config holds the configuration for the CLI.
type Config struct {
	// Path of the sqlite database. Default is ~/pdfnotes.db.
	Database string `toml:"database" validate:"required"`

	// Max files processes at a time by extract_dir.
	// Large values will increase CPU and memory usage.
	// Default is 4.
	MaxConcurrency int `toml:"max_concurrency" validate:"min=1,max=100"`

	// server port. default is 8080
	Port int `toml:"port" validate:"min=1,max=65535"`

	// Largest PDF accepted by the upload endpoint, in megabytes.
	MaxUploadMB int64 `toml:"max_upload_mb" validate:"min=1"`

	Log        LogConfig       `toml:"log"`
	Extraction annotate.Config `toml:"extraction"`
	OCR        ocr.Options     `toml:"ocr"`

	// Command line only.
	Filename  string `toml:"-"`
	Directory string `toml:"-"`
	Document  string `toml:"-"`
	Format    string `toml:"-"`
	Output    string `toml:"-"`
	Pattern   string `toml:"-"`
	Limit     int    `toml:"-"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `toml:"pretty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	dbPath := "pdfnotes.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, dbPath)
	}

	return &Config{
		Database:       dbPath,
		MaxConcurrency: 4,
		Port:           8080,
		MaxUploadMB:    64,
		Log:            LogConfig{Level: "info", Pretty: true},
		Extraction:     annotate.DefaultConfig(),
		OCR:            ocr.DefaultOptions(),
		Format:         "md",
	}
}

// ConfigPath returns the configuration file to load: $PDFNOTES_CONFIG, else
// DefaultConfigFile when it exists, else "".
func ConfigPath() string {
	if path := os.Getenv("PDFNOTES_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// Load builds the configuration with priority defaults -> file -> env.
// Command line flags are applied on top by DefineFlags. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvOverrides(config *Config) error {
	if db := os.Getenv("PDFNOTES_DATABASE"); db != "" {
		config.Database = db
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PDFNOTES_PORT", &config.Port},
		{"PDFNOTES_MAX_CONCURRENCY", &config.MaxConcurrency},
		{"PDFNOTES_EXTRACTION_CONCURRENCY", &config.Extraction.Concurrency},
	}
	for _, env := range ints {
		v := os.Getenv(env.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env.name, err)
		}
		*env.dst = n
	}

	if level := os.Getenv("PDFNOTES_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if pretty := os.Getenv("PDFNOTES_LOG_PRETTY"); pretty != "" {
		b, err := strconv.ParseBool(pretty)
		if err != nil {
			return fmt.Errorf("invalid PDFNOTES_LOG_PRETTY: %w", err)
		}
		config.Log.Pretty = b
	}
	if lang := os.Getenv("PDFNOTES_OCR_LANGUAGE"); lang != "" {
		config.OCR.Language = lang
	}
	return nil
}

var validate = validator.New()

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
