// Package config provides runtime configuration for the colorgrade tools.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// COLORGRADE_* environment variables. The result is validated before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ironsheep/colorgrade-mcp/internal/grade"
	"github.com/ironsheep/colorgrade-mcp/internal/publish"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultLogLevel   = "info"
	DefaultMaxPreview = 2048
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "COLORGRADE_"

// PublishConfig selects where published previews go. A configured bucket
// wins over a directory.
type PublishConfig struct {
	Dir string           `toml:"dir"`
	S3  publish.S3Config `toml:"s3"`
}

// Config holds all runtime settings.
type Config struct {
	LogLevel    string        `toml:"log_level" validate:"oneof=debug info warning error"`
	MaxPreview  int           `toml:"max_preview" validate:"gte=0,lte=16384"`
	JPEGQuality int           `toml:"jpeg_quality" validate:"gte=1,lte=100"`
	Publish     PublishConfig `toml:"publish"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		LogLevel:    DefaultLogLevel,
		MaxPreview:  DefaultMaxPreview,
		JPEGQuality: grade.DefaultJPEGQuality,
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is not empty) and the process environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("parse config %s: %s", path, strict.String())
			}
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from COLORGRADE_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":            &c.LogLevel,
		"PUBLISH_DIR":          &c.Publish.Dir,
		"S3_BUCKET":            &c.Publish.S3.Bucket,
		"S3_REGION":            &c.Publish.S3.Region,
		"S3_ENDPOINT":          &c.Publish.S3.Endpoint,
		"S3_PREFIX":            &c.Publish.S3.Prefix,
		"S3_ACCESS_KEY_ID":     &c.Publish.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.Publish.S3.SecretAccessKey,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"MAX_PREVIEW":  &c.MaxPreview,
		"JPEG_QUALITY": &c.JPEGQuality,
	}
	for name, field := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: must be an integer", EnvPrefix, name, v)
		}
		*field = n
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	return nil
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldPath(e.Namespace())+" "+validationMessage(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "oneof":
		return "must be one of [" + e.Param() + "]"
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "url":
		return "must be a URL"
	case "required_with":
		return "is required when " + strings.ToLower(e.Param()) + " is set"
	default:
		return "failed " + e.Tag()
	}
}

// Verbosity maps the log level to a commonlog verbosity.
func (c *Config) Verbosity() int {
	return Verbosity(c.LogLevel)
}

// Verbosity maps a level name to a commonlog verbosity. Unknown names map
// to the info level.
func Verbosity(level string) int {
	switch strings.ToLower(level) {
	case "error":
		return 0
	case "warning":
		return 1
	case "debug":
		return 4
	default:
		return 3
	}
}
