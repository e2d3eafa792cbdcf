package internal

import (
	"errors"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fmkit/internal/batch"
	"github.com/starford/fmkit/internal/frontmatter"
	"github.com/starford/fmkit/internal/storage"
	"github.com/starford/fmkit/internal/watch"
)

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Documents DocumentsConfig   `yaml:"documents"`
	Update    UpdateConfig      `yaml:"update"`
	Watch     WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Documents.Validate(); err != nil {
		return err
	}
	if err := c.Update.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// DocumentsConfig locates the documents processed when no paths are given.
type DocumentsConfig struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
}

// Validate validates the documents configuration.
func (c *DocumentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extensionRe)),
	)
}

// UpdateConfig holds settings for header rewriting.
//
// Defaults is an ordered YAML mapping of fields forced into every header
// unless the update runs with --no-defaults. LockFile guards against two
// mutating runs at once; empty disables locking.
type UpdateConfig struct {
	Defaults frontmatter.Value `yaml:"defaults"`
	LockFile string            `yaml:"lock_file"`
}

// Validate validates the update configuration.
func (c *UpdateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Defaults, validation.By(func(any) error {
			if !c.Defaults.IsMapping() && !c.Defaults.IsNull() {
				return errors.New("must be a mapping")
			}
			return nil
		})),
	)
}

// WatchConfig holds watcher settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Documents: DocumentsConfig{
			Path:      "content/posts",
			Extension: storage.DefaultExtension,
		},
		Update: UpdateConfig{
			Defaults: batch.DefaultFields(),
			LockFile: ".fmkit.lock",
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
	}
}
