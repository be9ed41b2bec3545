package reflux

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance.
var validate = validator.New()

// Config carries the environment-driven settings of a store and its feeds.
type Config struct {
	// StoreName is reported in signals.
	StoreName string `env:"REFLUX_STORE_NAME" envDefault:"store" validate:"required"`

	// FeedDebounce coalesces bursts of feed messages. Zero dispatches every message.
	FeedDebounce time.Duration `env:"REFLUX_FEED_DEBOUNCE" envDefault:"0s" validate:"min=0"`

	// FeedErrorHistory is the number of recent feed errors to retain.
	FeedErrorHistory int `env:"REFLUX_FEED_ERROR_HISTORY" envDefault:"0" validate:"min=0"`

	// FeedFormat is the message format, "json" or "yaml".
	FeedFormat string `env:"REFLUX_FEED_FORMAT" envDefault:"json" validate:"oneof=json yaml"`

	// RecorderLimit bounds Recorder history. Zero keeps everything.
	RecorderLimit int `env:"REFLUX_RECORDER_LIMIT" envDefault:"0" validate:"min=0"`
}

// LoadConfig reads Config from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Codec returns the codec selected by FeedFormat.
func (c Config) Codec() (Codec, error) {
	return CodecFor(c.FeedFormat)
}

// ApplyFeed configures f with the feed settings. Must be called before
// f.Start().
func (c Config) ApplyFeed(f *Feed) (*Feed, error) {
	codec, err := c.Codec()
	if err != nil {
		return nil, err
	}
	return f.
		Debounce(c.FeedDebounce).
		ErrorHistorySize(c.FeedErrorHistory).
		Codec(codec), nil
}
