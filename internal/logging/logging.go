// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"

	"github.com/mcdonaldj/genbak/internal/config"
	log "github.com/sirupsen/logrus"
)

// Config configures handling of application log events.
type Config struct {
	Level  string // debug, info, warn or error
	Format string // text, json or color
}

// FromConfig returns the logging settings of cfg.
func FromConfig(cfg *config.Config) Config {
	return Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
}

// Init configures the standard logger to write to out.
func Init(cfg Config, out io.Writer) error {
	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	default:
		return fmt.Errorf("unrecognized log format %q", cfg.Format)
	}

	level := cfg.Level
	if level == "" {
		level = "warn"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unrecognized log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetOutput(out)
	return nil
}
