// Package observability provides logging utilities.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/platformer/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Tick-rate logs would otherwise be sampled away in production.
	zapCfg.Sampling = nil

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ForRoom returns a child logger tagged with the room name.
//
// Precondition: logger must be non-nil.
func ForRoom(logger *zap.Logger, room string) *zap.Logger {
	return logger.With(zap.String("room", room))
}

// Player returns the standard field set identifying a player in log lines.
func Player(id, username string) zap.Field {
	return zap.Object("player", playerFields{id: id, username: username})
}

type playerFields struct {
	id       string
	username string
}

func (p playerFields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", p.id)
	enc.AddString("username", p.username)
	return nil
}
