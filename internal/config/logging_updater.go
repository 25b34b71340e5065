package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// LevelSetter adjusts the verbosity of an already-built logger. Satisfied by
// the slogutil dynamic leveler.
type LevelSetter interface {
	SetLevel(level slog.Level)
}

// DefaultLoggingUpdater applies log level changes at runtime
type DefaultLoggingUpdater struct {
	setter       LevelSetter
	currentLevel string
	mutex        sync.Mutex
}

// NewLoggingUpdater creates a new logging updater
func NewLoggingUpdater(setter LevelSetter, initialLevel string) LoggingUpdater {
	return &DefaultLoggingUpdater{
		setter:       setter,
		currentLevel: initialLevel,
	}
}

// UpdateLogLevel updates the logger verbosity
func (u *DefaultLoggingUpdater) UpdateLogLevel(level string) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if u.currentLevel == level {
		return nil // No change needed
	}

	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	u.setter.SetLevel(slogLevel)
	u.currentLevel = level
	return nil
}
