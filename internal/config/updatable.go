package config

import "log/slog"

// LoggingUpdater defines interface for components that can update logging levels
type LoggingUpdater interface {
	UpdateLogLevel(level string) error
}

// WatcherUpdater defines interface for components that can retarget the
// filesystem watcher
type WatcherUpdater interface {
	UpdateWatch(root string, enabled bool) error
}

// SchedulerUpdater defines interface for components that can reschedule
// periodic rescans
type SchedulerUpdater interface {
	UpdateRescanCron(spec string) error
}

// ComponentRegistry holds references to updatable components
type ComponentRegistry struct {
	Logging   LoggingUpdater
	Watcher   WatcherUpdater
	Scheduler SchedulerUpdater
	logger    *slog.Logger
}

// NewComponentRegistry creates a new component registry
func NewComponentRegistry(logger *slog.Logger) *ComponentRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComponentRegistry{
		logger: logger,
	}
}

// RegisterLogging registers a logging updater
func (r *ComponentRegistry) RegisterLogging(updater LoggingUpdater) {
	r.Logging = updater
}

// RegisterWatcher registers a watcher updater
func (r *ComponentRegistry) RegisterWatcher(updater WatcherUpdater) {
	r.Watcher = updater
}

// RegisterScheduler registers a scheduler updater
func (r *ComponentRegistry) RegisterScheduler(updater SchedulerUpdater) {
	r.Scheduler = updater
}

// ApplyUpdates applies configuration updates to all registered components
func (r *ComponentRegistry) ApplyUpdates(oldConfig, newConfig *Config) {
	if oldConfig.GetLogLevel() != newConfig.GetLogLevel() {
		if r.Logging != nil {
			if err := r.Logging.UpdateLogLevel(newConfig.GetLogLevel()); err != nil {
				r.logger.Error("Failed to update log level", "err", err)
			} else {
				r.logger.Info("Log level updated successfully",
					"old", oldConfig.GetLogLevel(),
					"new", newConfig.GetLogLevel())
			}
		}
	}

	if oldConfig.Library.Root != newConfig.Library.Root ||
		oldConfig.GetWatchEnabled() != newConfig.GetWatchEnabled() {
		if r.Watcher != nil {
			if err := r.Watcher.UpdateWatch(newConfig.Library.Root, newConfig.GetWatchEnabled()); err != nil {
				r.logger.Error("Failed to update watcher", "err", err)
			} else {
				r.logger.Info("Watcher updated successfully",
					"root", newConfig.Library.Root,
					"enabled", newConfig.GetWatchEnabled())
			}
		}
	}

	if oldConfig.Library.RescanCron != newConfig.Library.RescanCron {
		if r.Scheduler != nil {
			if err := r.Scheduler.UpdateRescanCron(newConfig.Library.RescanCron); err != nil {
				r.logger.Error("Failed to update rescan schedule", "err", err)
			} else {
				r.logger.Info("Rescan schedule updated successfully",
					"old", oldConfig.Library.RescanCron,
					"new", newConfig.Library.RescanCron)
			}
		}
	}
}
