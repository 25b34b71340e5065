package config

// Library config accessor methods with default fallbacks.

// GetHistoryLimit returns the number of scan history rows to keep with a
// default fallback.
func (c *Config) GetHistoryLimit() int {
	if c.Library.HistoryLimit <= 0 {
		return 100 // Default: 100 rows
	}
	return c.Library.HistoryLimit
}

// GetWatchEnabled returns whether the filesystem watcher is on.
func (c *Config) GetWatchEnabled() bool {
	if c.Library.Watch == nil {
		return false // Default: off
	}
	return *c.Library.Watch
}

// GetLogLevel returns the configured log level with a default fallback.
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}
