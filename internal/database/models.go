package database

import "time"

// Well-known settings keys written by the service and its clients. Clients
// may store additional opaque keys (for example window geometry).
const (
	SettingLastPath   = "last_path"
	SettingLastFilter = "last_filter"
)

// ScanStatus is the terminal state of a recorded scan session.
type ScanStatus string

const (
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ID           int64      `json:"id"`
	SessionID    string     `json:"session_id"`
	Root         string     `json:"root"`
	Status       ScanStatus `json:"status"`
	FileCount    int        `json:"file_count"`
	SkippedCount int        `json:"skipped_count"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}
