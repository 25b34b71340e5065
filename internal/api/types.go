package api

import (
	"time"

	"github.com/Chilanguiux/Image-smart-finder/internal/library"
	"github.com/Chilanguiux/Image-smart-finder/internal/store"
)

// ImagesResponse is the filtered library view plus its counts.
type ImagesResponse struct {
	Images []store.Entry `json:"images"`
	Shown  int           `json:"shown"`
	Total  int           `json:"total"`
	Filter string        `json:"filter,omitempty"`
}

// DeleteImagesRequest asks for a batch of files to be deleted.
type DeleteImagesRequest struct {
	Paths []string `json:"paths"`
}

// ScanRequest starts a scan of the given directory.
type ScanRequest struct {
	Path string `json:"path"`
}

// ScanStatusResponse mirrors the library scan state.
type ScanStatusResponse struct {
	Status     string     `json:"status"`
	Busy       bool       `json:"busy"`
	SessionID  string     `json:"session_id,omitempty"`
	Path       string     `json:"path,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	FilesFound int        `json:"files_found"`
	Skipped    int        `json:"skipped"`
	LastError  *string    `json:"last_error,omitempty"`
}

func toScanStatusResponse(info library.ScanInfo, busy bool) ScanStatusResponse {
	return ScanStatusResponse{
		Status:     string(info.Status),
		Busy:       busy,
		SessionID:  info.SessionID,
		Path:       info.Path,
		StartTime:  info.StartTime,
		FilesFound: info.FilesFound,
		Skipped:    info.Skipped,
		LastError:  info.LastError,
	}
}

// SettingsRequest upserts persisted key/value settings.
type SettingsRequest struct {
	Values map[string]string `json:"values"`
}
