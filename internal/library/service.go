package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"

	"github.com/Chilanguiux/Image-smart-finder/internal/database"
	"github.com/Chilanguiux/Image-smart-finder/internal/events"
	"github.com/Chilanguiux/Image-smart-finder/internal/scanner"
	"github.com/Chilanguiux/Image-smart-finder/internal/store"
)

// ServiceConfig holds configuration for the library service
type ServiceConfig struct {
	Extensions   []string // Accepted suffixes (empty = built-in defaults)
	HistoryLimit int      // Scan history rows to keep (0 = default)
}

// ScanStatus represents the current status of a scan
type ScanStatus string

const (
	ScanStatusIdle     ScanStatus = "idle"
	ScanStatusScanning ScanStatus = "scanning"
)

// ScanInfo holds information about the current or last scan
type ScanInfo struct {
	Status     ScanStatus `json:"status"`
	SessionID  string     `json:"session_id,omitempty"`
	Path       string     `json:"path,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	FilesFound int        `json:"files_found"`
	Skipped    int        `json:"skipped"`
	LastError  *string    `json:"last_error,omitempty"`
}

// Service coordinates scans against the result store. At most one scan
// session is live at a time; starting a new scan supersedes the previous one.
// A superseded session never publishes its results and never touches the busy
// flag, regardless of when it finishes.
type Service struct {
	config  ServiceConfig
	scanner *scanner.Scanner
	store   *store.Store
	scans   *database.ScanRepository // optional, nil disables history
	events  *events.Broadcaster      // optional, nil disables notifications
	fs      afero.Fs
	exts    scanner.ExtensionSet
	log     *slog.Logger

	// Scan state. generation identifies the live session; a session whose
	// generation no longer matches has been superseded.
	mu         sync.RWMutex
	scanInfo   ScanInfo
	busy       bool
	generation uint64
	scanCancel context.CancelFunc

	// Scheduled rescans
	cronMu   sync.Mutex
	cronRun  *cron.Cron
	cronSpec string
}

// NewService creates a library service backed by the OS filesystem.
func NewService(config ServiceConfig, st *store.Store, scans *database.ScanRepository, broadcaster *events.Broadcaster) *Service {
	return NewServiceWithFs(config, afero.NewOsFs(), st, scans, broadcaster)
}

// NewServiceWithFs creates a library service on the given filesystem.
func NewServiceWithFs(config ServiceConfig, fs afero.Fs, st *store.Store, scans *database.ScanRepository, broadcaster *events.Broadcaster) *Service {
	exts := scanner.DefaultExtensions()
	if len(config.Extensions) > 0 {
		exts = scanner.NewExtensionSet(config.Extensions...)
	}

	return &Service{
		config:   config,
		scanner:  scanner.NewWithFs(fs),
		store:    st,
		scans:    scans,
		events:   broadcaster,
		fs:       fs,
		exts:     exts,
		log:      slog.Default().With("component", "library-service"),
		scanInfo: ScanInfo{Status: ScanStatusIdle},
	}
}

// Store returns the result store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Busy reports whether a live scan session is running.
func (s *Service) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Status returns a snapshot of the current scan state.
func (s *Service) Status() ScanInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanInfo
}

// StartScan begins scanning path on a background goroutine. An in-flight
// session is superseded immediately. An empty or non-directory path clears
// the store and leaves the service idle; that is a user-visible reset, not an
// error.
func (s *Service) StartScan(path string) ScanInfo {
	isDir := false
	if path != "" {
		if info, err := s.fs.Stat(path); err == nil && info.IsDir() {
			isDir = true
		}
	}

	s.mu.Lock()

	// Invalidate whatever session is in flight.
	s.generation++
	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}

	if !isDir {
		s.busy = false
		s.scanInfo = ScanInfo{Status: ScanStatusIdle, Path: path}
		// Clear under the lock so a straggling session cannot interleave.
		s.store.Replace(nil)
		info := s.scanInfo
		s.mu.Unlock()

		s.log.Info("Scan target invalid, cleared results", "path", path)
		return info
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.scanCancel = cancel

	now := time.Now()
	session := uuid.NewString()
	gen := s.generation
	s.busy = true
	s.scanInfo = ScanInfo{
		Status:    ScanStatusScanning,
		SessionID: session,
		Path:      path,
		StartTime: &now,
	}
	info := s.scanInfo
	s.mu.Unlock()

	s.publish(events.Event{Type: events.TypeScanStarted, SessionID: session, Busy: true})
	s.log.Info("Scan started", "path", path, "session_id", session)

	go s.performScan(ctx, gen, session, path, now)

	return info
}

// CancelScan supersedes the current session without starting a new one. The
// store keeps whatever it holds.
func (s *Service) CancelScan() error {
	s.mu.Lock()

	if !s.busy {
		s.mu.Unlock()
		return fmt.Errorf("no scan is currently running")
	}

	s.generation++
	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}
	session := s.scanInfo.SessionID
	s.busy = false
	s.scanInfo.Status = ScanStatusIdle
	s.mu.Unlock()

	s.publish(events.Event{Type: events.TypeScanFinished, SessionID: session, Busy: false})
	s.log.Info("Scan canceled", "session_id", session)
	return nil
}

// performScan runs one session to completion and publishes the outcome only
// if the session is still live.
func (s *Service) performScan(ctx context.Context, gen uint64, session, path string, started time.Time) {
	res, err := s.scanner.Scan(ctx, path, s.exts)
	finished := time.Now()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("Discarding superseded scan session",
			"session_id", session, "path", path)
		return
	}
	s.scanCancel = nil
	s.busy = false

	if err != nil {
		// Failed live session: store untouched.
		errMsg := err.Error()
		s.scanInfo.Status = ScanStatusIdle
		s.scanInfo.LastError = &errMsg
		s.mu.Unlock()

		s.log.Error("Scan failed", "path", path, "session_id", session, "error", err)
		s.recordScan(session, path, database.ScanStatusFailed, 0, 0, &errMsg, started, finished)
		s.publish(events.Event{Type: events.TypeScanFinished, SessionID: session, Busy: false})
		return
	}

	s.scanInfo = ScanInfo{
		Status:     ScanStatusIdle,
		SessionID:  session,
		Path:       path,
		StartTime:  &started,
		FilesFound: len(res.Paths),
		Skipped:    res.Skipped,
	}
	// Publish while still holding the state lock so a session superseded a
	// moment later cannot interleave its replace with ours.
	s.store.Replace(res.Paths)
	s.mu.Unlock()

	s.log.Info("Scan completed", "path", path, "session_id", session,
		"files", len(res.Paths), "skipped", res.Skipped,
		"duration", finished.Sub(started))
	s.recordScan(session, path, database.ScanStatusCompleted, len(res.Paths), res.Skipped, nil, started, finished)
	s.publish(events.Event{Type: events.TypeScanFinished, SessionID: session, Busy: false, Total: len(res.Paths)})
}

// RemovePath drops one entry from the store, typically after the file was
// deleted outside a scan.
func (s *Service) RemovePath(path string) bool {
	return s.store.Remove(path)
}

// DeleteFailure is one file that could not be deleted.
type DeleteFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// DeleteResult aggregates the outcome of a batch deletion. Partial success is
// normal: deleted files leave the store, failures are reported per file.
type DeleteResult struct {
	Deleted  []string        `json:"deleted"`
	Failures []DeleteFailure `json:"failures,omitempty"`
}

// DeleteFiles removes the given files from disk and, for each success, from
// the store. Failures never abort the batch.
func (s *Service) DeleteFiles(paths []string) DeleteResult {
	res := DeleteResult{Deleted: []string{}}

	for _, path := range paths {
		if err := s.fs.Remove(path); err != nil {
			s.log.Warn("Failed to delete file", "path", path, "error", err)
			res.Failures = append(res.Failures, DeleteFailure{Path: path, Error: err.Error()})
			continue
		}
		res.Deleted = append(res.Deleted, path)
		s.store.Remove(path)
	}

	if len(res.Failures) > 0 {
		s.log.Warn("Batch deletion finished with failures",
			"deleted", len(res.Deleted), "failed", len(res.Failures))
	}
	return res
}

// UpdateRescanCron reschedules periodic rescans of root. An empty spec stops
// them. Satisfies the config scheduler updater.
func (s *Service) UpdateRescanCron(spec string) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cronRun != nil {
		s.cronRun.Stop()
		s.cronRun = nil
	}
	s.cronSpec = spec
	if spec == "" {
		return nil
	}

	runner := cron.New()
	_, err := runner.AddFunc(spec, func() {
		s.mu.RLock()
		path := s.scanInfo.Path
		s.mu.RUnlock()
		if path == "" {
			return
		}
		s.log.Info("Scheduled rescan", "path", path)
		s.StartScan(path)
	})
	if err != nil {
		return fmt.Errorf("invalid rescan cron %q: %w", spec, err)
	}
	runner.Start()
	s.cronRun = runner
	return nil
}

// Close stops the scheduler and supersedes any live session.
func (s *Service) Close() error {
	s.cronMu.Lock()
	if s.cronRun != nil {
		s.cronRun.Stop()
		s.cronRun = nil
	}
	s.cronMu.Unlock()

	s.mu.Lock()
	s.generation++
	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}
	s.busy = false
	s.scanInfo.Status = ScanStatusIdle
	s.mu.Unlock()
	return nil
}

func (s *Service) recordScan(session, root string, status database.ScanStatus, files, skipped int, errMsg *string, started, finished time.Time) {
	if s.scans == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := &database.ScanRecord{
		SessionID:    session,
		Root:         root,
		Status:       status,
		FileCount:    files,
		SkippedCount: skipped,
		ErrorMessage: errMsg,
		StartedAt:    started,
		FinishedAt:   finished,
	}
	if err := s.scans.Record(ctx, rec); err != nil {
		s.log.Error("Failed to record scan history", "session_id", session, "error", err)
		return
	}
	limit := s.config.HistoryLimit
	if limit <= 0 {
		limit = 100
	}
	if err := s.scans.Prune(ctx, limit); err != nil {
		s.log.Error("Failed to prune scan history", "error", err)
	}
}

func (s *Service) publish(ev events.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(ev)
}
