package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Result holds the outcome of a single directory scan.
type Result struct {
	// Paths are the matching files as absolute paths, sorted ascending.
	Paths []string
	// Skipped counts entries that could not be visited (permission errors,
	// broken symlinks). The scan continues past them.
	Skipped int
}

// Scanner finds image files under a root directory. It is read-only and safe
// to call concurrently from multiple goroutines.
type Scanner struct {
	fs  afero.Fs
	log *slog.Logger
}

// New creates a scanner backed by the OS filesystem.
func New() *Scanner {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates a scanner backed by the given filesystem. Tests use an
// in-memory fs.
func NewWithFs(fs afero.Fs) *Scanner {
	return &Scanner{
		fs:  fs,
		log: slog.Default().With("component", "scanner"),
	}
}

// Scan recursively visits every entry under root and returns the regular
// files whose suffix matches exts, as sorted absolute paths.
//
// A root that does not exist or is not a directory yields an empty result,
// not an error. Entries that fail to stat or read are skipped and counted;
// the only error Scan returns is ctx cancellation.
func (s *Scanner) Scan(ctx context.Context, root string, exts ExtensionSet) (Result, error) {
	var res Result

	root = s.resolveRoot(root)

	info, err := s.fs.Stat(root)
	if err != nil || !info.IsDir() {
		return res, nil
	}

	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			res.Skipped++
			s.log.Debug("Skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		if info.Mode().IsRegular() && exts.Matches(path) {
			res.Paths = append(res.Paths, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sort.Strings(res.Paths)
	return res, nil
}

// resolveRoot turns root into an absolute path with symlinks and relative
// segments collapsed, so every walked entry inherits a canonical prefix.
// Symlink resolution only applies to the real filesystem.
func (s *Scanner) resolveRoot(root string) string {
	if root == "" {
		return root
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if _, ok := s.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			root = resolved
		}
	}
	return filepath.Clean(root)
}
