package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Chilanguiux/Image-smart-finder/internal/api"
	"github.com/Chilanguiux/Image-smart-finder/internal/config"
	"github.com/Chilanguiux/Image-smart-finder/internal/database"
	"github.com/Chilanguiux/Image-smart-finder/internal/events"
	"github.com/Chilanguiux/Image-smart-finder/internal/library"
	"github.com/Chilanguiux/Image-smart-finder/internal/scanner"
	"github.com/Chilanguiux/Image-smart-finder/internal/slogutil"
	"github.com/Chilanguiux/Image-smart-finder/internal/store"
	"github.com/Chilanguiux/Image-smart-finder/internal/watcher"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the image library server",
		Long:  `Start the HTTP API server using configuration from a YAML file.`,
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration first (using default logger for config loading errors)
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		return err
	}

	// Setup log rotation with the loaded configuration
	logger, leveler := slogutil.SetupLogRotation(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("Starting sib server",
		"log_file", cfg.Log.File,
		"log_level", cfg.GetLogLevel(),
		"library_root", cfg.Library.Root,
		"watch", cfg.GetWatchEnabled())

	// Create config manager for dynamic configuration updates
	configManager := config.NewManager(cfg, configFile)

	// Open the database (settings + scan history)
	db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	// Event broadcaster feeding the SSE endpoint
	broadcaster := events.NewBroadcaster()
	defer broadcaster.Close()

	// Result store; forward store mutations to SSE subscribers
	st := store.New()
	st.RegisterChangeCallback(func(change store.Change) {
		ev := events.Event{Total: change.Total}
		switch change.Kind {
		case store.ChangeReset:
			ev.Type = events.TypeStoreReset
		case store.ChangeRemove:
			ev.Type = events.TypeStoreRemove
			ev.Path = change.Path
		default:
			return
		}
		broadcaster.Publish(ev)
	})

	// Library service owns scanning and deletion
	svc := library.NewService(library.ServiceConfig{
		Extensions:   cfg.Library.Extensions,
		HistoryLimit: cfg.Library.HistoryLimit,
	}, st, db.Scans, broadcaster)
	defer func() {
		_ = svc.Close()
	}()

	if cfg.Library.RescanCron != "" {
		if err := svc.UpdateRescanCron(cfg.Library.RescanCron); err != nil {
			logger.Error("failed to schedule periodic rescans", "err", err)
			return err
		}
		logger.Info("Periodic rescans scheduled", "cron", cfg.Library.RescanCron)
	}

	// Filesystem watcher, retargetable on config changes
	watchManager := newWatchManager(svc, cfg.Library.Extensions, logger)
	defer watchManager.Close()

	// Register components for dynamic configuration updates
	registry := config.NewComponentRegistry(logger)
	registry.RegisterLogging(config.NewLoggingUpdater(leveler, cfg.GetLogLevel()))
	registry.RegisterScheduler(svc)
	registry.RegisterWatcher(watchManager)
	configManager.OnConfigChange(registry.ApplyUpdates)

	if err := watchManager.UpdateWatch(cfg.Library.Root, cfg.GetWatchEnabled()); err != nil {
		logger.Error("failed to start filesystem watcher", "err", err)
		return err
	}

	// Context cancelled on SIGINT/SIGTERM drives the graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Kick off the startup scan before accepting requests. The configured
	// root wins; otherwise fall back to the last path a client scanned.
	if cfg.Library.ScanOnStart {
		root := cfg.Library.Root
		if root == "" {
			last, ok, err := db.Settings.Get(ctx, database.SettingLastPath)
			if err != nil {
				logger.Warn("failed to load last scanned path", "err", err)
			} else if ok {
				root = last
			}
		}
		if root != "" {
			logger.Info("Starting initial scan", "root", root)
			svc.StartScan(root)
		}
	}

	app := createFiberApp(cfg, logger)
	api.NewServer(nil, svc, db.Settings, db.Scans, broadcaster, configManager).RegisterRoutes(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("API server enabled", "addr", addr, "prefix", "/api")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "err", err)
		return err
	}

	logger.Info("sib server shut down gracefully")
	return nil
}

// createFiberApp creates and configures the Fiber application
func createFiberApp(cfg *config.Config, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("Fiber error", "path", c.Path(), "method", c.Method(), "error", err)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Conditional Fiber request logging - only in debug mode
	debugMode := cfg.Server.DebugLogs || cfg.GetLogLevel() == "debug"

	fiberLogger := fLogger.New()
	app.Use(func(c *fiber.Ctx) error {
		if debugMode {
			return fiberLogger(c)
		}
		return c.Next()
	})

	return app
}

// watchManager owns the lifecycle of the filesystem watcher so it can be
// swapped out when the library root or the watch flag changes at runtime.
type watchManager struct {
	svc    *library.Service
	exts   scanner.ExtensionSet
	logger *slog.Logger

	mu      sync.Mutex
	current *watcher.Watcher
}

func newWatchManager(svc *library.Service, extensions []string, logger *slog.Logger) *watchManager {
	exts := scanner.DefaultExtensions()
	if len(extensions) > 0 {
		exts = scanner.NewExtensionSet(extensions...)
	}
	return &watchManager{svc: svc, exts: exts, logger: logger}
}

// UpdateWatch implements config.WatcherUpdater.
func (m *watchManager) UpdateWatch(root string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if err := m.current.Stop(); err != nil {
			m.logger.Warn("failed to stop filesystem watcher", "err", err)
		}
		m.current = nil
	}

	if !enabled || root == "" {
		return nil
	}

	w, err := watcher.NewWatcher(watcher.Config{
		Root:       root,
		Extensions: m.exts,
	}, func(root string) {
		m.svc.StartScan(root)
	})
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start filesystem watcher: %w", err)
	}

	m.current = w
	m.logger.Info("Filesystem watcher started", "root", root)
	return nil
}

func (m *watchManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		_ = m.current.Stop()
		m.current = nil
	}
}
