package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Chilanguiux/Image-smart-finder/internal/config"
	"github.com/Chilanguiux/Image-smart-finder/internal/database"
	"github.com/Chilanguiux/Image-smart-finder/internal/events"
	"github.com/Chilanguiux/Image-smart-finder/internal/library"
)

// Config represents API server configuration
type Config struct {
	Prefix string // API path prefix (default: "/api")
}

// DefaultConfig returns default API configuration
func DefaultConfig() *Config {
	return &Config{
		Prefix: "/api",
	}
}

// ConfigManager provides access to the live application configuration and
// lets the API apply runtime updates
type ConfigManager interface {
	GetConfig() *config.Config
	ValidateConfigUpdate(newConfig *config.Config) error
	UpdateConfig(newConfig *config.Config) error
	SaveConfig() error
}

// Server registers the REST and SSE endpoints on a Fiber app
type Server struct {
	config         *Config
	libraryService *library.Service
	settingsRepo   *database.SettingsRepository
	scansRepo      *database.ScanRepository
	broadcaster    *events.Broadcaster
	configManager  ConfigManager
	logger         *slog.Logger
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(
	cfg *Config,
	libraryService *library.Service,
	settingsRepo *database.SettingsRepository,
	scansRepo *database.ScanRepository,
	broadcaster *events.Broadcaster,
	configManager ConfigManager,
) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Server{
		config:         cfg,
		libraryService: libraryService,
		settingsRepo:   settingsRepo,
		scansRepo:      scansRepo,
		broadcaster:    broadcaster,
		configManager:  configManager,
		logger:         slog.Default().With("component", "api"),
		startTime:      time.Now(),
	}
}

// RegisterRoutes wires all endpoints onto the app
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Get("/live", s.handleLive)

	api := app.Group(s.config.Prefix)

	api.Get("/images", s.handleListImages)
	api.Delete("/images", s.handleDeleteImages)

	api.Post("/scan", s.handleStartScan)
	api.Get("/scan/status", s.handleGetScanStatus)
	api.Delete("/scan", s.handleCancelScan)

	if s.broadcaster != nil {
		api.Get("/events", s.handleEventStream)
	}

	if s.settingsRepo != nil {
		api.Get("/settings", s.handleGetSettings)
		api.Put("/settings", s.handleUpdateSettings)
	}

	if s.scansRepo != nil {
		api.Get("/history", s.handleGetHistory)
	}

	if s.configManager != nil {
		api.Get("/config", s.handleGetConfig)
		api.Put("/config", s.handleUpdateConfig)
	}
}

// handleLive handles GET /live
func (s *Server) handleLive(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}
