package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleGetConfig handles GET /api/config
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	cfg := s.configManager.GetConfig()
	if cfg == nil {
		return RespondInternalError(c, "Configuration not available", "")
	}
	return RespondSuccess(c, cfg)
}

// handleUpdateConfig handles PUT /api/config
// The body is merged over the current configuration, so clients may send only
// the sections they change. Restart-only fields (server port, database path)
// are rejected; accepted updates are applied to running components and saved
// back to the config file.
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	current := s.configManager.GetConfig()
	if current == nil {
		return RespondInternalError(c, "Configuration not available", "")
	}

	newConfig := current.DeepCopy()
	if err := c.BodyParser(newConfig); err != nil {
		return RespondBadRequest(c, "Invalid request body", err.Error())
	}

	if err := s.configManager.ValidateConfigUpdate(newConfig); err != nil {
		return RespondValidationError(c, "Configuration validation failed", err.Error())
	}

	if err := s.configManager.UpdateConfig(newConfig); err != nil {
		s.logger.Error("Failed to update configuration", "error", err)
		return RespondInternalError(c, "Failed to update configuration", err.Error())
	}

	if err := s.configManager.SaveConfig(); err != nil {
		s.logger.Error("Failed to save configuration", "error", err)
		return RespondInternalError(c, "Failed to save configuration", err.Error())
	}

	return RespondSuccess(c, newConfig)
}
