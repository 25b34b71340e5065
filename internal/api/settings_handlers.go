package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleGetSettings handles GET /api/settings
func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	values, err := s.settingsRepo.GetAll(c.Context())
	if err != nil {
		s.logger.Error("Failed to load settings", "error", err)
		return RespondInternalError(c, "Failed to load settings", err.Error())
	}
	return RespondSuccess(c, values)
}

// handleUpdateSettings handles PUT /api/settings
// Upserts the given keys; keys not mentioned are left alone.
func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, "Invalid request body", err.Error())
	}
	if len(req.Values) == 0 {
		return RespondValidationError(c, "At least one setting is required", "")
	}

	if err := s.settingsRepo.SetAll(c.Context(), req.Values); err != nil {
		s.logger.Error("Failed to save settings", "error", err)
		return RespondInternalError(c, "Failed to save settings", err.Error())
	}

	values, err := s.settingsRepo.GetAll(c.Context())
	if err != nil {
		return RespondInternalError(c, "Failed to reload settings", err.Error())
	}
	return RespondSuccess(c, values)
}
