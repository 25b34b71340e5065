package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// handleStartScan handles POST /api/scan
// Starting a scan supersedes any in-flight session. An empty or invalid path
// clears the library, which is still a success.
func (s *Server) handleStartScan(c *fiber.Ctx) error {
	var req ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, "Invalid request body", err.Error())
	}

	info := s.libraryService.StartScan(req.Path)
	return RespondSuccess(c, toScanStatusResponse(info, s.libraryService.Busy()))
}

// handleGetScanStatus handles GET /api/scan/status
func (s *Server) handleGetScanStatus(c *fiber.Ctx) error {
	return RespondSuccess(c, toScanStatusResponse(s.libraryService.Status(), s.libraryService.Busy()))
}

// handleCancelScan handles DELETE /api/scan
func (s *Server) handleCancelScan(c *fiber.Ctx) error {
	if err := s.libraryService.CancelScan(); err != nil {
		return RespondConflict(c, "Failed to cancel scan", err.Error())
	}
	return RespondSuccess(c, toScanStatusResponse(s.libraryService.Status(), s.libraryService.Busy()))
}

// handleGetHistory handles GET /api/history
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return RespondBadRequest(c, "Invalid limit parameter", raw)
		}
		limit = parsed
	}

	records, err := s.scansRepo.Recent(c.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to load scan history", "error", err)
		return RespondInternalError(c, "Failed to load scan history", err.Error())
	}
	return RespondSuccess(c, records)
}
