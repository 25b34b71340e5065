package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleListImages handles GET /api/images
// Returns the filtered view of the store together with shown/total counts.
func (s *Server) handleListImages(c *fiber.Ctx) error {
	filter := c.Query("filter")

	st := s.libraryService.Store()
	entries := st.Filtered(filter)

	return RespondSuccess(c, ImagesResponse{
		Images: entries,
		Shown:  len(entries),
		Total:  st.Len(),
		Filter: filter,
	})
}

// handleDeleteImages handles DELETE /api/images
// Deletes the requested files and reports per-file failures; partial success
// is a 200, not an error.
func (s *Server) handleDeleteImages(c *fiber.Ctx) error {
	var req DeleteImagesRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, "Invalid request body", err.Error())
	}
	if len(req.Paths) == 0 {
		return RespondValidationError(c, "At least one path is required", "")
	}

	res := s.libraryService.DeleteFiles(req.Paths)
	return RespondSuccess(c, res)
}
