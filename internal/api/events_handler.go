package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// handleEventStream handles GET /api/events
// Server-Sent Events endpoint for store and scan change notifications
func (s *Server) handleEventStream(c *fiber.Ctx) error {
	// Set SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// The stream writer runs after this handler returns, so its lifetime
	// cannot be tied to anything handler-scoped. The loop ends when the
	// subscriber channel closes (broadcaster shutdown) or a flush fails
	// (client disconnect).
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		subID, eventCh := s.broadcaster.Subscribe()
		defer s.broadcaster.Unsubscribe(subID)

		// Send the current state first so clients can render immediately.
		st := s.libraryService.Store()
		initialData, err := json.Marshal(fiber.Map{
			"type": "initial",
			"data": fiber.Map{
				"total": st.Len(),
				"busy":  s.libraryService.Busy(),
			},
		})
		if err != nil {
			slog.Error("Failed to marshal initial event state", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", initialData)
		if err := w.Flush(); err != nil {
			return
		}

		// Keep-alive comments prevent proxies from dropping idle streams.
		keepAliveTicker := time.NewTicker(30 * time.Second)
		defer keepAliveTicker.Stop()

		for {
			select {
			case ev, ok := <-eventCh:
				if !ok {
					return
				}

				eventData, err := json.Marshal(fiber.Map{
					"type": "event",
					"data": ev,
				})
				if err != nil {
					slog.Error("Failed to marshal event", "error", err, "event_type", ev.Type)
					continue
				}

				fmt.Fprintf(w, "data: %s\n\n", eventData)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-keepAliveTicker.C:
				fmt.Fprintf(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
