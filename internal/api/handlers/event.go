/**
 * @description
 * Event API Handlers.
 * Exposes the dashboard listing, event detail, and the SSE stream of
 * ingestion cycle reports.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/services"
)

type EventHandler struct {
	Service *services.EventService
}

func NewEventHandler(service *services.EventService) *EventHandler {
	return &EventHandler{Service: service}
}

// ListEvents returns active events with their latest market data and prediction
// GET /api/v1/events
func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	list, err := h.Service.ListEvents(c.Context(), services.ListEventsParams{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    c.QueryInt("limit", 0),
		Offset:   c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetEventDetail returns one event with chart and prediction history
// GET /api/v1/events/:id
func (h *EventHandler) GetEventDetail(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, apperr.Validation("event id must be a positive integer", err))
	}

	detail, err := h.Service.GetEventDetail(c.Context(), uint64(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// StreamReports streams ingestion cycle reports over SSE
// GET /api/v1/events/stream
func (h *EventHandler) StreamReports(c *fiber.Ctx) error {
	if h.Service.Redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "UNAVAILABLE",
				"message": "report streaming is not enabled",
			},
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()

	ctx, cancel := context.WithCancel(context.Background())

	pubsub := h.Service.Redis.Subscribe(ctx, services.ReportChannel)
	ch := pubsub.Channel()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()
			_ = pubsub.Close()
		}()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
