/**
 * @description
 * HTTP Handler to trigger an ingestion cycle on demand.
 * Guarded by a shared job secret so only the scheduler can invoke it.
 *
 * @dependencies
 * - backend/internal/services
 * - github.com/gofiber/fiber/v2
 */

package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/kalshi-pulse/backend/internal/services"
)

type IngestHandler struct {
	Service   *services.IngestService
	JobSecret string
}

func NewIngestHandler(service *services.IngestService, jobSecret string) *IngestHandler {
	return &IngestHandler{Service: service, JobSecret: jobSecret}
}

// TriggerIngest runs one ingestion cycle synchronously and returns its report
// POST /api/v1/ingest
func (h *IngestHandler) TriggerIngest(c *fiber.Ctx) error {
	if h.JobSecret != "" {
		provided := c.Get("X-Job-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.JobSecret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "UNAUTHORIZED",
					"message": "invalid job secret",
				},
			})
		}
	}

	report, err := h.Service.RunCycle(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
