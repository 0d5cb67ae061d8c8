/**
 * @description
 * HTTP Handlers for the AI Oracle.
 *
 * @dependencies
 * - backend/internal/services
 * - github.com/gofiber/fiber/v2
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kalshi-pulse/backend/internal/apperr"
	"github.com/kalshi-pulse/backend/internal/services"
)

type OracleHandler struct {
	Service *services.OracleService
}

func NewOracleHandler(service *services.OracleService) *OracleHandler {
	return &OracleHandler{Service: service}
}

type predictRequest struct {
	ForceRefresh bool `json:"force_refresh"`
}

// Predict synchronously runs the estimation pipeline for one event and
// returns the recorded prediction.
// POST /api/v1/events/:id/predict
func (h *OracleHandler) Predict(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, apperr.Validation("event id must be a positive integer", err))
	}

	var req predictRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, apperr.Validation("invalid request body", err))
		}
	}

	prediction, err := h.Service.Predict(c.Context(), uint64(id), req.ForceRefresh)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(prediction)
}
