/**
 * @description
 * Shared error response helper.
 * Translates typed application errors into the API's error envelope; no
 * stack traces or raw driver errors cross the boundary.
 *
 * @dependencies
 * - backend/internal/apperr
 * - github.com/gofiber/fiber/v2
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kalshi-pulse/backend/internal/apperr"
)

func respondError(c *fiber.Ctx, err error) error {
	code := apperr.Code(err)

	status := fiber.StatusInternalServerError
	switch code {
	case apperr.CodeNotFound:
		status = fiber.StatusNotFound
	case apperr.CodeValidation:
		status = fiber.StatusBadRequest
	case apperr.CodeConflict:
		status = fiber.StatusConflict
	case apperr.CodeUpstream:
		status = fiber.StatusBadGateway
	case "":
		code = "INTERNAL_ERROR"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": apperr.Message(err),
		},
	})
}
