package Controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"Maintenance/Records"
	"Maintenance/Storage"
)

// writeError maps service errors onto response codes. Upstream failures are
// logged and, in production, answered without detail.
func writeError(c *fiber.Ctx, err error, production bool) error {
	var (
		validation *Records.ValidationError
		unknown    *Records.UnknownFieldsError
		notFound   *Records.NotFoundError
		header     *Records.HeaderError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": validation.Error(),
			"fields":  validation.Fields,
		})
	case errors.As(err, &unknown):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":        "error",
			"message":       unknown.Error(),
			"unknownFields": unknown.Fields,
		})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":   "error",
			"message":  notFound.Error(),
			"knownIds": notFound.Known,
		})
	case errors.Is(err, Records.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "error",
			"message": "invalid credentials",
		})
	case errors.Is(err, Storage.ErrPhotoNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "photo not found",
		})
	case errors.As(err, &header):
		log.Printf("[api] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": header.Error(),
		})
	}

	log.Printf("[api] %s %s: %v", c.Method(), c.Path(), err)
	message := err.Error()
	if production {
		message = "internal server error"
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}
