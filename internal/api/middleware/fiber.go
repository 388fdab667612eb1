package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vendorgate/internal/metrics"
	"vendorgate/internal/models"
)

// RateLimitReachedFiber answers a rate limited request.
func RateLimitReachedFiber(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).SendString("Too Many Requests")
}

// RecoverFiber turns a handler panic into a 500 envelope.
func RecoverFiber(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Path()),
					zap.Stack("stack"),
				)
				err = c.Status(fiber.StatusInternalServerError).JSON(models.Fail("Internal server error"))
			}
		}()
		return c.Next()
	}
}

// RequestLoggerFiber logs each request once it completes and records metrics.
func RequestLoggerFiber(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if err != nil {
			status = fiber.StatusInternalServerError
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		route := c.Route().Path
		metrics.ObserveRequest(c.Method(), route, status, duration)

		log.Info("Request completed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
			zap.String("request_id", RequestID(c)),
		)
		return err
	}
}

// ErrorHandlerFiber is the app-wide error handler. Only *fiber.Error messages
// reach the caller.
func ErrorHandlerFiber(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("Unhandled error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(models.Fail(message))
	}
}

// NotFoundFiber answers routes nothing else matched.
func NotFoundFiber(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "Route not found",
		"path":    c.Path(),
	})
}
