package handlers

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"foodorder/internal/services"
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:      fiber.StatusBadRequest,
	services.KindUnauthenticated: fiber.StatusUnauthorized,
	services.KindAuthorization:   fiber.StatusForbidden,
	services.KindNotFound:        fiber.StatusNotFound,
	services.KindInvalidState:    fiber.StatusConflict,
	services.KindWindowExpired:   fiber.StatusConflict,
}

// StatusFor returns the HTTP status of a service error kind.
func StatusFor(kind services.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler as
// {"success":false,"error":kind,"message":text}. In production the text of
// unclassified errors is replaced by a generic message.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		kind := string(services.KindInternal)
		message := err.Error()

		var se *services.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &se):
			status = StatusFor(se.Kind)
			kind = string(se.Kind)
			message = se.Message
		case errors.As(err, &fe):
			status = fe.Code
			kind = httpKind(fe.Code)
			message = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).Error("request failed")
			if production {
				message = "Internal server error"
			}
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   kind,
			"message": message,
		})
	}
}

func httpKind(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return string(services.KindNotFound)
	case fiber.StatusUnauthorized:
		return string(services.KindUnauthenticated)
	case fiber.StatusForbidden:
		return string(services.KindAuthorization)
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return string(services.KindValidation)
	}
	if code >= fiber.StatusInternalServerError {
		return string(services.KindInternal)
	}
	return "http"
}

// bindAndValidate parses the body into req and runs the struct validator on it.
func bindAndValidate(c *fiber.Ctx, validate *validator.Validate, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		logrus.WithError(err).WithField("path", c.Path()).Debug("invalid request body")
		return services.ValidationError("Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return services.ValidationError("Validation failed")
		}
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag()))
		}
		return services.ValidationError("Validation failed: %s", strings.Join(messages, "; "))
	}
	return nil
}
