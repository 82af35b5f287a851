package serverutils

import (
	"errors"

	"tokinarc-sales-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is returned by services when a requested resource is missing.
var ErrNotFound = errors.New("not found")

// StatusFor maps an error to the HTTP status the API reports for it.
func StatusFor(err error) int {
	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve), errors.Is(err, rag.ErrEmptyMessage):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, rag.ErrValidationRejected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrUpstreamUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware converts errors returned by handlers into the
// standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		res := ErrorResponse(code, err.Error())
		var ve *ValidationError
		if errors.As(err, &ve) {
			res.Message = "Validation failed"
			res.Errors = ve.Fields
		}
		return ctx.Status(code).JSON(res)
	}
}
