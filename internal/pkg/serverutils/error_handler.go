package serverutils

import (
	"errors"

	"studymate-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// NotFoundRedirect points clients back at the upload/selection entry point.
const NotFoundRedirect = "/api/books"

func StatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidUpload:
		return fiber.StatusBadRequest
	case apperr.KindExtractionFailed:
		return fiber.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindInferenceFailed, apperr.KindSynthesisFailed:
		return fiber.StatusBadGateway
	case apperr.KindInferenceTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		res := ErrorResponse(fiber.StatusUnprocessableEntity, validationErr.Error())
		res.Errors = validationErr.Fields
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(res)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		code := StatusForKind(appErr.Kind)
		res := ErrorResponse(code, appErr.Message)
		if appErr.Kind == apperr.KindNotFound {
			res.Redirect = NotFoundRedirect
		}
		if len(appErr.Details) > 0 {
			res.Errors = appErr.Details
		}
		return ctx.Status(code).JSON(res)
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return ErrorHandler(ctx, err)
	}
}
