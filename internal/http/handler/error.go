package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"mediavault/internal/editor"
	"mediavault/internal/fetch"
	"mediavault/internal/http/middleware"
	"mediavault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// apiError is a handler-level failure with a fixed status and code.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(code, message string) error {
	return &apiError{status: fiber.StatusBadRequest, code: code, message: message}
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "VALIDATION_ERROR", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		Success:   false,
		Message:   message,
		Code:      code,
		RequestID: middleware.GetRequestID(c),
	})
}

// writeSuccess writes {"success": true, "message": ..., <key>: value, ...}.
func writeSuccess(c *fiber.Ctx, status int, message string, fields fiber.Map) error {
	body := fiber.Map{"success": true, "message": message}
	for k, v := range fields {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusBadGateway:
		return "BAD_GATEWAY"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Handlers return service errors unchanged and this maps them to a status.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var (
			ae *apiError
			fe *fiber.Error
			ve *service.ValidationError
			oe *editor.OperationError
		)
		switch {
		case errors.As(err, &ae):
			return writeError(c, ae.status, ae.code, ae.message)
		case errors.As(err, &fe):
			return writeError(c, fe.Code, codeFor(fe.Code), fe.Message)
		case errors.As(err, &ve):
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", ve.Message)
		case errors.Is(err, service.ErrNotFound):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "Resource not found")
		case errors.Is(err, service.ErrForbidden):
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "You are not allowed to modify this resource")
		case errors.Is(err, service.ErrEmailTaken):
			return writeError(c, fiber.StatusConflict, "CONFLICT", "Email already used")
		case errors.Is(err, service.ErrConflict):
			return writeError(c, fiber.StatusConflict, "CONFLICT", "Resource was modified concurrently, retry the request")
		case errors.Is(err, service.ErrInvalidCredentials):
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		case errors.Is(err, service.ErrInvalidToken):
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		case errors.Is(err, editor.ErrInvalidInput):
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, fetch.ErrInvalidURL):
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "videoUrl must be an http or https URL")
		case errors.Is(err, fetch.ErrTooLarge):
			return writeError(c, fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Remote media exceeds the size limit")
		case errors.Is(err, editor.ErrEmptyOutput):
			logFailure(c, log, err)
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Output file is empty")
		case errors.As(err, &oe):
			logFailure(c, log, err)
			return writeError(c, fiber.StatusInternalServerError, "EDITOR_FAILED", oe.Error())
		default:
			logFailure(c, log, err)
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
	}
}

func logFailure(c *fiber.Ctx, log *zap.Logger, err error) {
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	}
	if sc := trace.SpanFromContext(c.UserContext()).SpanContext(); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	log.Error("request_failed", fields...)
}
