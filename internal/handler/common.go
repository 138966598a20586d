package handler // handler defines the HTTP handlers of the inventory API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/middleware"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`             // stable machine-readable code
	Message string `json:"message,omitempty"` // human-readable detail
}

// statusFor maps an error code to its HTTP status.
func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeConfiguration:
		return http.StatusUnprocessableEntity
	case apperror.CodeInvalidTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err.  Errors outside the taxonomy are logged and
// reported without detail.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	code := apperror.CodeOf(err)
	if code == apperror.CodeInternal {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("id", c.Param("id")),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorBody{Error: string(code), Message: "internal error"})
	}
	return c.JSON(statusFor(code), errorBody{Error: string(code), Message: err.Error()})
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("id", "must be a positive integer, got %q", c.Param("id"))
	}
	return id, nil
}

// getUserID returns the authenticated caller.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}
