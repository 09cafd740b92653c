package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"leafwise-server/internal/utils/platformerrors"
)

// ErrorResponse is the caller-facing error envelope. The message never
// carries upstream provider detail.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError translates an error into a caller-safe JSON response. Raw error
// text is logged server-side only.
func WriteError(c *gin.Context, log zerolog.Logger, err error) {
	var pe *platformerrors.PlatformError
	if errors.As(err, &pe) {
		c.JSON(pe.HTTPStatus(), ErrorResponse{
			Code:    string(pe.Type),
			Message: pe.CallerMessage(),
		})
		return
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unclassified handler error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    string(platformerrors.ErrorTypeInternal),
		Message: "internal server error",
	})
}

// WriteValidationError writes a 400 with the given caller-safe message.
func WriteValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    string(platformerrors.ErrorTypeValidation),
		Message: message,
	})
}
