package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"leafwise-server/internal/domain/analysis"
	"leafwise-server/internal/interfaces/httpserver/middlewares"
	"leafwise-server/internal/interfaces/httpserver/responses"
)

// UsageHandler exposes the caller's free-tier standing.
type UsageHandler struct {
	service *analysis.Service
	log     zerolog.Logger
}

func NewUsageHandler(service *analysis.Service, log zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		service: service,
		log:     log.With().Str("component", "usage-handler").Logger(),
	}
}

// Me returns the caller's remaining free-tier allowance.
func (h *UsageHandler) Me(c *gin.Context) {
	userID := c.GetHeader(middlewares.UserIDHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, responses.ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "missing " + middlewares.UserIDHeader + " header",
		})
		return
	}

	status, err := h.service.FreeTierStatus(c.Request.Context(), userID)
	if err != nil {
		responses.WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.UsageResponse{
		Subscribed:       status.Subscribed,
		Eligible:         status.Eligible,
		RemainingUses:    status.RemainingUses,
		DaysLeftInWindow: status.DaysLeftInWindow,
	})
}
