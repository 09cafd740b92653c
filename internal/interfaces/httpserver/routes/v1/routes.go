// Package v1 registers the versioned API routes.
package v1

import (
	"github.com/gin-gonic/gin"

	"leafwise-server/internal/interfaces/httpserver/handlers"
)

// Routes wires handlers onto the /v1 route group.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes creates the v1 route registrar.
func NewRoutes(handlers *handlers.Provider) *Routes {
	return &Routes{handlers: handlers}
}

// Register mounts all v1 endpoints on the given group.
func (r *Routes) Register(group *gin.RouterGroup) {
	v1 := group.Group("/v1")

	analyses := v1.Group("/analyses")
	analyses.POST("", r.handlers.Analysis.Create)
	analyses.GET("/:id", r.handlers.Analysis.Get)

	usage := v1.Group("/usage")
	usage.GET("/me", r.handlers.Usage.Me)
}
