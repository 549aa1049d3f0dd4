package api

import (
	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler back office API handlers. Every route runs behind the actor middleware.
type Handler struct {
	*provider.Container
}

// New creates the handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "invalid request body", nil)
		handlershared.RequestLog(c).Debugw("handler_bind_failed", "error", err)
		return false
	}
	return true
}
