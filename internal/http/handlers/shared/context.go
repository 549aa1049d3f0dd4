package shared

import (
	"strconv"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by the actor middleware
const (
	ActorIDKey   = "actor_id"
	ActorRoleKey = "actor_role"
)

// GetActor reads the authenticated actor; writes a 401 when absent
func GetActor(c *gin.Context) (service.Actor, bool) {
	value, exists := c.Get(ActorIDKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return service.Actor{}, false
	}
	var id uint
	switch v := value.(type) {
	case uint:
		id = v
	case int:
		if v > 0 {
			id = uint(v)
		}
	case float64:
		if v > 0 {
			id = uint(v)
		}
	}
	if id == 0 {
		RespondError(c, response.CodeUnauthorized, "actor id invalid", nil)
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: c.GetString(ActorRoleKey)}, true
}

// ParamUint reads a positive uint path parameter; writes a 400 when invalid
func ParamUint(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(value), true
}

// QueryUint reads an optional uint query value; zero when absent or invalid
func QueryUint(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}
