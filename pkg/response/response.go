package response

import (
	"net/http"

	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	str, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ParamUUID parses a path parameter as a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid " + name)
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code == http.StatusInternalServerError {
		logger.L().Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("internal error")
		c.JSON(code, gin.H{"error": apperror.ErrPersistence.Error()})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
