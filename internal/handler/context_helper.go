package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/middleware"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorIDFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
