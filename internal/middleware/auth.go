package middleware

import (
	"net/http"

	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthenticated",
				"message": "Требуется вход",
			})
			return
		}
		c.Next()
	}
}

func RequireGlobalRole(roles ...models.GlobalRole) gin.HandlerFunc {
	roleSet := map[models.GlobalRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthenticated",
				"message": "Требуется вход",
			})
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "not_authorized",
				"message": "Недостаточно прав",
			})
			return
		}
		c.Next()
	}
}
