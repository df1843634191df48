package middleware

import (
	"strconv"
	"strings"

	"task-tracker/internal/database"
	"task-tracker/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// InjectUser кладёт текущего пользователя в контекст. Источника два:
// cookie-сессия браузера либо Bearer-токен API-клиента.
func InjectUser(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := userIDFromSession(c); ok {
			setUser(c, uid)
		} else if uid, ok := userIDFromBearer(c, jwtSecret); ok {
			setUser(c, uid)
		}

		c.Next()
	}
}

func setUser(c *gin.Context, uid uint) {
	var user models.User
	if err := database.DB.First(&user, uid).Error; err == nil {
		c.Set("CurrentUser", user)
	}
}

func userIDFromSession(c *gin.Context) (uint, bool) {
	sess := sessions.Default(c)
	if uidRaw := sess.Get("user_id"); uidRaw != nil {
		if uid, ok := uidRaw.(uint); ok && uid > 0 {
			return uid, true
		}
	}
	return 0, false
}

func userIDFromBearer(c *gin.Context, secret string) (uint, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return 0, false
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || uid == 0 {
		return 0, false
	}
	return uint(uid), true
}

// CurrentUser достаёт пользователя, положенного InjectUser.
func CurrentUser(c *gin.Context) (models.User, bool) {
	if uVal, ok := c.Get("CurrentUser"); ok {
		if u, ok := uVal.(models.User); ok {
			return u, true
		}
	}
	return models.User{}, false
}
