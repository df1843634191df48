package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"task-tracker/internal/database"
	"task-tracker/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type registerForm struct {
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"max=100"`
	Role        string `json:"role" binding:"omitempty,oneof=LEADER MEMBER"`
}

func Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	// min=3 в биндинге считает и пробелы, поэтому длину проверяем после обрезки
	form.Username = strings.TrimSpace(form.Username)
	if len(form.Username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	// через API регистрируются только LEADER / MEMBER, админ — из конфига
	role := models.GlobalRole(form.Role)
	if role == "" {
		role = models.RoleMember
	}

	var existing models.User
	if err := database.DB.Where("username = ?", form.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"code": "username_taken", "message": "Пользователь уже существует"})
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	user := models.User{
		Username:     form.Username,
		DisplayName:  strings.TrimSpace(form.DisplayName),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка сохранения пользователя"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

type loginForm struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", form.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_credentials", "message": "Неверный логин или пароль"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_credentials", "message": "Неверный логин или пароль"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	_ = sess.Save()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка выпуска токена"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed, "user": user})
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
