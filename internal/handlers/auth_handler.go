package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/config"
	"github.com/junyours/CSDL/internal/mailer"
	"github.com/junyours/CSDL/models"
)

const tokenTTL = 24 * time.Hour

// LoginHandler аутентифицирует пользователя по номеру и паролю и выдает
// JWT. В strict-режиме студент без активного модераторства не может
// войти: отметки все равно принимаются только с устройств модераторов.
func LoginHandler(c *gin.Context) {
	var req struct {
		UserIDNo string `json:"user_id_no" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "user_id_no and password are required."})
		return
	}

	var user models.User
	if err := config.DB.Where("user_id_no = ?", req.UserIDNo).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	if user.IsStudent() && StrictModeEnabled() {
		var moderatorCount int64
		config.DB.Model(&models.UserModerator{}).
			Where("user_id = ? AND is_removed = ?", user.ID, false).
			Count(&moderatorCount)
		if moderatorCount == 0 {
			c.JSON(http.StatusForbidden, gin.H{"message": "You are not allowed to login in strict mode"})
			return
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(config.JwtKey)
	if err != nil {
		slog.Error("Ошибка подписи токена", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue token."})
		return
	}

	c.SetCookie("auth_token", signed, int(tokenTTL.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"token": signed,
		"user": gin.H{
			"id":            user.ID,
			"user_id_no":    user.UserIDNo,
			"role":          user.UserRole,
			"face_enrolled": user.FaceEnrolled,
		},
	})
}

// LogoutHandler снимает cookie сессии.
func LogoutHandler(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// MeHandler возвращает текущего пользователя.
func MeHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.GetUint("user_id")).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePasswordHandler меняет пароль текущего пользователя и сбрасывает
// его кешированные данные.
func ChangePasswordHandler(c *gin.Context) {
	var req struct {
		NewPassword             string `json:"new_password" binding:"required,min=8"`
		NewPasswordConfirmation string `json:"new_password_confirmation" binding:"required,eqfield=NewPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation failed.", "errors": err.Error()})
		return
	}

	userID := c.GetUint("user_id")

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	if err := config.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("password", string(hashed)).Error; err != nil {
		slog.Error("Ошибка смены пароля", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to change password."})
		return
	}

	// Ключ совпадает с кешем AuthMiddleware.
	config.CacheDelete(fmt.Sprintf("user:%d:data", userID))

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// UpdateFaceEnrolledHandler фиксирует завершение регистрации лица.
func UpdateFaceEnrolledHandler(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	if err := config.DB.Model(&user).Update("face_enrolled", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update face enrollment."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Face enrollment completed",
		"user": gin.H{
			"id":            user.ID,
			"user_id_no":    user.UserIDNo,
			"role":          user.UserRole,
			"face_enrolled": true,
		},
	})
}

// UpdateProfilePhotoHandler - загрузка фото профиля текущего пользователя.
func UpdateProfilePhotoHandler(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Photo file is required."})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Unsupported photo format."})
		return
	}

	uploadDir := "./static/uploads/users"
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		os.MkdirAll(uploadDir, os.ModePerm)
	}

	newFileName := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(uploadDir, newFileName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save photo."})
		return
	}

	photoURL := "/static/uploads/users/" + newFileName
	if err := config.DB.Model(&user).Update("profile_photo", photoURL).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update profile photo."})
		return
	}

	// Сбрасываем кеш, чтобы middleware отдал обновленный профиль.
	config.CacheDelete(fmt.Sprintf("user:%d:data", userID))

	c.JSON(http.StatusOK, gin.H{
		"message":       "Profile photo updated",
		"profile_photo": photoURL,
	})
}

// CreateUserRequest - тело создания учетной записи администратором.
type CreateUserRequest struct {
	UserIDNo string `json:"user_id_no" binding:"required,max=255"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name"`
	UserRole string `json:"user_role" binding:"required,oneof=admin security student"`
	Password string `json:"password"`
}

// CreateUserHandler создает пользователя. Пустой пароль генерируется и
// отправляется на почту.
func CreateUserHandler(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation failed.", "errors": err.Error()})
		return
	}

	password := req.Password
	generated := false
	if password == "" {
		var err error
		password, err = randomPassword(10)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate password."})
			return
		}
		generated = true
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	user := models.User{
		UserIDNo: req.UserIDNo,
		Password: string(hashed),
		UserRole: req.UserRole,
		Email:    req.Email,
		FullName: req.FullName,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "user_id_no already exists."})
			return
		}
		slog.Error("Ошибка создания пользователя", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user."})
		return
	}

	if generated && user.Email != "" {
		if err := mailer.SendUserCredentials(user.Email, user.UserIDNo, password); err != nil {
			slog.Warn("Не удалось отправить письмо с учетными данными", "error", err, "email", user.Email)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"data":    user,
	})
}

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomPassword(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
