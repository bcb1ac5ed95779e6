package handlers

import (
	"errors"
	"net/http"
	"time"

	"campusoul/internal/config"
	"campusoul/internal/models"
	"campusoul/internal/redis"
	"campusoul/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	cfg   *config.Config
}

type RegisterRequest struct {
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required,min=8"`
	Name      string   `json:"name" binding:"required"`
	Birthdate string   `json:"birthdate" binding:"required"`
	Bio       *string  `json:"bio,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" binding:"omitempty,latitude_range"`
	Longitude *float64 `json:"longitude,omitempty" binding:"omitempty,longitude_range"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func NewAuthHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		db:    db,
		redis: redisClient,
		cfg:   cfg,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birthdate format. Use YYYY-MM-DD"})
		return
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Latitude and longitude must be provided together"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Birthdate:    birthdate,
		Bio:          req.Bio,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		LastActive:   time.Now(),
	}

	// The unique index on email is the authority, so a concurrent
	// duplicate registration cannot slip past a prior existence check.
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, h.cfg.JWTExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.storeSession(c, user.ID, token)

	logrus.WithField("user_id", user.ID).Info("User registered")

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, h.cfg.JWTExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	h.storeSession(c, user.ID, token)

	h.db.Model(&user).UpdateColumn("last_active", time.Now())

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID := currentUserID(c)

	if h.redis != nil {
		h.redis.Del(c.Request.Context(), redis.SessionKey(userID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) storeSession(c *gin.Context, userID uint, token string) {
	if h.redis == nil {
		return
	}

	if err := h.redis.Set(c.Request.Context(), redis.SessionKey(userID), token, h.cfg.JWTExpiry); err != nil {
		logrus.WithError(err).Warn("Failed to store session")
	}
}
