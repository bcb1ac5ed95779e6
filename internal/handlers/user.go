package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"campusoul/internal/config"
	"campusoul/internal/models"
	"campusoul/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserHandler struct {
	db        *gorm.DB
	cfg       *config.Config
	discovery *services.DiscoveryService
	matching  *services.MatchingService
}

type UpdateProfileRequest struct {
	Name      string   `json:"name,omitempty"`
	Bio       *string  `json:"bio,omitempty"`
	Birthdate string   `json:"birthdate,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" binding:"omitempty,latitude_range"`
	Longitude *float64 `json:"longitude,omitempty" binding:"omitempty,longitude_range"`
}

type AddInterestRequest struct {
	InterestID uint `json:"interest_id" binding:"required"`
}

type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token" binding:"required"`
}

func NewUserHandler(db *gorm.DB, cfg *config.Config, discovery *services.DiscoveryService, matching *services.MatchingService) *UserHandler {
	return &UserHandler{
		db:        db,
		cfg:       cfg,
		discovery: discovery,
		matching:  matching,
	}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.Preload("Interests").Preload("Images").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := currentUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.Birthdate != "" {
		birthdate, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birthdate format. Use YYYY-MM-DD"})
			return
		}
		user.Birthdate = birthdate
	}
	if req.Latitude != nil {
		user.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		user.Longitude = req.Longitude
	}
	if (user.Latitude == nil) != (user.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Latitude and longitude must be provided together"})
		return
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	if err := h.db.Preload("Interests").Preload("Images").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := currentUserID(c)

	if err := h.db.Delete(&models.User{}, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	logrus.WithField("user_id", userID).Info("User deleted")

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// DiscoverUsers is the paginated candidate query. Users the requester
// already liked or matched with never show up; extra ids can be
// excluded with the exclude query parameter.
func (h *UserHandler) DiscoverUsers(c *gin.Context) {
	userID := currentUserID(c)

	var requester models.User
	if err := h.db.First(&requester, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	minAge := parseIntQuery(c, "minAge", 18)
	maxAge := parseIntQuery(c, "maxAge", 99)
	page := parseIntQuery(c, "page", 1)
	maxDistance, _ := strconv.ParseFloat(c.DefaultQuery("maxDistance", "0"), 64)

	excludeIDs, err := h.matching.RelatedUserIDs(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, raw := range strings.Split(c.Query("exclude"), ",") {
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid exclude parameter"})
			return
		}
		excludeIDs = append(excludeIDs, uint(id))
	}

	candidates, err := h.discovery.FindCandidates(services.DiscoveryParams{
		RequesterID:   userID,
		MinAge:        minAge,
		MaxAge:        maxAge,
		Origin:        &requester,
		MaxDistanceKm: maxDistance,
		ExcludeIDs:    excludeIDs,
		Page:          page,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": candidates,
		"pagination": gin.H{
			"page":  page,
			"limit": h.discovery.PageSize(),
		},
	})
}

// AddInterest tags the profile with an interest, capped at five.
func (h *UserHandler) AddInterest(c *gin.Context) {
	userID := currentUserID(c)

	var req AddInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var interest models.Interest
	if err := h.db.First(&interest, req.InterestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Interest not found"})
		return
	}

	var existing models.UserInterest
	if err := h.db.Where("user_id = ? AND interest_id = ?", userID, req.InterestID).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Interest already added"})
		return
	}

	var count int64
	h.db.Model(&models.UserInterest{}).Where("user_id = ?", userID).Count(&count)
	if count >= models.MaxInterestsPerUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Interest limit reached"})
		return
	}

	link := models.UserInterest{UserID: userID, InterestID: req.InterestID}
	if err := h.db.Create(&link).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add interest"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Interest added"})
}

func (h *UserHandler) RemoveInterest(c *gin.Context) {
	userID := currentUserID(c)

	interestID, err := strconv.ParseUint(c.Param("interestId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interest ID"})
		return
	}

	if err := h.db.Where("user_id = ? AND interest_id = ?", userID, interestID).
		Delete(&models.UserInterest{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove interest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Interest removed"})
}

// RegisterDeviceToken stores the FCM token used for mobile push.
func (h *UserHandler) RegisterDeviceToken(c *gin.Context) {
	userID := currentUserID(c)

	var req DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("device_token", req.DeviceToken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store device token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device token registered"})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	if value, err := strconv.Atoi(c.Query(name)); err == nil {
		return value
	}
	return fallback
}
