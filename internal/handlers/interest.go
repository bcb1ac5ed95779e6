package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"campusoul/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InterestHandler manages the admin-maintained interest catalog.
type InterestHandler struct {
	db *gorm.DB
}

type CreateInterestRequest struct {
	Name string `json:"name" binding:"required"`
}

func NewInterestHandler(db *gorm.DB) *InterestHandler {
	return &InterestHandler{db: db}
}

func (h *InterestHandler) ListInterests(c *gin.Context) {
	var interests []models.Interest
	if err := h.db.Order("name ASC").Find(&interests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch interests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interests": interests})
}

func (h *InterestHandler) CreateInterest(c *gin.Context) {
	var req CreateInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Interest name required"})
		return
	}

	var existing models.Interest
	if err := h.db.Where("name = ?", name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Interest already exists"})
		return
	}

	interest := models.Interest{Name: name}
	if err := h.db.Create(&interest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create interest"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"interest": interest})
}

func (h *InterestHandler) DeleteInterest(c *gin.Context) {
	interestID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interest ID"})
		return
	}

	var interest models.Interest
	if err := h.db.First(&interest, interestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Interest not found"})
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("interest_id = ?", interestID).Delete(&models.UserInterest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&interest).Error
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete interest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Interest deleted"})
}
