package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"campusoul/internal/config"
	"campusoul/internal/models"
	"campusoul/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ImageHandler stores profile images in object storage and tracks them
// as user-owned references.
type ImageHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	storage *services.StorageService
}

func NewImageHandler(db *gorm.DB, cfg *config.Config, storage *services.StorageService) *ImageHandler {
	return &ImageHandler{
		db:      db,
		cfg:     cfg,
		storage: storage,
	}
}

func (h *ImageHandler) UploadImage(c *gin.Context) {
	userID := currentUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if err := h.validateImageFile(header); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ext := filepath.Ext(header.Filename)
	key := fmt.Sprintf("images/%d/%s%s", userID, uuid.New().String(), ext)

	url, err := h.storage.Upload(c.Request.Context(), file, header.Size, key, header.Header.Get("Content-Type"))
	if err != nil {
		logrus.WithError(err).Error("Image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
		return
	}

	image := models.Image{UserID: userID, URL: url}
	if err := h.db.Create(&image).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"image": image})
}

func (h *ImageHandler) GetImage(c *gin.Context) {
	imageID, err := strconv.ParseUint(c.Param("imageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	var image models.Image
	if err := h.db.First(&image, imageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": image})
}

func (h *ImageHandler) DeleteImage(c *gin.Context) {
	userID := currentUserID(c)

	imageID, err := strconv.ParseUint(c.Param("imageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	var image models.Image
	if err := h.db.First(&image, imageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	if image.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if err := h.storage.Delete(c.Request.Context(), image.URL); err != nil {
		// Keep going: the database reference is authoritative.
		logrus.WithError(err).Warn("Failed to delete image from storage")
	}

	if err := h.db.Delete(&image).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

func (h *ImageHandler) validateImageFile(header *multipart.FileHeader) error {
	if header.Size > h.cfg.MaxFileSize {
		return fmt.Errorf("file too large, maximum size is %d bytes", h.cfg.MaxFileSize)
	}

	contentType := header.Header.Get("Content-Type")
	for _, allowed := range h.cfg.AllowedImageTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid file type, allowed types are: %s", strings.Join(h.cfg.AllowedImageTypes, ", "))
}
