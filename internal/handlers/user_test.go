package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"campusoul/internal/config"
	"campusoul/internal/middleware"
	"campusoul/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	db := newTestDB(t)
	discovery := services.NewDiscoveryService(db, 20)
	matching := services.NewMatchingService(db)
	handler := NewUserHandler(db, config.Load(), discovery, matching)

	router := gin.New()
	authed := router.Group("", middleware.AuthRequired(db, nil))
	authed.GET("/users/:userId", handler.GetProfile)
	authed.PATCH("/users/:userId", middleware.SelfRequired(), handler.UpdateProfile)
	return router, db
}

func TestUpdateProfile(t *testing.T) {
	router, db := newUserRouter(t)

	alice, token := createAuthedUser(t, db, "alice@example.com")

	resp := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), token, gin.H{
		"name":      "Alice",
		"bio":       "hello there",
		"latitude":  46.52,
		"longitude": 6.63,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		User struct {
			Name      string   `json:"name"`
			Bio       *string  `json:"bio"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Alice", body.User.Name)
	require.NotNil(t, body.User.Bio)
	assert.Equal(t, "hello there", *body.User.Bio)
	require.NotNil(t, body.User.Latitude)
	assert.InDelta(t, 46.52, *body.User.Latitude, 0.001)
}

func TestUpdateProfileOtherUserForbidden(t *testing.T) {
	router, db := newUserRouter(t)

	alice, _ := createAuthedUser(t, db, "alice@example.com")
	_, bobToken := createAuthedUser(t, db, "bob@example.com")

	resp := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), bobToken, gin.H{
		"name": "Mallory",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestUpdateProfileUnpairedCoordinates(t *testing.T) {
	router, db := newUserRouter(t)

	alice, token := createAuthedUser(t, db, "alice@example.com")

	resp := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), token, gin.H{
		"latitude": 46.52,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
