package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusoul/internal/middleware"
	"campusoul/internal/models"
	"campusoul/internal/services"
	"campusoul/internal/utils"
	"campusoul/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryCache is an in-process MatchCache used to exercise the cache
// read path without a redis server.
type memoryCache struct {
	data map[string]map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]map[string]string)}
}

func (m *memoryCache) HSet(_ context.Context, key string, values ...interface{}) error {
	entry, ok := m.data[key]
	if !ok {
		entry = make(map[string]string)
		m.data[key] = entry
	}
	for i := 0; i+1 < len(values); i += 2 {
		entry[fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return nil
}

func (m *memoryCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.data[key], nil
}

func (m *memoryCache) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func newMatchRouter(t *testing.T, cache MatchCache) (*gin.Engine, *gorm.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	db := newTestDB(t)
	hub := websocket.NewHub()
	matching := services.NewMatchingService(db)
	messaging := services.NewMessagingService(db)

	matchHandler := NewMatchHandler(db, cache, matching, nil, hub)
	messageHandler := NewMessageHandler(db, messaging, nil, hub)

	router := gin.New()
	authed := router.Group("", middleware.AuthRequired(db, nil))
	authed.POST("/matchs/like", matchHandler.LikeUser)
	authed.GET("/matchs/list", matchHandler.ListMatches)
	authed.POST("/matchs/unmatch/:matchId", matchHandler.Unmatch)
	authed.GET("/matchs/:matchId", matchHandler.GetMatch)
	authed.POST("/messages/send", messageHandler.SendMessage)
	authed.GET("/messages/:matchId", messageHandler.GetMessages)
	authed.GET("/messages/:matchId/last", messageHandler.GetLastMessage)
	return router, db
}

func createAuthedUser(t *testing.T, db *gorm.DB, email string) (*models.User, string) {
	t.Helper()

	user := models.User{
		Email:        email,
		PasswordHash: "x",
		Name:         email,
		Birthdate:    time.Now().AddDate(-25, 0, -1),
		LastActive:   time.Now(),
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateToken(user.ID, user.Email, time.Hour)
	require.NoError(t, err)
	return &user, token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestMutualLikeFlow(t *testing.T) {
	router, db := newMatchRouter(t, nil)

	alice, aliceToken := createAuthedUser(t, db, "alice@example.com")
	bob, bobToken := createAuthedUser(t, db, "bob@example.com")

	// One-sided like: no match yet.
	resp := doJSON(t, router, http.MethodPost, "/matchs/like", aliceToken, gin.H{"to_user_id": bob.ID})
	require.Equal(t, http.StatusCreated, resp.Code)
	var likeBody map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &likeBody))
	assert.Contains(t, likeBody, "like")
	assert.NotContains(t, likeBody, "match")

	// Reciprocal like converts to a match.
	resp = doJSON(t, router, http.MethodPost, "/matchs/like", bobToken, gin.H{"to_user_id": alice.ID})
	require.Equal(t, http.StatusCreated, resp.Code)
	var matchBody struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &matchBody))
	matchID := matchBody.Match.ID
	require.NotZero(t, matchID)

	// Both participants see the pairing.
	for _, token := range []string{aliceToken, bobToken} {
		resp = doJSON(t, router, http.MethodGet, "/matchs/list", token, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		var list struct {
			Matches []services.MatchWithUser `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
		require.Len(t, list.Matches, 1)
		assert.Equal(t, matchID, list.Matches[0].ID)
	}

	// Messaging within the match.
	resp = doJSON(t, router, http.MethodPost, "/messages/send", aliceToken, gin.H{
		"match_id": matchID,
		"content":  "hello bob",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/messages/%d", matchID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var messages struct {
		Messages []services.MessageWithSender `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
	require.Len(t, messages.Messages, 1)
	assert.Equal(t, "hello bob", messages.Messages[0].Content)

	// Unmatch dissolves permanently.
	resp = doJSON(t, router, http.MethodPost, fmt.Sprintf("/matchs/unmatch/%d", matchID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/matchs/list", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var after struct {
		Matches []services.MatchWithUser `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &after))
	assert.Empty(t, after.Matches)
}

func TestUnmatchOutsiderForbidden(t *testing.T) {
	router, db := newMatchRouter(t, nil)

	alice, aliceToken := createAuthedUser(t, db, "alice@example.com")
	bob, bobToken := createAuthedUser(t, db, "bob@example.com")
	_, carolToken := createAuthedUser(t, db, "carol@example.com")

	doJSON(t, router, http.MethodPost, "/matchs/like", aliceToken, gin.H{"to_user_id": bob.ID})
	resp := doJSON(t, router, http.MethodPost, "/matchs/like", bobToken, gin.H{"to_user_id": alice.ID})
	require.Equal(t, http.StatusCreated, resp.Code)
	var matchBody struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &matchBody))

	resp = doJSON(t, router, http.MethodPost, fmt.Sprintf("/matchs/unmatch/%d", matchBody.Match.ID), carolToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSendMessageUnknownMatchNotFound(t *testing.T) {
	router, db := newMatchRouter(t, nil)

	_, token := createAuthedUser(t, db, "alice@example.com")

	resp := doJSON(t, router, http.MethodPost, "/messages/send", token, gin.H{
		"match_id": 999,
		"content":  "anyone there?",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetMatchServedFromCache(t *testing.T) {
	cache := newMemoryCache()
	router, db := newMatchRouter(t, cache)

	alice, aliceToken := createAuthedUser(t, db, "alice@example.com")
	bob, bobToken := createAuthedUser(t, db, "bob@example.com")
	_, carolToken := createAuthedUser(t, db, "carol@example.com")

	doJSON(t, router, http.MethodPost, "/matchs/like", aliceToken, gin.H{"to_user_id": bob.ID})
	resp := doJSON(t, router, http.MethodPost, "/matchs/like", bobToken, gin.H{"to_user_id": alice.ID})
	require.Equal(t, http.StatusCreated, resp.Code)
	var matchBody struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &matchBody))
	matchID := matchBody.Match.ID

	// The fresh match was written to the cache.
	require.Len(t, cache.data, 1)

	// Drop the row; the lookup is answered from the cache alone.
	require.NoError(t, db.Unscoped().Delete(&models.Match{}, matchID).Error)

	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/matchs/%d", matchID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
	assert.Equal(t, matchID, fetched.Match.ID)
	assert.True(t, fetched.Match.IsActive)

	// The cache path enforces participation too.
	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/matchs/%d", matchID), carolToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUnmatchEvictsCache(t *testing.T) {
	cache := newMemoryCache()
	router, db := newMatchRouter(t, cache)

	alice, aliceToken := createAuthedUser(t, db, "alice@example.com")
	bob, bobToken := createAuthedUser(t, db, "bob@example.com")

	doJSON(t, router, http.MethodPost, "/matchs/like", aliceToken, gin.H{"to_user_id": bob.ID})
	resp := doJSON(t, router, http.MethodPost, "/matchs/like", bobToken, gin.H{"to_user_id": alice.ID})
	require.Equal(t, http.StatusCreated, resp.Code)
	var matchBody struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &matchBody))
	require.Len(t, cache.data, 1)

	resp = doJSON(t, router, http.MethodPost, fmt.Sprintf("/matchs/unmatch/%d", matchBody.Match.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, cache.data)

	// The lookup now falls through to the store and sees the dissolve.
	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/matchs/%d", matchBody.Match.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
	assert.False(t, fetched.Match.IsActive)
}

func TestLastMessageOutsiderForbidden(t *testing.T) {
	router, db := newMatchRouter(t, nil)

	alice, aliceToken := createAuthedUser(t, db, "alice@example.com")
	bob, bobToken := createAuthedUser(t, db, "bob@example.com")
	_, carolToken := createAuthedUser(t, db, "carol@example.com")

	doJSON(t, router, http.MethodPost, "/matchs/like", aliceToken, gin.H{"to_user_id": bob.ID})
	resp := doJSON(t, router, http.MethodPost, "/matchs/like", bobToken, gin.H{"to_user_id": alice.ID})
	require.Equal(t, http.StatusCreated, resp.Code)
	var matchBody struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &matchBody))

	resp = doJSON(t, router, http.MethodPost, "/messages/send", aliceToken, gin.H{
		"match_id": matchBody.Match.ID,
		"content":  "secret plans",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/messages/%d/last", matchBody.Match.ID), carolToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/messages/%d/last", matchBody.Match.ID), bobToken, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMissingTokenUnauthorized(t *testing.T) {
	router, _ := newMatchRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/matchs/list", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
