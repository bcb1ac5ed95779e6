package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"campusoul/internal/models"
	"campusoul/internal/services"
	"campusoul/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MatchCache holds active-match metadata keyed by match id, so lookups
// of fresh matches skip the database. Satisfied by the redis client.
type MatchCache interface {
	HSet(ctx context.Context, key string, values ...interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type MatchHandler struct {
	db       *gorm.DB
	cache    MatchCache
	matching *services.MatchingService
	push     *services.PushService
	hub      *websocket.Hub
}

type LikeRequest struct {
	ToUserID uint `json:"to_user_id" binding:"required"`
}

func NewMatchHandler(db *gorm.DB, cache MatchCache, matching *services.MatchingService, push *services.PushService, hub *websocket.Hub) *MatchHandler {
	return &MatchHandler{
		db:       db,
		cache:    cache,
		matching: matching,
		push:     push,
		hub:      hub,
	}
}

// LikeUser records a like; on a mutual like the result is a match and
// both participants are notified over the push channel.
func (h *MatchHandler) LikeUser(c *gin.Context) {
	userID := currentUserID(c)

	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.matching.LikeUser(userID, req.ToUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.IsMatch() {
		c.JSON(http.StatusCreated, gin.H{"like": result.Like})
		return
	}

	match := result.Match
	h.cacheMatch(c.Request.Context(), match)
	h.notifyMatch(c.Request.Context(), match)

	c.JSON(http.StatusCreated, gin.H{"match": match})
}

func (h *MatchHandler) ListMatches(c *gin.Context) {
	userID := currentUserID(c)

	matches, err := h.matching.ListMatches(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	userID := currentUserID(c)

	matchID, err := strconv.ParseUint(c.Param("matchId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	if match, ok := h.cachedMatch(c.Request.Context(), uint(matchID)); ok {
		if !match.HasUser(userID) {
			respondError(c, fmt.Errorf("%w: not a participant of match %d", services.ErrUnauthorized, matchID))
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": match})
		return
	}

	match, err := h.matching.GetMatch(userID, uint(matchID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": match})
}

func (h *MatchHandler) Unmatch(c *gin.Context) {
	userID := currentUserID(c)

	matchID, err := strconv.ParseUint(c.Param("matchId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	match, err := h.matching.Unmatch(userID, uint(matchID))
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		h.cache.Del(c.Request.Context(), matchCacheKey(match.ID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Match dissolved", "match": match})
}

func (h *MatchHandler) cacheMatch(ctx context.Context, match *models.Match) {
	if h.cache == nil {
		return
	}

	key := matchCacheKey(match.ID)
	h.cache.HSet(ctx, key,
		"id", match.ID,
		"user1_id", match.User1ID,
		"user2_id", match.User2ID,
		"created_at", match.CreatedAt.Unix(),
	)
	h.cache.Expire(ctx, key, 24*time.Hour)
}

// cachedMatch reconstructs a match from its cache entry. Only active
// matches live in the cache; unmatch removes the entry.
func (h *MatchHandler) cachedMatch(ctx context.Context, matchID uint) (*models.Match, bool) {
	if h.cache == nil {
		return nil, false
	}

	values, err := h.cache.HGetAll(ctx, matchCacheKey(matchID))
	if err != nil || len(values) == 0 {
		return nil, false
	}

	user1, err1 := strconv.ParseUint(values["user1_id"], 10, 32)
	user2, err2 := strconv.ParseUint(values["user2_id"], 10, 32)
	createdAt, err3 := strconv.ParseInt(values["created_at"], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, false
	}

	return &models.Match{
		ID:        matchID,
		User1ID:   uint(user1),
		User2ID:   uint(user2),
		IsActive:  true,
		CreatedAt: time.Unix(createdAt, 0),
	}, true
}

// notifyMatch pushes a newMatch event to both participants and an FCM
// notification to whoever registered a device token.
func (h *MatchHandler) notifyMatch(ctx context.Context, match *models.Match) {
	event := websocket.NewEvent("newMatch", match)
	h.hub.SendToUser(match.User1ID, event)
	h.hub.SendToUser(match.User2ID, event)

	if h.push == nil || !h.push.Enabled() {
		return
	}

	var users []models.User
	if err := h.db.Find(&users, []uint{match.User1ID, match.User2ID}).Error; err != nil {
		return
	}
	data := map[string]string{"match_id": strconv.FormatUint(uint64(match.ID), 10)}
	for _, user := range users {
		if user.DeviceToken != nil {
			h.push.Notify(ctx, *user.DeviceToken, "New match!", "You have a new match. Start chatting now.", data)
		}
	}
}

func matchCacheKey(matchID uint) string {
	return "match:" + strconv.FormatUint(uint64(matchID), 10)
}
