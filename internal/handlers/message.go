package handlers

import (
	"context"
	"net/http"
	"strconv"

	"campusoul/internal/models"
	"campusoul/internal/services"
	"campusoul/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MessageHandler struct {
	db        *gorm.DB
	messaging *services.MessagingService
	push      *services.PushService
	hub       *websocket.Hub
}

type SendMessageRequest struct {
	MatchID uint   `json:"match_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func NewMessageHandler(db *gorm.DB, messaging *services.MessagingService, push *services.PushService, hub *websocket.Hub) *MessageHandler {
	return &MessageHandler{
		db:        db,
		messaging: messaging,
		push:      push,
		hub:       hub,
	}
}

// SendMessage appends a message to the match log and relays it to the
// receiver over the push channel.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := currentUserID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messaging.Send(userID, req.MatchID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.SendToUser(message.ReceiverID, websocket.NewEvent("newMessage", message))
	h.notifyReceiver(c.Request.Context(), message)

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// GetMessages returns the match history oldest first; fetching marks
// the counterpart's messages as read.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID := currentUserID(c)

	matchID, err := strconv.ParseUint(c.Param("matchId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	messages, err := h.messaging.History(userID, uint(matchID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) GetLastMessage(c *gin.Context) {
	userID := currentUserID(c)

	matchID, err := strconv.ParseUint(c.Param("matchId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	message, err := h.messaging.LastMessage(userID, uint(matchID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// GetUnreadCount counts the messages addressed to the requester that
// are still unread in the match.
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID := currentUserID(c)

	matchID, err := strconv.ParseUint(c.Param("matchId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	count, err := h.messaging.UnreadCount(userID, uint(matchID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *MessageHandler) notifyReceiver(ctx context.Context, message *models.Message) {
	if h.push == nil || !h.push.Enabled() {
		return
	}

	var receiver models.User
	if err := h.db.First(&receiver, message.ReceiverID).Error; err != nil || receiver.DeviceToken == nil {
		return
	}

	h.push.Notify(ctx, *receiver.DeviceToken, "New message", message.Content, map[string]string{
		"match_id": strconv.FormatUint(uint64(message.MatchID), 10),
	})
}
