package services

import (
	"errors"
	"fmt"
	"strings"

	"campusoul/internal/models"

	"gorm.io/gorm"
)

// MessagingService owns the append-only per-match message log and its
// read-state tracking.
type MessagingService struct {
	db *gorm.DB
}

func NewMessagingService(db *gorm.DB) *MessagingService {
	return &MessagingService{db: db}
}

// Send appends a message to the match's log. The receiver is the match
// participant who is not the sender.
func (s *MessagingService) Send(senderID, matchID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message content", ErrValidation)
	}

	var match models.Match
	if err := s.db.First(&match, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrNotFound, matchID)
		}
		return nil, err
	}

	if !match.HasUser(senderID) {
		return nil, fmt.Errorf("%w: not a participant of match %d", ErrForbidden, matchID)
	}
	if !match.IsActive {
		return nil, fmt.Errorf("%w: match %d is dissolved", ErrForbidden, matchID)
	}

	message := models.Message{
		MatchID:    matchID,
		SenderID:   senderID,
		ReceiverID: match.OtherUser(senderID),
		Content:    content,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return &message, nil
}

// MessageWithSender attaches the sender display name to a message.
type MessageWithSender struct {
	models.Message
	SenderName string `json:"sender_name"`
}

// History returns the match's messages oldest first and, as a side
// effect, marks every message not authored by the requester as read.
// Re-fetching is idempotent: already-read messages simply stay read.
func (s *MessagingService) History(requesterID, matchID uint) ([]MessageWithSender, error) {
	if err := s.requireParticipant(requesterID, matchID); err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.Where("match_id = ?", matchID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	if err := s.db.Model(&models.Message{}).
		Where("match_id = ? AND sender_id != ? AND read = ?", matchID, requesterID, false).
		Update("read", true).Error; err != nil {
		return nil, fmt.Errorf("failed to mark messages as read: %w", err)
	}

	result := make([]MessageWithSender, 0, len(messages))
	for _, msg := range messages {
		if msg.SenderID != requesterID {
			msg.Read = true
		}
		result = append(result, MessageWithSender{
			Message:    msg,
			SenderName: msg.Sender.Name,
		})
	}
	return result, nil
}

// LastMessage returns the most recent message of a match, or nil when
// the log is empty. Only participants may read it.
func (s *MessagingService) LastMessage(requesterID, matchID uint) (*models.Message, error) {
	if err := s.requireParticipant(requesterID, matchID); err != nil {
		return nil, err
	}

	var message models.Message
	err := s.db.Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last message: %w", err)
	}
	return &message, nil
}

// UnreadCount counts messages addressed to the requester that are still
// unread in the match.
func (s *MessagingService) UnreadCount(requesterID, matchID uint) (int64, error) {
	if err := s.requireParticipant(requesterID, matchID); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.Model(&models.Message{}).
		Where("match_id = ? AND receiver_id = ? AND read = ?", matchID, requesterID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *MessagingService) requireParticipant(userID, matchID uint) error {
	var match models.Match
	if err := s.db.First(&match, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: match %d", ErrNotFound, matchID)
		}
		return err
	}
	if !match.HasUser(userID) {
		return fmt.Errorf("%w: not a participant of match %d", ErrForbidden, matchID)
	}
	return nil
}
