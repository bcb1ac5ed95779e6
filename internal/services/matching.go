package services

import (
	"errors"
	"fmt"
	"time"

	"campusoul/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MatchingService owns the like/match lifecycle:
// NoRelation -> OneSidedLike -> Matched(active) -> Unmatched(inactive).
// Unmatched is terminal.
type MatchingService struct {
	db *gorm.DB
}

func NewMatchingService(db *gorm.DB) *MatchingService {
	return &MatchingService{db: db}
}

// LikeResult is either a pending one-sided like or a freshly created
// match, never both.
type LikeResult struct {
	Like  *models.Like
	Match *models.Match
}

// IsMatch reports whether the like action completed a mutual pair.
func (r *LikeResult) IsMatch() bool {
	return r.Match != nil
}

// LikeUser records actor's interest in target. If target already liked
// actor back, the pair is converted into a match and both directional
// likes are removed in the same transaction, so no stale like survives
// a match. Re-liking the same target returns the existing like.
func (s *MatchingService) LikeUser(actorID, targetID uint) (*LikeResult, error) {
	if actorID == targetID {
		return nil, fmt.Errorf("%w: cannot like yourself", ErrValidation)
	}

	var target models.User
	if err := s.db.First(&target, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, targetID)
		}
		return nil, err
	}

	// A pair carries at most one match, ever: an active one must not be
	// duplicated and a dissolved one is terminal.
	var existingMatch models.Match
	err := s.db.Where(
		"(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
		actorID, targetID, targetID, actorID,
	).First(&existingMatch).Error
	if err == nil {
		if existingMatch.IsActive {
			return nil, fmt.Errorf("%w: already matched with user %d", ErrConflict, targetID)
		}
		return nil, fmt.Errorf("%w: match with user %d was dissolved", ErrConflict, targetID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Idempotent re-like: the (from, to) pair is unique.
	var existing models.Like
	err = s.db.Where("from_user_id = ? AND to_user_id = ?", actorID, targetID).First(&existing).Error
	if err == nil {
		return &LikeResult{Like: &existing}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var reciprocal models.Like
	err = s.db.Where("from_user_id = ? AND to_user_id = ?", targetID, actorID).First(&reciprocal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		like := models.Like{FromUserID: actorID, ToUserID: targetID}
		if err := s.db.Create(&like).Error; err != nil {
			return nil, fmt.Errorf("failed to create like: %w", err)
		}
		return &LikeResult{Like: &like}, nil
	}
	if err != nil {
		return nil, err
	}

	// Mutual like: create the match and delete both directional likes
	// atomically.
	match := models.Match{User1ID: actorID, User2ID: targetID, IsActive: true}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&match).Error; err != nil {
			return err
		}
		return tx.Where(
			"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			actorID, targetID, targetID, actorID,
		).Delete(&models.Like{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"match_id": match.ID,
		"user1_id": actorID,
		"user2_id": targetID,
	}).Info("New match created")

	return &LikeResult{Match: &match}, nil
}

// MatchWithUser is a match expanded with the counterpart's public
// profile for the requesting user.
type MatchWithUser struct {
	ID        uint        `json:"id"`
	IsActive  bool        `json:"is_active"`
	User      models.User `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

// ListMatches returns the user's active matches, newest first, each
// carrying the other participant's credential-free profile.
func (s *MatchingService) ListMatches(userID uint) ([]MatchWithUser, error) {
	var matches []models.Match
	err := s.db.Where("(user1_id = ? OR user2_id = ?) AND is_active = ?", userID, userID, true).
		Preload("User1.Interests").Preload("User1.Images").
		Preload("User2.Interests").Preload("User2.Images").
		Order("created_at DESC").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches: %w", err)
	}

	result := make([]MatchWithUser, 0, len(matches))
	for _, match := range matches {
		other := match.User2
		if match.User2ID == userID {
			other = match.User1
		}
		other.PasswordHash = ""
		other.DeviceToken = nil
		result = append(result, MatchWithUser{
			ID:        match.ID,
			IsActive:  match.IsActive,
			User:      other,
			CreatedAt: match.CreatedAt,
		})
	}
	return result, nil
}

// GetMatch returns a match by id if the user participates in it.
func (s *MatchingService) GetMatch(userID, matchID uint) (*models.Match, error) {
	var match models.Match
	if err := s.db.First(&match, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrNotFound, matchID)
		}
		return nil, err
	}
	if !match.HasUser(userID) {
		return nil, fmt.Errorf("%w: not a participant of match %d", ErrUnauthorized, matchID)
	}
	return &match, nil
}

// Unmatch dissolves an active match. The record is retained with
// IsActive=false; there is no re-activation path.
func (s *MatchingService) Unmatch(userID, matchID uint) (*models.Match, error) {
	var match models.Match
	if err := s.db.First(&match, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrNotFound, matchID)
		}
		return nil, err
	}

	if !match.HasUser(userID) {
		return nil, fmt.Errorf("%w: not a participant of match %d", ErrUnauthorized, matchID)
	}

	match.IsActive = false
	if err := s.db.Save(&match).Error; err != nil {
		return nil, fmt.Errorf("failed to dissolve match: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"match_id": match.ID,
		"user_id":  userID,
	}).Info("Match dissolved")

	return &match, nil
}

// RelatedUserIDs returns every user the given user already liked or
// matched with (active or dissolved), for exclusion from discovery.
func (s *MatchingService) RelatedUserIDs(userID uint) ([]uint, error) {
	var likedIDs []uint
	if err := s.db.Model(&models.Like{}).Where("from_user_id = ?", userID).
		Pluck("to_user_id", &likedIDs).Error; err != nil {
		return nil, err
	}

	var matches []models.Match
	if err := s.db.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&matches).Error; err != nil {
		return nil, err
	}

	ids := likedIDs
	for _, match := range matches {
		ids = append(ids, match.OtherUser(userID))
	}
	return ids, nil
}
