package models

import (
	"time"

	"gorm.io/gorm"
)

// Match pairs exactly two users. Dissolved matches are kept as history
// with IsActive=false; a dissolved match is never re-activated.
type Match struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	User1ID   uint           `json:"-" gorm:"not null;index"`
	User2ID   uint           `json:"-" gorm:"not null;index"`
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	User1     User           `json:"-" gorm:"foreignKey:User1ID"`
	User2     User           `json:"-" gorm:"foreignKey:User2ID"`
}

// Users returns both participant ids.
func (m *Match) Users() [2]uint {
	return [2]uint{m.User1ID, m.User2ID}
}

// HasUser reports whether the given user is one of the two participants.
func (m *Match) HasUser(userID uint) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the participant that is not the given user.
func (m *Match) OtherUser(userID uint) uint {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// Like is a directed edge fromUser -> toUser. At most one like may exist
// per ordered pair; both directional likes are deleted the moment they
// become a match.
type Like struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FromUserID uint      `json:"from_user_id" gorm:"not null;uniqueIndex:idx_like_pair"`
	ToUserID   uint      `json:"to_user_id" gorm:"not null;uniqueIndex:idx_like_pair"`
	CreatedAt  time.Time `json:"created_at"`
	FromUser   User      `json:"-" gorm:"foreignKey:FromUserID"`
	ToUser     User      `json:"-" gorm:"foreignKey:ToUserID"`
}

// Message belongs to exactly one match. Immutable after creation except
// for the read flag.
type Message struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	MatchID    uint           `json:"match_id" gorm:"not null;index"`
	SenderID   uint           `json:"sender_id" gorm:"not null"`
	ReceiverID uint           `json:"receiver_id" gorm:"not null;index"`
	Content    string         `json:"content" gorm:"not null"`
	Read       bool           `json:"read" gorm:"default:false"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Match      Match          `json:"-" gorm:"foreignKey:MatchID"`
	Sender     User           `json:"-" gorm:"foreignKey:SenderID"`
}
