package models

import "time"

// ChatMessage is one persisted support chat line
type ChatMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"not null" json:"username"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Type      string    `gorm:"not null;default:'message'" json:"type"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_chat_messages_created_at" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
