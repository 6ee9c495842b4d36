package websocket

import (
	"context"
	"fmt"
	"time"

	"petshop/internal/microservices/http-api/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// MessageStore is the durable, append-only chat log
type MessageStore interface {
	// Append persists a message-kind entry and returns it with its timestamp
	Append(ctx context.Context, username, body string) (ChatMessage, error)
	// Recent returns up to limit newest entries in chronological order
	Recent(ctx context.Context, limit int) ([]ChatMessage, error)
	Count(ctx context.Context) (int64, error)
}

type gormMessageStore struct {
	db *gorm.DB
}

func NewGormMessageStore(db *gorm.DB) MessageStore {
	return &gormMessageStore{db: db}
}

func (s *gormMessageStore) Append(ctx context.Context, username, body string) (ChatMessage, error) {
	// postgres keeps microseconds; the returned message must encode
	// exactly like the same row read back as history
	row := &models.ChatMessage{
		Username:  username,
		Message:   body,
		Type:      string(KindMessage),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	return fromModel(*row), nil
}

func (s *gormMessageStore) Recent(ctx context.Context, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		return []ChatMessage{}, nil
	}
	var rows []models.ChatMessage
	// newest first so LIMIT keeps the tail of the log, reversed below
	err := s.db.WithContext(ctx).
		Where("type = ?", string(KindMessage)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent chat messages: %w", err)
	}
	return chronological(rows), nil
}

// chronological converts newest-first rows into oldest-first messages
func chronological(rows []models.ChatMessage) []ChatMessage {
	return lo.Map(rows, func(_ models.ChatMessage, i int) ChatMessage {
		return fromModel(rows[len(rows)-1-i])
	})
}

func (s *gormMessageStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count chat messages: %w", err)
	}
	return total, nil
}

func fromModel(row models.ChatMessage) ChatMessage {
	return ChatMessage{
		Username:  row.Username,
		Body:      row.Message,
		Kind:      MessageKind(row.Type),
		Timestamp: row.CreatedAt.UTC(),
	}
}
