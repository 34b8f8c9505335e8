package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrEmptyContent = errors.New("message content must not be empty")

// Message is a single turn in a conversation.
type Message struct {
	ID             uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint              `gorm:"not null;index:idx_messages_conversation_created_at,priority:1" json:"conversation_id"`
	Content        string            `gorm:"type:text;not null" json:"content"`
	MessageType    MessageType       `gorm:"type:varchar(16);not null" json:"message_type"`
	Metadata       datatypes.JSONMap `gorm:"column:message_metadata" json:"message_metadata"`
	Embedding      Embedding         `json:"embedding"`
	CreatedAt      time.Time         `gorm:"index:idx_messages_conversation_created_at,priority:2" json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MessageCreate carries the fields a caller supplies for a new message.
type MessageCreate struct {
	ConversationID uint
	Content        string
	MessageType    MessageType
	Metadata       datatypes.JSONMap
}

// MessageUpdate only applies non-nil fields.
type MessageUpdate struct {
	Content  *string
	Metadata datatypes.JSONMap
}

type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, in MessageCreate) (*Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}
	messageType, err := ParseMessageType(string(in.MessageType))
	if err != nil {
		return nil, err
	}

	message := &Message{
		ConversationID: in.ConversationID,
		Content:        in.Content,
		MessageType:    messageType,
		Metadata:       in.Metadata,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Conversation{}).Where("id = ?", in.ConversationID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrConversationNotFound
		}
		return tx.Create(message).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return message, nil
}

// ListForConversation returns messages oldest first. An unknown conversation
// yields an empty slice, not an error.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID uint, offset, limit int) ([]Message, error) {
	messages := []Message{}
	db := r.db.WithContext(ctx)

	var n int64
	if err := db.Model(&Conversation{}).Where("id = ?", conversationID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to check conversation %d: %w", conversationID, err)
	}
	if n == 0 {
		return messages, nil
	}

	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for conversation %d: %w", conversationID, err)
	}
	return messages, nil
}

func (r *MessageRepo) Get(ctx context.Context, id uint) (*Message, error) {
	var message Message
	err := r.db.WithContext(ctx).First(&message, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %d: %w", id, err)
	}
	return &message, nil
}

func (r *MessageRepo) Update(ctx context.Context, id uint, in MessageUpdate) (*Message, error) {
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return nil, ErrEmptyContent
	}
	updates := map[string]interface{}{}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.Metadata != nil {
		updates["message_metadata"] = in.Metadata
	}
	return r.update(ctx, id, updates)
}

func (r *MessageRepo) UpdateEmbedding(ctx context.Context, id uint, vector []float32) (*Message, error) {
	return r.update(ctx, id, map[string]interface{}{"embedding": Embedding(vector)})
}

func (r *MessageRepo) update(ctx context.Context, id uint, updates map[string]interface{}) (*Message, error) {
	var message Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&message, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&message).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&message, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message %d: %w", id, err)
	}
	return &message, nil
}

func (r *MessageRepo) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&Message{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete message %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
