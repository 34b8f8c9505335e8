package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is a titled container of ordered messages.
type Conversation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"type:varchar(255);index" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages"`
}

type ConversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, title string) (*Conversation, error) {
	conversation := &Conversation{Title: title}
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(conversation).Error
	}); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	conversation.Messages = []Message{}
	return conversation, nil
}

// List returns conversations newest first, without messages. A zero limit
// yields an empty page.
func (r *ConversationRepo) List(ctx context.Context, offset, limit int) ([]Conversation, error) {
	conversations := []Conversation{}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// Get loads the conversation with its messages already materialized in
// created_at order. It returns nil, nil when the id is unknown.
func (r *ConversationRepo) Get(ctx context.Context, id uint) (*Conversation, error) {
	var conversation Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&conversation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %d: %w", id, err)
	}
	if conversation.Messages == nil {
		conversation.Messages = []Message{}
	}
	return &conversation, nil
}

func (r *ConversationRepo) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Conversation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check conversation %d: %w", id, err)
	}
	return n > 0, nil
}

// Update changes only the provided fields. Messages are not loaded on the result.
func (r *ConversationRepo) Update(ctx context.Context, id uint, title *string) (*Conversation, error) {
	var conversation Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&conversation, id).Error; err != nil {
			return err
		}
		if title == nil {
			return nil
		}
		return tx.Model(&conversation).Update("title", *title).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation %d: %w", id, err)
	}
	conversation.Messages = []Message{}
	return &conversation, nil
}

// Delete removes the conversation and its messages. Unknown ids report false.
func (r *ConversationRepo) Delete(ctx context.Context, id uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Conversation{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation %d: %w", id, err)
	}
	return deleted, nil
}
