package db

import (
	"context"
	"time"

	"github.com/RichardoC/padchat/internal/models"
)

// ConversationStore keeps the owner -> conversations mapping.
// Lookups scoped by owner return models.ErrNotFound for both missing and foreign ids.
type ConversationStore interface {
	// ListConversations returns the owner's conversations, most recently updated first.
	ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error)
	CreateConversation(ctx context.Context, ownerID, title string) (*models.Conversation, error)
	GetConversation(ctx context.Context, id, ownerID string) (*models.Conversation, error)
	// TouchConversation moves updated_at forward; it never moves it back.
	TouchConversation(ctx context.Context, id string, updatedAt time.Time) error
	UpdateConversationTitle(ctx context.Context, id, ownerID, title string) (*models.Conversation, error)
	// DeleteConversation removes the conversation and all of its messages.
	DeleteConversation(ctx context.Context, id, ownerID string) error
}

// MessageStore keeps the conversation -> messages mapping. Messages are append only.
type MessageStore interface {
	// ListMessages returns messages in chronological order.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	// SaveMessage assigns ID and CreatedAt. CreatedAt is never earlier than
	// the newest message already stored for the conversation.
	SaveMessage(ctx context.Context, msg *models.Message) error
	CountMessages(ctx context.Context, conversationID string) (int, error)
	DeleteMessages(ctx context.Context, conversationID string) error
}

type Store interface {
	ConversationStore
	MessageStore
	Close() error
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
