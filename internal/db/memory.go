package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RichardoC/padchat/internal/models"
	"github.com/google/uuid"
)

// Memory is a process-local Store. State lives as long as the value does.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
	now           func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
		now:           utcNow,
	}
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) CreateConversation(_ context.Context, ownerID, title string) (*models.Conversation, error) {
	now := m.now()
	conv := models.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.conversations[conv.ID] = conv
	m.mu.Unlock()

	return &conv, nil
}

func (m *Memory) ListConversations(_ context.Context, ownerID string) ([]models.Conversation, error) {
	m.mu.RLock()
	conversations := make([]models.Conversation, 0)
	for _, conv := range m.conversations {
		if conv.OwnerID == ownerID {
			conversations = append(conversations, conv)
		}
	}
	m.mu.RUnlock()

	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return conversations, nil
}

func (m *Memory) GetConversation(_ context.Context, id, ownerID string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	return &conv, nil
}

func (m *Memory) TouchConversation(_ context.Context, id string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return models.ErrNotFound
	}
	conv.UpdatedAt = laterOf(conv.UpdatedAt, updatedAt)
	m.conversations[id] = conv
	return nil
}

func (m *Memory) UpdateConversationTitle(_ context.Context, id, ownerID, title string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	conv.Title = title
	m.conversations[id] = conv
	return &conv, nil
}

func (m *Memory) DeleteConversation(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return models.ErrNotFound
	}
	m.deleteMessagesLocked(id)
	delete(m.conversations, id)
	return nil
}

func (m *Memory) SaveMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	createdAt := m.now()
	history := m.messages[msg.ConvID]
	if n := len(history); n > 0 {
		createdAt = laterOf(createdAt, history[n-1].CreatedAt)
	}

	msg.ID = uuid.NewString()
	msg.CreatedAt = createdAt
	m.messages[msg.ConvID] = append(history, *msg)
	return nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.messages[conversationID]
	messages := make([]models.Message, len(history))
	copy(messages, history)
	return messages, nil
}

func (m *Memory) CountMessages(_ context.Context, conversationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages[conversationID]), nil
}

func (m *Memory) DeleteMessages(_ context.Context, conversationID string) error {
	m.mu.Lock()
	m.deleteMessagesLocked(conversationID)
	m.mu.Unlock()
	return nil
}

// deleteMessagesLocked requires m.mu to be held.
func (m *Memory) deleteMessagesLocked(conversationID string) {
	delete(m.messages, conversationID)
}
