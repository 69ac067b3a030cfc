// Package chat implements the conversation operations exposed to clients.
// Every operation is scoped to the calling user.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/RichardoC/padchat/internal/db"
	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/metrics"
	"github.com/RichardoC/padchat/internal/models"
	"go.uber.org/zap"
)

const titleMaxRunes = 30

type Service struct {
	store     db.Store
	generator llm.Generator
	logger    *zap.Logger
	locks     *keyedMutex
}

func NewService(store db.Store, generator llm.Generator, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		generator: generator,
		logger:    logger,
		locks:     newKeyedMutex(),
	}
}

func (s *Service) GetConversations(ctx context.Context, user *models.User) ([]models.Conversation, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	return s.store.ListConversations(ctx, user.Sub)
}

func (s *Service) CreateConversation(ctx context.Context, user *models.User, in CreateConversationInput) (*models.Conversation, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	title := in.Title
	if blank(title) {
		title = models.DefaultTitle
	}

	conv, err := s.store.CreateConversation(ctx, user.Sub, title)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsCreatedTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("user_id", user.Sub),
		zap.String("conversation_id", conv.ID))
	return conv, nil
}

func (s *Service) GetMessages(ctx context.Context, user *models.User, conversationID string) ([]models.Message, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if _, err := s.store.GetConversation(ctx, conversationID, user.Sub); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// SendMessage runs one turn: it stores the user message, asks the generator
// for a reply and stores that reply. Generator failures become the reply's
// content instead of an error.
func (s *Service) SendMessage(ctx context.Context, user *models.User, in SendMessageInput) (*models.Message, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if blank(in.Content) {
		return nil, fmt.Errorf("%w: Content is required", models.ErrValidation)
	}

	// A started turn completes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	unlock := s.locks.Lock(in.ConversationID)
	defer unlock()

	conv, err := s.store.GetConversation(ctx, in.ConversationID, user.Sub)
	if err != nil {
		return nil, err
	}

	mode := llm.ModeText
	if in.IsImageRequest {
		mode = llm.ModeImage
	}
	log := s.logger.With(
		zap.String("user_id", user.Sub),
		zap.String("conversation_id", conv.ID),
		zap.String("mode", string(mode)))

	// Save user message
	userMsg := &models.Message{
		ConvID:  conv.ID,
		Role:    models.RoleUser,
		Content: in.Content,
	}
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		log.Error("Failed to save user message", zap.Error(err))
		return nil, err
	}

	assistantMsg := &models.Message{
		ConvID: conv.ID,
		Role:   models.RoleAssistant,
	}
	outcome := "ok"
	result, err := s.generator.Generate(ctx, llm.Request{
		Prompt:   in.Content,
		Mode:     mode,
		UserName: user.DisplayName(),
	})
	if err == nil && result == nil {
		err = llm.ProviderError("empty response")
	}
	if err != nil {
		outcome = "error"
		metrics.GenerationFailuresTotal.WithLabelValues(failureKind(err)).Inc()
		log.Warn("Response generation failed", zap.Error(err))
		assistantMsg.Content = "❌ Error: " + err.Error()
	} else {
		assistantMsg.Content = result.Text
		assistantMsg.ImageURL = result.ImageURL
	}

	// Save assistant message
	if err := s.store.SaveMessage(ctx, assistantMsg); err != nil {
		log.Error("Failed to save assistant message", zap.Error(err))
		return nil, err
	}
	metrics.TurnsTotal.WithLabelValues(string(mode), outcome).Inc()

	if err := s.store.TouchConversation(ctx, conv.ID, assistantMsg.CreatedAt); err != nil {
		log.Error("Failed to update conversation timestamp", zap.Error(err))
		return nil, err
	}

	if conv.Title == models.DefaultTitle {
		n, err := s.store.CountMessages(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if n == 2 {
			if _, err := s.store.UpdateConversationTitle(ctx, conv.ID, user.Sub, DeriveTitle(in.Content)); err != nil {
				log.Error("Failed to set conversation title", zap.Error(err))
				return nil, err
			}
		}
	}

	log.Info("Turn completed", zap.String("outcome", outcome))
	return assistantMsg, nil
}

func (s *Service) DeleteConversation(ctx context.Context, user *models.User, conversationID string) error {
	if user == nil {
		return models.ErrUnauthorized
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	if err := s.store.DeleteConversation(ctx, conversationID, user.Sub); err != nil {
		return err
	}
	s.logger.Info("conversation deleted",
		zap.String("user_id", user.Sub),
		zap.String("conversation_id", conversationID))
	return nil
}

func (s *Service) UpdateConversationTitle(ctx context.Context, user *models.User, in UpdateTitleInput) (*models.Conversation, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if blank(in.Title) {
		return nil, fmt.Errorf("%w: Title is required", models.ErrValidation)
	}

	unlock := s.locks.Lock(in.ConversationID)
	defer unlock()

	return s.store.UpdateConversationTitle(ctx, in.ConversationID, user.Sub, in.Title)
}

// DeriveTitle keeps the first 30 characters of content, marking truncation with "...".
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxRunes {
		return content
	}
	return string(runes[:titleMaxRunes]) + "..."
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrRegionRestricted):
		return "region_restricted"
	case errors.Is(err, llm.ErrProvider):
		return "provider"
	default:
		return "other"
	}
}
