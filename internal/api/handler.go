package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/RichardoC/padchat/internal/chat"
	"github.com/RichardoC/padchat/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	chat   *chat.Service
	logger *zap.Logger
}

func NewHandler(chatService *chat.Service, logger *zap.Logger) *Handler {
	return &Handler{
		chat:   chatService,
		logger: logger,
	}
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type UpdateConversationRequest struct {
	Title string `json:"title"`
}

type MessageRequest struct {
	Content        string `json:"content"`
	IsImageRequest bool   `json:"isImageRequest"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"greeting": "Hello " + c.Query("text") + "!"})
}

func (h *Handler) GetConversations(c *gin.Context) {
	conversations, err := h.chat.GetConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *Handler) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	// an empty body means "use the default title"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(c, invalidBody(err))
		return
	}

	conversation, err := h.chat.CreateConversation(c.Request.Context(), currentUser(c), chat.CreateConversationInput{
		Title: req.Title,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conversation)
}

func (h *Handler) GetMessages(c *gin.Context) {
	messages, err := h.chat.GetMessages(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalidBody(err))
		return
	}

	message, err := h.chat.SendMessage(c.Request.Context(), currentUser(c), chat.SendMessageInput{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		IsImageRequest: req.IsImageRequest,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	if err := h.chat.DeleteConversation(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{Success: true})
}

func (h *Handler) UpdateConversation(c *gin.Context) {
	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalidBody(err))
		return
	}

	conversation, err := h.chat.UpdateConversationTitle(c.Request.Context(), currentUser(c), chat.UpdateTitleInput{
		ConversationID: c.Param("id"),
		Title:          req.Title,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func invalidBody(err error) error {
	return errors.Join(models.ErrValidation, err)
}

// writeError maps the error taxonomy onto HTTP statuses. Storage and other
// unexpected failures are logged and reported without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You must be logged in to access this resource"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
