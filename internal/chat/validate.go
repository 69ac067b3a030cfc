package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RichardoC/padchat/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CreateConversationInput struct {
	Title string `json:"title" validate:"max=200"`
}

type SendMessageInput struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"required,max=32000"`
	IsImageRequest bool   `json:"isImageRequest"`
}

type UpdateTitleInput struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Title          string `json:"title" validate:"required,max=200"`
}

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			details = append(details, fe.Field()+" is required")
		case "max":
			details = append(details, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(details, "; "))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
