package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

type Request struct {
	Prompt string
	Mode   Mode
	// UserName is only used to address the user in failure messages.
	UserName string
}

type Result struct {
	Text     string
	ImageURL *string
}

// Generator turns a prompt into assistant content. Failures are *Error values
// wrapping ErrProvider or ErrRegionRestricted.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ImageClient is the part of the go-openai client used for image generation.
type ImageClient interface {
	CreateImage(ctx context.Context, request goopenai.ImageRequest) (goopenai.ImageResponse, error)
}

type Config struct {
	BaseURL    string
	Token      string
	TextModel  string
	ImageModel string
	ImageSize  string
	// Timeout bounds a single provider call; zero means no bound.
	Timeout time.Duration
}

type Service struct {
	llm    llms.Model
	images ImageClient
	cfg    Config
	logger *zap.Logger
}

var _ Generator = (*Service)(nil)

func New(cfg Config, logger *zap.Logger) (*Service, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.Token),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.TextModel),
	)
	if err != nil {
		return nil, err
	}

	clientCfg := goopenai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return NewWithClients(llm, goopenai.NewClientWithConfig(clientCfg), cfg, logger), nil
}

func NewWithClients(llm llms.Model, images ImageClient, cfg Config, logger *zap.Logger) *Service {
	return &Service{llm: llm, images: images, cfg: cfg, logger: logger}
}

func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if req.Mode == ModeImage {
		return s.generateImage(ctx, req)
	}
	return s.generateText(ctx, req)
}

func (s *Service) generateText(ctx context.Context, req Request) (*Result, error) {
	s.logger.Debug("requesting text completion",
		zap.String("model", s.cfg.TextModel),
		zap.Int("prompt_len", len(req.Prompt)))

	completion, err := llms.GenerateFromSinglePrompt(ctx, s.llm, req.Prompt)
	if err != nil {
		s.logger.Error("text completion failed", zap.Error(err))
		return nil, classifyTextError(err, req.UserName)
	}
	return &Result{Text: completion}, nil
}

func classifyTextError(err error, userName string) error {
	msg := err.Error()
	switch {
	case mentionsRegion(msg):
		name := userName
		if name == "" {
			name = "there"
		}
		return RegionRestricted(fmt.Sprintf(
			"Sorry %s, the AI provider is not available in your region. This might be due to geographic restrictions.", name))
	case mentionsAPIKey(msg) || isUnauthorized(err):
		return ProviderError("API key issue detected. Please check your AI provider configuration.")
	default:
		return ProviderError(fmt.Sprintf("text generation failed: %s", msg))
	}
}

func (s *Service) generateImage(ctx context.Context, req Request) (*Result, error) {
	s.logger.Debug("requesting image generation",
		zap.String("model", s.cfg.ImageModel),
		zap.String("size", s.cfg.ImageSize))

	resp, err := s.images.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         "Generate an image: " + req.Prompt,
		Model:          s.cfg.ImageModel,
		Size:           s.cfg.ImageSize,
		N:              1,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		s.logger.Error("image generation failed", zap.Error(err))
		if mentionsRegion(err.Error()) {
			return nil, RegionRestricted("Image generation is not available in your region. The provider's image generation feature has geographic restrictions.")
		}
		return nil, ProviderError(fmt.Sprintf("image generation failed: %s", err.Error()))
	}

	result := &Result{}
	for _, data := range resp.Data {
		if data.RevisedPrompt != "" {
			result.Text = data.RevisedPrompt
		}
		if data.B64JSON != "" && result.ImageURL == nil {
			uri, err := dataURI(data.B64JSON)
			if err != nil {
				return nil, ProviderError(fmt.Sprintf("image generation failed: %s", err.Error()))
			}
			result.ImageURL = &uri
		}
	}
	if result.Text == "" {
		result.Text = "Generated image: " + req.Prompt
	}
	return result, nil
}

// dataURI wraps a base64 payload as data:<mime>;base64,<payload>.
func dataURI(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid image payload: %w", err)
	}
	mime := mimetype.Detect(raw)
	mimeType := "image/png"
	if mime.Is("image/png") || mime.Is("image/jpeg") || mime.Is("image/webp") || mime.Is("image/gif") {
		mimeType = mime.String()
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, payload), nil
}

func isUnauthorized(err error) bool {
	var apiErr *goopenai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized
}
