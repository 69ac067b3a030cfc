package main

import (
	"fmt"
	"strings"

	"github.com/RichardoC/padchat/internal/config"
	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var promptCmd = &cobra.Command{
	Use:   "prompt [text]",
	Short: "Send one prompt to the response generator",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPrompt,
}

func init() {
	promptCmd.Flags().Bool("image", false, "Generate an image instead of text")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	generator, err := llm.New(llm.Config{
		BaseURL:    cfg.LLMBaseURL,
		Token:      cfg.LLMAPIKey,
		TextModel:  cfg.LLMTextModel,
		ImageModel: cfg.LLMImageModel,
		ImageSize:  cfg.LLMImageSize,
		Timeout:    cfg.LLMTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	mode := llm.ModeText
	if image, _ := cmd.Flags().GetBool("image"); image {
		mode = llm.ModeImage
	}

	res, err := generator.Generate(cmd.Context(), llm.Request{Prompt: strings.Join(args, " "), Mode: mode})
	if err != nil {
		logger.Error("failed to generate completion", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Text)
	if res.ImageURL != nil {
		fmt.Fprintln(out, *res.ImageURL)
	}
	return nil
}
