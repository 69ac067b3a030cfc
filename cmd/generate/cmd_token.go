package main

import (
	"fmt"
	"time"

	"github.com/RichardoC/padchat/internal/auth"
	"github.com/RichardoC/padchat/internal/config"
	"github.com/RichardoC/padchat/internal/models"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token signed with AUTH_JWT_SECRET",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("sub", "", "User id (required)")
	tokenCmd.Flags().String("name", "", "Display name")
	tokenCmd.Flags().String("email", "", "Email address")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sub, _ := cmd.Flags().GetString("sub")
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := auth.NewAuthenticator([]byte(cfg.JWTSecret), cfg.JWTIssuer).
		Issue(models.User{Sub: sub, Name: name, Email: email}, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
