package main

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/config"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/jwt"
	"github.com/spf13/cobra"
)

var (
	tokenUser  string
	tokenAdmin bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token signed with JWT_SECRET_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration).GenerateAccessToken(tokenUser, tokenAdmin)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"access_token": token,
			"expires_at":   expiresAt,
		})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id carried in the token")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "Grant recalculation access")
	_ = tokenCmd.MarkFlagRequired("user")
}
