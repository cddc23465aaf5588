package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/platform/config"
	id "kycgate/pkg/domain"
)

func tokenCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a portal access token signed with JWT_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := id.ParseUserID(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
			token, err := jwt.GenerateAccessToken(userID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (uuid)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
