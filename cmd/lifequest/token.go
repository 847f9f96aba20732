package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastygo/lifequest/internal/middleware"
)

func tokenCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfig()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := middleware.IssueToken(cfg.JWT.Secret, cfg.JWT.Issuer, userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id to embed in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
