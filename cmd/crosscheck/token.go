package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/integrity/sanctions-crosscheck/internal/api"
)

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token signed with security.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if c.cfg.Security.JWTSecret == "" {
				return errors.New("security.jwt_secret is not set")
			}
			token, err := api.IssueToken(c.cfg.Security.JWTSecret, subject, role, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(c.out, token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, recorded as reviewer")
	cmd.Flags().StringVar(&role, "role", "analyst", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
