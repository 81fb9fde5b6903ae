package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/haulbook/internal/http/auth"
)

var errNoSecret = errors.New("AUTH_JWT_SECRET is not set")

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}

	var (
		subject string
		ttl     time.Duration
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a client device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Auth.JWTSecret == "" {
				return errNoSecret
			}

			token, err := auth.NewManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.JWTIssuer).Issue(subject, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	issue.Flags().StringVar(&subject, "subject", "", "device or user the token is for")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime; 0 never expires")
	_ = issue.MarkFlagRequired("subject")

	cmd.AddCommand(issue)

	return cmd
}
