package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/campus-scheduler/api"
	"github.com/warp/campus-scheduler/campus"
	"github.com/warp/campus-scheduler/config"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Username string
	Email    string
	Role     string
	TTL      time.Duration
}

func newTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token",
		Long: `Issue a signed bearer token using the configured JWT secret.

Example:
  campus-server token --username dean --email dean@campus.edu --role admin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			ttl := cfg.Auth.TokenTTL
			if opts.TTL > 0 {
				ttl = opts.TTL
			}

			token, err := api.NewJWTAuth(cfg.Auth.JWTSecret, ttl).Issue(campus.UserIdentity{
				Username: opts.Username,
				Email:    opts.Email,
				Role:     opts.Role,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Role, "role", "student", `role ("admin" for the console)`)
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
