package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

var errNoAuthSecret = errors.New("auth.secret is not set, the API does not need tokens")

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the HTTP bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errNoAuthSecret
			}

			if subject == "" {
				subject, _ = os.Hostname()
			}

			token, err := services.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).GenerateToken(subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "client the token is issued to (default: hostname)")
	return cmd
}
