// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/auth"
	"github.com/jeranaias/chatdeck/internal/cli"
	"github.com/jeranaias/chatdeck/internal/config"
)

type authAPI interface {
	RequestLink(ctx context.Context, email string) error
	Verify(ctx context.Context, email, token string) (api.Session, error)
}

func (a *app) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Request a sign-in link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			return requestLink(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput, args[0])
		},
	}
}

func (a *app) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <email> <token>",
		Short: "Finish signing in and save the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			return verifyLink(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput, args[0], args[1],
				func(s api.Session) error {
					a.cfg.Client.Token = s.Token
					a.cfg.Client.UserID = s.User.ID
					return config.Save(a.cfg, a.configPath)
				})
		},
	}
}

func requestLink(ctx context.Context, c authAPI, w io.Writer, jsonMode bool, email string) error {
	return cli.Output(w, jsonMode, "login",
		func() (string, error) {
			normalized, err := auth.ValidateEmail(email)
			if err != nil {
				return "", err
			}
			return normalized, c.RequestLink(ctx, normalized)
		},
		func(w io.Writer, email string) error {
			_, err := fmt.Fprintf(w, "Sign-in link sent to %s. Run `chatdeck verify %s <token>` with the token it contains.\n", email, email)
			return err
		})
}

func verifyLink(ctx context.Context, c authAPI, w io.Writer, jsonMode bool, email, token string, save func(api.Session) error) error {
	return cli.Output(w, jsonMode, "verify",
		func() (api.Session, error) {
			normalized, err := auth.ValidateEmail(email)
			if err != nil {
				return api.Session{}, err
			}
			s, err := c.Verify(ctx, normalized, token)
			if err != nil {
				return api.Session{}, err
			}
			if err := save(s); err != nil {
				return api.Session{}, fmt.Errorf("session verified but not saved: %w", err)
			}
			return s, nil
		},
		func(w io.Writer, s api.Session) error {
			_, err := fmt.Fprintf(w, "Signed in as %s\n", s.User.Email)
			return err
		})
}
