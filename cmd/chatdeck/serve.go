// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/auth"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/server"
	"github.com/jeranaias/chatdeck/internal/storage"
)

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	log, err := a.logger("")
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := storage.Open(a.cfg.Server.DBDriver, a.cfg.Server.DBDSN, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var signIn server.SignIn
	if a.cfg.Auth.JWTSecret != "" {
		issuer, err := auth.NewIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.SessionTTL, nil)
		if err != nil {
			return err
		}
		signIn = auth.NewService(store, issuer, a.cfg.Auth.LinkTTL, log, nil)
	} else {
		log.Warn("auth.jwt_secret is not set; sign-in is disabled and callers identify with x-user-id")
	}

	models := model.NewRegistry()
	if a.cfg.UI.DefaultModel != "" {
		models.SetDefault(a.cfg.UI.DefaultModel)
	}
	srv := server.New(a.cfg.Server, store, signIn, auth.NewAdminList(a.cfg.Auth.AdminIDs), models, log)

	watcher, err := config.NewWatcher(a.configPath, 200*time.Millisecond, func(c *config.Config) {
		config.SetGlobal(c)
		srv.ApplyConfig(c.Server)
	}, func(err error) {
		log.Warn("config reload failed", "error", err)
	})
	if err != nil {
		log.Warn("config watching disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
