// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/chatlist"
	"github.com/jeranaias/chatdeck/internal/cli"
	"github.com/jeranaias/chatdeck/internal/controller"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/stream"
	"github.com/jeranaias/chatdeck/internal/tools"
	"github.com/jeranaias/chatdeck/internal/ui/chat"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// errNoTTY is returned when the TUI is asked for without a terminal.
var errNoTTY = errors.New("chatdeck needs an interactive terminal; try `chatdeck chats list`")

func (a *app) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the chat interface (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}
}

func (a *app) runTUI(ctx context.Context) error {
	if !cli.CanRunTUI() {
		return errNoTTY
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// The alt screen owns stdout, so the TUI logs to the configured file
	// or nowhere.
	log := logger.Nop()
	if a.cfg.Log.File != "" {
		l, err := a.logger(a.cfg.Log.File)
		if err != nil {
			return err
		}
		log = l
	}
	defer log.Sync()

	client := a.client(log)
	router := chatlist.NewRouter()
	chats := chatlist.New(client, router, client.UserID(), chatlist.Options{
		StaleAfter: a.cfg.Cache.StaleAfter,
		Log:        log,
	})

	models := model.NewRegistry()
	loadModels(ctx, client, models, log)

	var reg *tools.Registry
	if a.cfg.Provider.Tools {
		reg = tools.NewRegistry()
	} else {
		reg = tools.NewEmptyRegistry()
	}

	ctrl := controller.New(controller.Options{
		Backend:    client,
		Transport:  stream.NewOpenAITransport(a.cfg.Provider, reg, log),
		List:       chats,
		Models:     models,
		UserID:     client.UserID(),
		Model:      a.cfg.UI.DefaultModel,
		System:     a.cfg.Provider.SystemPrompt,
		StaleAfter: a.cfg.Cache.StaleAfter,
		Log:        log,
	})

	m := chat.New(chat.Options{
		Controller: ctrl,
		Chats:      chats,
		Router:     router,
		Theme:      styles.NewTheme(a.cfg.UI.Theme),
		Log:        log,
		WordWrap:   a.cfg.UI.WordWrap,
		Context:    ctx,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	ctrl.Stop()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// loadModels merges the server's model list into reg. A server that cannot
// be reached leaves the builtin registry in place.
func loadModels(ctx context.Context, client *api.Client, reg *model.Registry, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	list, err := client.Models(ctx)
	if err != nil {
		log.Warn("model list unavailable, using builtin models", "error", err)
		return
	}
	for _, info := range list.Models {
		reg.Register(info)
	}
	if list.Default != "" {
		reg.SetDefault(list.Default)
	}
}
