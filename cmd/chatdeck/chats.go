// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/cli"
	"github.com/jeranaias/chatdeck/internal/export"
	"github.com/jeranaias/chatdeck/internal/model"
)

// chatAPI is the part of the API client the chats commands use.
type chatAPI interface {
	ListChats(ctx context.Context) ([]model.ChatSummary, error)
	CreateChat(ctx context.Context, id, title string) (model.ChatSummary, error)
	RenameChat(ctx context.Context, chatID, title string) (model.ChatSummary, error)
	DeleteChat(ctx context.Context, chatID string) error
}

type chatGetter interface {
	GetChat(ctx context.Context, chatID string) (model.Chat, error)
}

func (a *app) newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List and manage saved conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			return listChats(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput)
		},
	}

	create := &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			title := model.DefaultChatTitle
			if len(args) == 1 {
				title = args[0]
			}
			return createChat(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput, title)
		},
	}

	rename := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			return renameChat(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput, args[0], args[1])
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			return deleteChat(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput, args[0])
		},
	}

	var format, outDir string
	var noReasoning bool
	exp := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a conversation to a Markdown, JSON or HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			opts := export.DefaultOptions()
			opts.IncludeReasoning = !noReasoning
			if a.cfg.UI.Theme == "light" {
				opts.Theme = "light"
			}
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}
			return exportChat(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput, args[0], exporter, outDir)
		},
	}
	exp.Flags().StringVarP(&format, "format", "f", "markdown", "markdown, json or html")
	exp.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	exp.Flags().BoolVar(&noReasoning, "no-reasoning", false, "leave reasoning out of the document")

	cmd.AddCommand(list, create, rename, del, exp)
	return cmd
}

func listChats(ctx context.Context, c chatAPI, w io.Writer, jsonMode bool) error {
	return cli.Output(w, jsonMode, "chats list",
		func() ([]model.ChatSummary, error) { return c.ListChats(ctx) },
		func(w io.Writer, chats []model.ChatSummary) error {
			if len(chats) == 0 {
				_, err := fmt.Fprintln(w, "No conversations yet")
				return err
			}
			t := &cli.Table{Headers: []string{"ID", "TITLE", "UPDATED"}, MaxWidth: 48}
			for _, c := range chats {
				t.AddRow(c.ID, c.Title, c.UpdatedAt.Local().Format(time.DateTime))
			}
			return t.Write(w)
		})
}

func createChat(ctx context.Context, c chatAPI, w io.Writer, jsonMode bool, title string) error {
	return cli.Output(w, jsonMode, "chats new",
		func() (model.ChatSummary, error) {
			return c.CreateChat(ctx, model.NewID(), strings.TrimSpace(title))
		},
		func(w io.Writer, chat model.ChatSummary) error {
			_, err := fmt.Fprintf(w, "Created %s (%s)\n", chat.ID, chat.Title)
			return err
		})
}

func renameChat(ctx context.Context, c chatAPI, w io.Writer, jsonMode bool, id, title string) error {
	return cli.Output(w, jsonMode, "chats rename",
		func() (model.ChatSummary, error) { return c.RenameChat(ctx, id, title) },
		func(w io.Writer, chat model.ChatSummary) error {
			_, err := fmt.Fprintf(w, "Renamed %s to %q\n", chat.ID, chat.Title)
			return err
		})
}

func exportChat(ctx context.Context, c chatGetter, w io.Writer, jsonMode bool, id string, exporter export.Exporter, dir string) error {
	return cli.Output(w, jsonMode, "chats export",
		func() (string, error) {
			chat, err := c.GetChat(ctx, id)
			if err != nil {
				return "", err
			}
			return export.ExportToFile(chat, exporter, dir)
		},
		func(w io.Writer, path string) error {
			_, err := fmt.Fprintf(w, "Exported to %s\n", path)
			return err
		})
}

func deleteChat(ctx context.Context, c chatAPI, w io.Writer, jsonMode bool, id string) error {
	return cli.Output(w, jsonMode, "chats delete",
		func() (string, error) { return id, c.DeleteChat(ctx, id) },
		func(w io.Writer, id string) error {
			_, err := fmt.Fprintf(w, "Deleted %s\n", id)
			return err
		})
}
