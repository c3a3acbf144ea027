// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/cli"
)

type modelAPI interface {
	Models(ctx context.Context) (api.ModelList, error)
}

func (a *app) newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List selectable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := a.logger(a.cfg.Log.File)
			if err != nil {
				return err
			}
			defer log.Sync()
			return listModels(cmd.Context(), a.client(log), cmd.OutOrStdout(), a.jsonOutput)
		},
	}
}

func listModels(ctx context.Context, c modelAPI, w io.Writer, jsonMode bool) error {
	return cli.Output(w, jsonMode, "models",
		func() (api.ModelList, error) { return c.Models(ctx) },
		func(w io.Writer, list api.ModelList) error {
			t := &cli.Table{Headers: []string{"", "ID", "NAME", "PROVIDER", "CAPABILITIES"}, MaxWidth: 40}
			for _, m := range list.Models {
				mark := ""
				if m.ID == list.Default {
					mark = "*"
				}
				t.AddRow(mark, m.ID, m.Name, m.Provider, strings.Join(m.Capabilities, ","))
			}
			return t.Write(w)
		})
}
