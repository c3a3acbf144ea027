// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	jsonOutput bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "chatdeck",
		Short:         "Terminal chat client with saved conversations",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.chatdeck/config.toml)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		a.newServeCmd(),
		a.newTUICmd(),
		a.newChatsCmd(),
		a.newModelsCmd(),
		a.newLoginCmd(),
		a.newVerifyCmd(),
	)
	return root
}

func (a *app) loadConfig() error {
	if a.configPath == "" {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}
	cfg, err := config.LoadFromPath(a.configPath)
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)
	a.cfg = cfg
	return nil
}

// logger builds the command logger. Output goes to path, or stderr when
// path is empty.
func (a *app) logger(path string) (*logger.Logger, error) {
	return logger.New(logger.Options{
		Mode:       a.cfg.Log.Mode,
		Level:      a.cfg.Log.Level,
		OutputPath: path,
	})
}

// client builds the persistence API client from the client config.
func (a *app) client(log *logger.Logger) *api.Client {
	return api.New(a.cfg.Client, log)
}
