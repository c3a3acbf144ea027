// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatdeck.
//
// Sources, lowest precedence first:
//   - Built-in defaults (Default)
//   - ~/.chatdeck/config.toml
//   - a .env file in the working directory
//   - CHATDECK_* environment variables
//
// # Key Types
//
//   - Config: the complete configuration tree
//   - ValidateErrors: every problem found by Validate, reported together
//   - Watcher: reloads the TOML file on change and swaps the global config
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Client.BaseURL)
//
// Environment overrides use the section name as prefix:
//
//	CHATDECK_PROVIDER_API_KEY=sk-...
//	CHATDECK_AUTH_ADMIN_IDS=u1,u2
package config
