// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the chatdeck TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - assistant label, sidebar title, model badge
  - Cyan - user label, focus ring, shortcut keys
  - Emerald - completed tool calls
  - Amber - running tools and live reasoning
  - Rose - errors

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	if theme.IsDark {
		// Dark terminal detected
	}
	renderer := transcript.New(transcript.Options{Style: theme.Markdown})

# Spinners (spinner.go)

	sp := spinner.New(spinner.WithSpinner(styles.DotsSpinner.Bubbles()))
*/
package styles
