// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// MODEL PICKER
// =============================================================================

// ModelPicker is a small overlay for choosing the model of later sends.
type ModelPicker struct {
	Models  []model.ModelInfo
	Cursor  int
	Visible bool
	theme   *styles.Theme
}

// NewModelPicker creates a hidden picker.
func NewModelPicker(theme *styles.Theme) *ModelPicker {
	return &ModelPicker{theme: theme}
}

// Show opens the picker with the cursor on current.
func (p *ModelPicker) Show(models []model.ModelInfo, current string) {
	p.Models = models
	p.Cursor = 0
	for i, m := range models {
		if m.ID == current {
			p.Cursor = i
		}
	}
	p.Visible = true
}

// Hide closes the picker.
func (p *ModelPicker) Hide() {
	p.Visible = false
}

func (p *ModelPicker) MoveUp() {
	if p.Cursor > 0 {
		p.Cursor--
	}
}

func (p *ModelPicker) MoveDown() {
	if p.Cursor < len(p.Models)-1 {
		p.Cursor++
	}
}

// Choose returns the model under the cursor and closes the picker.
func (p *ModelPicker) Choose() (model.ModelInfo, bool) {
	p.Visible = false
	if p.Cursor < 0 || p.Cursor >= len(p.Models) {
		return model.ModelInfo{}, false
	}
	return p.Models[p.Cursor], true
}

// View renders the picker box.
func (p *ModelPicker) View() string {
	var b strings.Builder
	b.WriteString(p.theme.SidebarTitle.Render("Model"))
	b.WriteString("\n")
	for i, m := range p.Models {
		line := "  " + m.Name
		if m.Description != "" {
			line += " " + p.theme.ShortcutDesc.Render(m.Description)
		}
		if i == p.Cursor {
			line = p.theme.ChatItemActive.Render("> " + m.Name)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.FocusRing).
		Padding(0, 1).
		Render(b.String())
}
