// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdeck/internal/chatlist"
	"github.com/jeranaias/chatdeck/internal/controller"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/transcript"
	"github.com/jeranaias/chatdeck/internal/ui/components"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// Placeholder is shown in the empty input.
const Placeholder = "Send a message..."

// Focus is the pane receiving keys.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options wires a Model to the stores it renders.
type Options struct {
	Controller *controller.Controller
	Chats      *chatlist.Store
	Router     *chatlist.Router
	Theme      *styles.Theme
	Log        *logger.Logger

	// WordWrap caps the transcript width; 0 means no cap
	WordWrap int

	// Copy puts a message on the clipboard; defaults to transcript.Copy
	Copy func(model.Message) error

	// Context bounds every command the model starts
	Context context.Context
}

// Model is the Bubble Tea model for the whole chat screen: sidebar,
// transcript, input and status bar.
type Model struct {
	ctx    context.Context
	ctl    *controller.Controller
	chats  *chatlist.Store
	router *chatlist.Router
	theme  *styles.Theme
	log    *logger.Logger
	copyFn func(model.Message) error
	bridge *bridge
	keys   KeyMap

	renderer *transcript.Renderer
	sidebar  *components.Sidebar
	status   *components.StatusBar
	picker   *components.ModelPicker

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	focus       Focus
	route       string
	draft       string // id of the unsaved chat shown on the home route
	initialOpen string
	view        controller.View
	list        chatlist.State

	notice    string
	noticeSeq int

	width    int
	height   int
	wordWrap int
	ready    bool
}

// New creates the chat model and subscribes it to the controller, the
// chat list and the router.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = transcript.Copy
	}

	ta := textarea.New()
	ta.Placeholder = Placeholder
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 8000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(styles.DotsSpinner.Bubbles()))

	m := Model{
		ctx:      ctx,
		ctl:      opts.Controller,
		chats:    opts.Chats,
		router:   opts.Router,
		theme:    theme,
		log:      log.With("component", "tui"),
		copyFn:   copyFn,
		bridge:   newBridge(),
		keys:     DefaultKeyMap(),
		renderer: transcript.New(transcript.Options{Style: theme.Markdown, Highlight: true}),
		sidebar:  components.NewSidebar(theme),
		status:   components.NewStatusBar(theme),
		picker:   components.NewModelPicker(theme),
		viewport: viewport.New(80, 20),
		input:    ta,
		spinner:  sp,
		focus:    FocusInput,
		wordWrap: opts.WordWrap,
	}

	m.ctl.OnChange(func(controller.View) { m.bridge.poke() })
	m.chats.OnChange(func(chatlist.State) { m.bridge.poke() })
	m.router.OnNavigate(func(string) { m.bridge.poke() })
	m.chats.OnDeleted(m.ctl.Forget)

	m.route = m.router.Current()
	if id, ok := chatlist.ChatIDFromRoute(m.route); ok {
		m.initialOpen = id
	} else {
		m.draft = m.ctl.StartNew().ChatID
	}
	m.view = m.ctl.View()
	m.list = m.chats.State()
	return m
}

// Init starts loading the chat list and listening for changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.bridge.wait(),
		loadChatsCmd(m.ctx, m.chats),
		m.spinner.Tick,
	}
	if m.initialOpen != "" {
		cmds = append(cmds, openCmd(m.ctx, m.ctl, m.initialOpen))
	}
	return tea.Batch(cmds...)
}

// Focused returns the pane receiving keys.
func (m Model) Focused() Focus {
	return m.focus
}

// InputValue returns the text typed so far.
func (m Model) InputValue() string {
	return m.input.Value()
}

// Notice returns the transient status bar message.
func (m Model) Notice() string {
	return m.notice
}

// Route returns the route the model last followed.
func (m Model) Route() string {
	return m.route
}
