// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui provides the interactive key browser. The top-level model is a
// small state machine: the key table, a public key viewer, a delete
// confirmation and a name prompt for new keys.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/keyring/internal/core"
	"github.com/toeirei/keyring/internal/i18n"
	"github.com/toeirei/keyring/internal/logging"
)

// KeyService is the subset of core.Manager the browser drives.
type KeyService interface {
	ListKeys(ctx context.Context) ([]core.KeyView, error)
	GenerateKey(ctx context.Context, name, keyType, comment, email string) error
	DeleteKey(ctx context.Context, name string) error
	GetPublicKey(ctx context.Context, name string) (string, error)
	SyncConfig(ctx context.Context, dryRun bool) (core.SyncReport, error)
}

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

type viewState int

const (
	listView viewState = iota
	publicKeyView
	confirmDeleteView
	newKeyView
)

type keysLoadedMsg struct {
	keys []core.KeyView
	err  error
}

type publicKeyMsg struct {
	name string
	key  string
	err  error
}

// opDoneMsg reports a finished mutation; the table is reloaded afterwards.
type opDoneMsg struct {
	status string
	err    error
}

type model struct {
	ctx    context.Context
	svc    KeyService
	root   string
	state  viewState
	keys   []core.KeyView
	table  table.Model
	viewer viewport.Model
	input  textinput.Model
	target string
	status string
	err    error
	loaded bool
	width  int
	height int
}

func newModel(ctx context.Context, svc KeyService, root string) model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	in := textinput.New()
	in.Placeholder = "id_ed25519_work"
	in.CharLimit = 128

	return model{
		ctx:    ctx,
		svc:    svc,
		root:   root,
		table:  t,
		viewer: viewport.New(80, 10),
		input:  in,
		width:  80,
	}
}

func columns(width int) []table.Column {
	fp := width - 20 - 10 - 22 - 8
	if fp < 20 {
		fp = 20
	}
	return []table.Column{
		{Title: i18n.T("list.header_name"), Width: 20},
		{Title: i18n.T("list.header_type"), Width: 10},
		{Title: i18n.T("list.header_fingerprint"), Width: fp},
		{Title: i18n.T("list.header_last_used"), Width: 22},
	}
}

func (m model) loadKeys() tea.Cmd {
	return func() tea.Msg {
		keys, err := m.svc.ListKeys(m.ctx)
		return keysLoadedMsg{keys: keys, err: err}
	}
}

func (m model) fetchPublicKey(name string) tea.Cmd {
	return func() tea.Msg {
		key, err := m.svc.GetPublicKey(m.ctx, name)
		return publicKeyMsg{name: name, key: key, err: err}
	}
}

func (m model) copyPublicKey(name string) tea.Cmd {
	return func() tea.Msg {
		key, err := m.svc.GetPublicKey(m.ctx, name)
		if err == nil {
			err = copyToClipboard(key)
		}
		return opDoneMsg{status: i18n.T("tui.status_copied", name), err: err}
	}
}

func (m model) deleteKey(name string) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.DeleteKey(m.ctx, name)
		return opDoneMsg{status: i18n.T("tui.status_deleted", name), err: err}
	}
}

func (m model) generateKey(name string) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.GenerateKey(m.ctx, name, "ed25519", "", "")
		return opDoneMsg{status: i18n.T("tui.status_generated", name), err: err}
	}
}

func (m model) syncConfig() tea.Cmd {
	return func() tea.Msg {
		rep, err := m.svc.SyncConfig(m.ctx, false)
		return opDoneMsg{status: i18n.T("tui.status_synced", len(rep.Added), len(rep.Removed)), err: err}
	}
}

func (m model) Init() tea.Cmd {
	return m.loadKeys()
}

func (m *model) setRows() {
	rows := make([]table.Row, 0, len(m.keys))
	for _, k := range m.keys {
		rows = append(rows, table.Row{k.Name, k.KeyType, k.Fingerprint, k.LastUsed})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m model) selected() (string, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return "", false
	}
	return row[0], true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width - 4))
		m.table.SetHeight(max(msg.Height-8, 3))
		m.viewer.Width = msg.Width - 8
		m.viewer.Height = max(msg.Height-10, 3)
		return m, nil

	case keysLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.keys = msg.keys
		m.setRows()
		return m, nil

	case publicKeyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = publicKeyView
		m.target = msg.name
		m.viewer.SetContent(wrap(msg.key, m.viewer.Width))
		m.viewer.GotoTop()
		return m, nil

	case opDoneMsg:
		m.state = listView
		m.err = msg.err
		m.status = ""
		if msg.err != nil {
			logging.L.Debug("tui operation failed", "err", msg.err)
		} else {
			m.status = msg.status
		}
		return m, m.loadKeys()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.state {
		case publicKeyView:
			return m.updateViewer(msg)
		case confirmDeleteView:
			return m.updateConfirm(msg)
		case newKeyView:
			return m.updateNewKey(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		m.status, m.err = "", nil
		return m, m.loadKeys()
	case "s":
		return m, m.syncConfig()
	case "n":
		m.state = newKeyView
		m.input.Reset()
		return m, m.input.Focus()
	case "enter":
		if name, ok := m.selected(); ok {
			return m, m.fetchPublicKey(name)
		}
		return m, nil
	case "c":
		if name, ok := m.selected(); ok {
			return m, m.copyPublicKey(name)
		}
		return m, nil
	case "d", "delete":
		if name, ok := m.selected(); ok {
			m.state = confirmDeleteView
			m.target = name
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) updateViewer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter":
		m.state = listView
		return m, nil
	case "c":
		return m, m.copyPublicKey(m.target)
	}
	var cmd tea.Cmd
	m.viewer, cmd = m.viewer.Update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		return m, m.deleteKey(m.target)
	default:
		m.state = listView
		m.target = ""
		return m, nil
	}
}

func (m model) updateNewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = listView
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		if name == "" {
			m.state = listView
			return m, nil
		}
		return m, m.generateKey(name)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("tui.title")))
	b.WriteString(helpStyle.Render(" " + m.root))
	b.WriteString("\n\n")

	switch m.state {
	case publicKeyView:
		b.WriteString(helpStyle.Render(i18n.T("tui.public_key", m.target)))
		b.WriteString("\n")
		b.WriteString(dialogBoxStyle.Render(m.viewer.View()))
	case confirmDeleteView:
		b.WriteString(dialogBoxStyle.Render(specialStyle.Render(i18n.T("tui.confirm_delete", m.target))))
	case newKeyView:
		b.WriteString(dialogBoxStyle.Render(i18n.T("tui.new_prompt") + "\n\n" + m.input.View()))
	default:
		switch {
		case !m.loaded:
			b.WriteString(helpStyle.Render(i18n.T("tui.loading")))
		case len(m.keys) == 0 && m.err == nil:
			b.WriteString(helpStyle.Render(i18n.T("tui.empty", m.root)))
		default:
			b.WriteString(m.table.View())
		}
	}

	b.WriteString("\n\n")
	status := ""
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case m.status != "":
		status = successStyle.Render(m.status)
	}
	b.WriteString(alignFooter(helpStyle.Render(i18n.T("tui.help")), status, m.width-4))
	return docStyle.Render(b.String())
}

// wrap hard-wraps s at width columns; public keys have no spaces to break on.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// Run starts the browser on the alternate screen and blocks until the user
// quits.
func Run(ctx context.Context, svc KeyService, root string) error {
	p := tea.NewProgram(newModel(ctx, svc, root), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
