// Package ui provides the terminal front-end over the sync controller.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/listkeep/apiserver/internal/client"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	doneStyle   = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// RunTUI starts the terminal front-end over the given controller.
func RunTUI(ctx context.Context, ctrl *client.Controller) error {
	model := newModel(ctx, ctrl)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type view int

const (
	viewAuth view = iota
	viewList
)

type inputMode int

const (
	modeNone inputMode = iota
	modeAdd
	modeEdit
)

type model struct {
	ctx  context.Context
	ctrl *client.Controller

	view    view
	busy    bool
	message string

	// Auth form state.
	registering bool
	username    string
	password    string
	focusField  int // 0 = username, 1 = password

	// List view state.
	cursor int
	mode   inputMode
	input  string
	editID int64
}

type restoredMsg struct {
	ok bool
}

type authDoneMsg struct {
	registered bool
	err        error
}

type mutationDoneMsg struct {
	err error
}

func newModel(ctx context.Context, ctrl *client.Controller) *model {
	return &model{ctx: ctx, ctrl: ctrl}
}

func (m *model) Init() tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		ok, _ := m.ctrl.Restore(m.ctx)
		return restoredMsg{ok: ok}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case restoredMsg:
		m.busy = false
		if msg.ok {
			m.view = viewList
		} else {
			m.view = viewAuth
		}
		return m, nil

	case authDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.message = authErrorText(msg.err)
			return m, nil
		}
		if msg.registered {
			m.registering = false
			m.message = "registered, please log in"
			m.password = ""
			return m, nil
		}
		m.view = viewList
		m.message = ""
		m.username = ""
		m.password = ""
		return m, nil

	case mutationDoneMsg:
		m.busy = false
		if msg.err != nil {
			// Auth loss is the only mutation error surfaced to the user.
			m.view = viewAuth
			m.message = "session expired, please log in again"
			return m, nil
		}
		if m.cursor >= len(m.ctrl.Visible()) {
			m.cursor = max(0, len(m.ctrl.Visible())-1)
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.view == viewAuth {
			return m.updateAuth(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m *model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "shift+tab":
		m.focusField = 1 - m.focusField
		return m, nil
	case "ctrl+r":
		m.registering = !m.registering
		m.message = ""
		return m, nil
	case "enter":
		username := strings.TrimSpace(m.username)
		password := m.password
		if username == "" || password == "" {
			m.message = "username and password are required"
			return m, nil
		}
		m.busy = true
		m.message = ""
		registering := m.registering
		return m, func() tea.Msg {
			var err error
			if registering {
				err = m.ctrl.Register(m.ctx, username, password)
			} else {
				err = m.ctrl.Login(m.ctx, username, password)
			}
			return authDoneMsg{registered: registering, err: err}
		}
	case "backspace":
		field := m.focusedField()
		if len(*field) > 0 {
			runes := []rune(*field)
			*field = string(runes[:len(runes)-1])
		}
		return m, nil
	default:
		switch msg.Type {
		case tea.KeyRunes:
			*m.focusedField() += string(msg.Runes)
		case tea.KeySpace:
			*m.focusedField() += " "
		}
		return m, nil
	}
}

func (m *model) focusedField() *string {
	if m.focusField == 0 {
		return &m.username
	}
	return &m.password
}

func (m *model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone {
		return m.updateInput(msg)
	}

	visible := m.ctrl.Visible()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case "1":
		m.ctrl.SetFilter(client.FilterAll)
		m.cursor = 0
	case "2":
		m.ctrl.SetFilter(client.FilterActive)
		m.cursor = 0
	case "3":
		m.ctrl.SetFilter(client.FilterCompleted)
		m.cursor = 0
	case "a":
		m.mode = modeAdd
		m.input = ""
	case "e":
		if m.cursor < len(visible) {
			m.mode = modeEdit
			m.editID = visible[m.cursor].ID
			m.input = visible[m.cursor].Text
		}
	case " ":
		if m.cursor < len(visible) {
			id := visible[m.cursor].ID
			return m.mutate(func() error { return m.ctrl.Toggle(m.ctx, id) })
		}
	case "d":
		if m.cursor < len(visible) {
			id := visible[m.cursor].ID
			return m.mutate(func() error { return m.ctrl.Delete(m.ctx, id) })
		}
	case "c":
		return m.mutate(func() error { return m.ctrl.ClearCompleted(m.ctx) })
	case "s":
		return m.mutate(func() error { m.ctrl.Sync(m.ctx); return nil })
	case "ctrl+l":
		m.ctrl.Logout(m.ctx)
		m.view = viewAuth
		m.message = ""
		m.cursor = 0
	}
	return m, nil
}

func (m *model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.input = ""
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input)
		mode := m.mode
		editID := m.editID
		m.mode = modeNone
		m.input = ""
		if text == "" {
			return m, nil
		}
		if mode == modeAdd {
			return m.mutate(func() error { return m.ctrl.Add(m.ctx, text) })
		}
		return m.mutate(func() error { return m.ctrl.Edit(m.ctx, editID, text) })
	case "backspace":
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		case tea.KeySpace:
			m.input += " "
		}
		return m, nil
	}
}

// mutate runs a controller call off the update loop. Only auth loss is
// reported back; other failures already fell back to local state.
func (m *model) mutate(fn func() error) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, func() tea.Msg {
		err := fn()
		if err != nil && !errors.Is(err, client.ErrUnauthorized) {
			err = nil
		}
		return mutationDoneMsg{err: err}
	}
}

func (m *model) View() string {
	if m.view == viewAuth {
		return m.viewAuthForm()
	}
	return m.viewTodoList()
}

func (m *model) viewAuthForm() string {
	var b strings.Builder
	if m.registering {
		b.WriteString(titleStyle.Render("Register") + "\n\n")
	} else {
		b.WriteString(titleStyle.Render("Login") + "\n\n")
	}

	fields := []struct {
		label string
		value string
		mask  bool
	}{
		{"Username", m.username, false},
		{"Password", m.password, true},
	}
	for i, f := range fields {
		marker := "  "
		if i == m.focusField {
			marker = cursorStyle.Render("> ")
		}
		value := f.value
		if f.mask {
			value = strings.Repeat("*", len([]rune(value)))
		}
		b.WriteString(fmt.Sprintf("%s%s: %s\n", marker, f.label, value))
	}

	if m.message != "" {
		b.WriteString("\n" + errorStyle.Render(m.message) + "\n")
	}
	if m.busy {
		b.WriteString("\n" + faintStyle.Render("working...") + "\n")
	}

	mode := "register"
	if m.registering {
		mode = "login"
	}
	b.WriteString("\n" + faintStyle.Render(
		fmt.Sprintf("enter submit · tab switch field · ctrl+r %s · esc quit", mode)) + "\n")
	return b.String()
}

func (m *model) viewTodoList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Todos — "+m.ctrl.Username()) + "\n")
	b.WriteString(faintStyle.Render(fmt.Sprintf("filter: %s", m.ctrl.Filter())) + "\n\n")

	visible := m.ctrl.Visible()
	if len(visible) == 0 {
		b.WriteString(faintStyle.Render("nothing here") + "\n")
	}
	for i, todo := range visible {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		box := "[ ]"
		line := todo.Text
		if todo.Completed {
			box = "[x]"
			line = doneStyle.Render(line)
		}
		if todo.ID < 0 {
			line += faintStyle.Render(" (local)")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, box, line))
	}

	active := m.ctrl.ActiveCount()
	label := "items"
	if active == 1 {
		label = "item"
	}
	b.WriteString("\n" + fmt.Sprintf("%d %s left", active, label) + "\n")

	switch m.mode {
	case modeAdd:
		b.WriteString("\nadd: " + m.input + cursorStyle.Render("_") + "\n")
	case modeEdit:
		b.WriteString("\nedit: " + m.input + cursorStyle.Render("_") + "\n")
	}

	if m.busy {
		b.WriteString(faintStyle.Render("working...") + "\n")
	}

	b.WriteString("\n" + faintStyle.Render(
		"a add · e edit · space toggle · d delete · c clear done · 1/2/3 filter · s sync · ctrl+l logout · q quit") + "\n")
	return b.String()
}

func authErrorText(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return "invalid username or password"
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "server unreachable"
}
