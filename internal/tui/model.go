// Package tui is the terminal rendition of the echo form.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hijjiri/echo-form/internal/usecase/submission"
)

const (
	title       = "Echo Message"
	label       = "Type your message"
	placeholder = "Type your message..."
	helpText    = "enter: send • esc/ctrl+c: quit"
)

type Model struct {
	ctx  context.Context
	ctrl *submission.Controller

	input   textinput.Model
	spinner spinner.Model
	styles  styles
	width   int
}

var _ tea.Model = Model{}

// New は ctrl を操作するフォームを作る。ctx は echo 呼び出しに渡される。
func New(ctx context.Context, ctrl *submission.Controller) Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		input:   ti,
		spinner: sp,
		styles:  defaultStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case resolvedMsg:
		m.ctrl.Resolve(msg.ticket, msg.reply, msg.err)
		return m, nil

	case spinner.TickMsg:
		// pending の間だけ回し続ける
		if !m.ctrl.State().Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.ctrl.SetInput(v)
	}
	return m, cmd
}

// submit はボタン押下。空白だけの入力なら何もしない。
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	if !submission.CanSubmit(value) {
		return m, nil
	}

	ticket, err := m.ctrl.Begin(value)
	if err != nil {
		return m, nil
	}

	ctrl, ctx := m.ctrl, m.ctx
	call := func() tea.Msg {
		reply, err := ctrl.Call(ctx, ticket)
		return resolvedMsg{ticket: ticket, reply: reply, err: err}
	}
	return m, tea.Batch(call, m.spinner.Tick)
}

func (m Model) View() string {
	state := m.ctrl.State()

	var b strings.Builder
	b.WriteString(m.styles.title.Render(title))
	b.WriteString("\n")
	b.WriteString(m.styles.label.Render(label))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.button(state))

	if state.Response != nil {
		b.WriteString("\n\n")
		b.WriteString(m.styles.response.Render(*state.Response))
	}
	if state.Error != nil {
		b.WriteString("\n\n")
		b.WriteString(m.styles.err.Render(*state.Error))
	}

	card := m.styles.card
	if m.width > 4 {
		card = card.Width(m.width - 4)
	}
	return card.Render(b.String()) + "\n" + m.styles.help.Render(helpText) + "\n"
}

func (m Model) button(state submission.FormState) string {
	if state.Pending {
		return m.spinner.View() + " " + m.styles.disabled.Render("Sending...")
	}
	if !submission.CanSubmit(m.input.Value()) {
		return m.styles.disabled.Render("Send")
	}
	return m.styles.button.Render("Send")
}
