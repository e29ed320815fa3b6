package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/chat"
)

type chatPanel struct {
	viewport viewport.Model
	input    textinput.Model
	messages []api.ChatMessage
	state    chat.ConnectionState
	ready    bool
}

func newChatPanel() chatPanel {
	input := textinput.New()
	input.Placeholder = "say something"
	input.CharLimit = 500
	input.Focus()
	return chatPanel{input: input, state: chat.StateDisconnected}
}

func (p *chatPanel) resize(width, height int) {
	if !p.ready {
		p.viewport = viewport.New(width, height)
		p.ready = true
	} else {
		p.viewport.Width = width
		p.viewport.Height = height
	}
	p.input.Width = width - 4
	p.refresh()
}

// refresh re-renders the transcript and pins the viewport to the newest
// message.
func (p *chatPanel) refresh() {
	if !p.ready {
		return
	}
	var b strings.Builder
	for _, m := range p.messages {
		header := chatEmailStyle.Render(m.UserEmail) + " " + chatTimeStyle.Render(m.CreatedAt)
		b.WriteString(header + "\n")
		b.WriteString(wordwrap.String(m.Message, p.viewport.Width-2) + "\n\n")
	}
	p.viewport.SetContent(b.String())
	p.viewport.GotoBottom()
}

func (p *chatPanel) append(m api.ChatMessage) {
	p.messages = append(p.messages, m)
	p.refresh()
}

func (p *chatPanel) setMessages(messages []api.ChatMessage) {
	p.messages = messages
	p.refresh()
}

func (p *chatPanel) statusLine() string {
	switch p.state {
	case chat.StateConnected:
		return connectedStyle.Render("● live")
	case chat.StateConnecting:
		return statusStyle.Render("○ connecting...")
	default:
		return disconnectedStyle.Render("○ offline, retrying")
	}
}

func (a *App) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	p := &a.chat

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			text := strings.TrimSpace(p.input.Value())
			if text == "" {
				return a, nil
			}
			p.input.SetValue("")
			return a, a.sendChatCmd(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			p.viewport, cmd = p.viewport.Update(msg)
			return a, cmd
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	cmds = append(cmds, cmd)
	p.viewport, cmd = p.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) viewChat() string {
	p := &a.chat
	var b strings.Builder
	if p.ready {
		b.WriteString(p.viewport.View())
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("%s  %s", p.statusLine(), p.input.View()))
	return b.String()
}
