package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmarquina/tienda-cli/internal/api"
)

// loginForm handles both sign-in and account creation. Ctrl+R flips between
// the two modes.
type loginForm struct {
	email       textinput.Model
	password    textinput.Model
	displayName textinput.Model
	focus       int
	registering bool
	busy        bool
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	displayName := textinput.New()
	displayName.Placeholder = "display name (optional)"
	displayName.CharLimit = 64

	return loginForm{email: email, password: password, displayName: displayName}
}

func (f *loginForm) fieldCount() int {
	if f.registering {
		return 3
	}
	return 2
}

func (f *loginForm) setFocus(i int) {
	f.focus = i
	inputs := []*textinput.Model{&f.email, &f.password, &f.displayName}
	for n, in := range inputs {
		if n == i {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (f *loginForm) reset() {
	f.password.SetValue("")
	f.busy = false
	f.setFocus(0)
}

func (a *App) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := &a.login

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus((f.focus + 1) % f.fieldCount())
			return a, nil
		case "shift+tab", "up":
			f.setFocus((f.focus + f.fieldCount() - 1) % f.fieldCount())
			return a, nil
		case "ctrl+r":
			f.registering = !f.registering
			if f.focus >= f.fieldCount() {
				f.setFocus(0)
			}
			return a, nil
		case "enter":
			if f.busy {
				return a, nil
			}
			email := strings.TrimSpace(f.email.Value())
			password := f.password.Value()
			if email == "" || password == "" {
				return a, a.showError(errEmptyCredentials)
			}
			f.busy = true
			if f.registering {
				return a, a.registerCmd(api.RegisterRequest{
					Email:       email,
					Password:    password,
					DisplayName: strings.TrimSpace(f.displayName.Value()),
				})
			}
			return a, a.loginCmd(email, password)
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	f.email, cmd = f.email.Update(msg)
	cmds = append(cmds, cmd)
	f.password, cmd = f.password.Update(msg)
	cmds = append(cmds, cmd)
	if f.registering {
		f.displayName, cmd = f.displayName.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) viewLogin() string {
	f := &a.login

	var b strings.Builder
	if f.registering {
		b.WriteString(titleStyle.Render("Create account"))
	} else {
		b.WriteString(titleStyle.Render("Sign in"))
	}
	b.WriteString("\n\n")
	b.WriteString("  " + f.email.View() + "\n")
	b.WriteString("  " + f.password.View() + "\n")
	if f.registering {
		b.WriteString("  " + f.displayName.View() + "\n")
	}
	b.WriteString("\n")
	if f.busy {
		b.WriteString(statusStyle.Render("working...") + "\n")
	}
	if f.registering {
		b.WriteString(statusStyle.Render("enter: register · ctrl+r: back to sign in · ctrl+c: quit"))
	} else {
		b.WriteString(statusStyle.Render("enter: sign in · ctrl+r: create account · ctrl+c: quit"))
	}
	return b.String()
}
