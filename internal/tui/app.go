// Package tui is the terminal frontend for the storefront: catalog, cart,
// live chat, invoice history, and an admin dashboard, gated behind the
// session manager.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/chat"
	"github.com/dmarquina/tienda-cli/internal/logger"
	"github.com/dmarquina/tienda-cli/internal/session"
)

type tab int

const (
	tabCatalog tab = iota
	tabCart
	tabChat
	tabInvoices
	tabDashboard
)

var tabNames = map[tab]string{
	tabCatalog:   "Catalog",
	tabCart:      "Cart",
	tabChat:      "Chat",
	tabInvoices:  "Invoices",
	tabDashboard: "Dashboard",
}

var errEmptyCredentials = errors.New("email and password are required")

const errorDisplayDuration = 5 * time.Second

// App is the bubbletea model for the whole program.
type App struct {
	client   *api.Client
	session  *session.Manager
	chatConn *chat.Connection

	events chan tea.Msg

	width  int
	height int

	state      session.State
	activeTab  tab
	login      loginForm
	catalog    table.Model
	products   []api.Product
	cart       api.Cart
	cartCursor int
	invoices   []api.Invoice
	stats      api.DashboardStats
	chat       chatPanel
	errText    string
}

// New wires the session manager and chat connection callbacks into the
// update loop and returns the initial model.
func New(client *api.Client, sess *session.Manager, conn *chat.Connection) *App {
	a := &App{
		client:   client,
		session:  sess,
		chatConn: conn,
		events:   make(chan tea.Msg, 64),
		login:    newLoginForm(),
		catalog:  newCatalogTable(),
		chat:     newChatPanel(),
		state:    sess.Snapshot(),
	}

	sess.OnChange(func(state session.State) {
		a.post(sessionChangedMsg{state})
	})
	conn.OnMessage(func(m api.ChatMessage) {
		a.post(chatReceivedMsg{m})
	})
	conn.OnStateChange(func(state chat.ConnectionState, err error) {
		a.post(chatStateMsg{state, err})
	})
	return a
}

// post delivers without blocking; a full channel drops the event. State
// messages carry full snapshots, so a dropped one is repaired by the next.
func (a *App) post(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
		logger.Warn("tui: event channel full, dropping %T", msg)
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(a.events),
		func() tea.Msg {
			a.session.Ensure(context.Background())
			return nil
		},
	)
}

func (a *App) tabs() []tab {
	out := []tab{tabCatalog, tabCart, tabChat, tabInvoices}
	if a.state.User.IsAdmin() {
		out = append(out, tabDashboard)
	}
	return out
}

func (a *App) switchTab(delta int) tea.Cmd {
	tabs := a.tabs()
	idx := 0
	for i, t := range tabs {
		if t == a.activeTab {
			idx = i
			break
		}
	}
	a.activeTab = tabs[(idx+delta+len(tabs))%len(tabs)]
	return a.enterTab()
}

// enterTab refreshes the data behind the newly selected tab.
func (a *App) enterTab() tea.Cmd {
	switch a.activeTab {
	case tabCatalog:
		return a.loadProductsCmd()
	case tabCart:
		return a.loadCartCmd()
	case tabChat:
		a.chatConn.Connect()
		return a.loadChatHistoryCmd()
	case tabInvoices:
		return a.loadInvoicesCmd()
	case tabDashboard:
		return a.loadStatsCmd()
	}
	return nil
}

func (a *App) showError(err error) tea.Cmd {
	return a.showErrorText(err.Error())
}

func (a *App) showErrorText(text string) tea.Cmd {
	a.errText = text
	a.login.busy = false
	return clearErrorAfter(errorDisplayDuration)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.catalog.SetHeight(max(4, msg.Height-8))
		a.chat.resize(msg.Width-2, max(4, msg.Height-6))
		return a, nil

	case sessionChangedMsg:
		wasAuthed := a.state.IsAuthenticated()
		a.state = msg.state
		var cmds []tea.Cmd
		cmds = append(cmds, waitForEvent(a.events))
		if msg.state.LastError != "" {
			cmds = append(cmds, a.showErrorText(msg.state.LastError))
		}
		if !wasAuthed && msg.state.IsAuthenticated() {
			a.login.reset()
			a.activeTab = tabCatalog
			a.chatConn.Connect()
			cmds = append(cmds, a.loadProductsCmd(), a.loadCartCmd(), a.loadChatHistoryCmd())
		}
		if wasAuthed && !msg.state.IsAuthenticated() {
			a.chatConn.Disconnect()
			a.login.reset()
		}
		return a, tea.Batch(cmds...)

	case chatReceivedMsg:
		a.chat.append(msg.message)
		return a, waitForEvent(a.events)

	case chatStateMsg:
		a.chat.state = msg.state
		if msg.err != nil {
			logger.Debug("tui: chat state %s: %v", msg.state, msg.err)
		}
		return a, waitForEvent(a.events)

	case productsLoadedMsg:
		a.setProducts(msg.products)
		return a, nil

	case cartLoadedMsg:
		a.cart = msg.cart
		if a.cartCursor >= len(a.cart.Items) {
			a.cartCursor = max(0, len(a.cart.Items)-1)
		}
		return a, nil

	case invoiceCreatedMsg:
		a.cart = api.Cart{}
		a.cartCursor = 0
		return a, a.loadInvoicesCmd()

	case invoicesLoadedMsg:
		a.invoices = msg.invoices
		return a, nil

	case statsLoadedMsg:
		a.stats = msg.stats
		return a, nil

	case chatHistoryLoadedMsg:
		a.chat.setMessages(msg.messages)
		return a, nil

	case chatSentMsg:
		return a, nil

	case authDoneMsg:
		a.login.busy = false
		return a, nil

	case errMsg:
		return a, a.showError(msg.err)

	case clearErrorMsg:
		a.errText = ""
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.chatConn.Disconnect()
			return a, tea.Quit
		}
		if !a.state.Initialized {
			return a, nil
		}
		if !a.state.IsAuthenticated() {
			return a.updateLogin(msg)
		}
		switch msg.String() {
		case "tab":
			return a, a.switchTab(1)
		case "shift+tab":
			return a, a.switchTab(-1)
		case "ctrl+l":
			a.session.Logout()
			return a, nil
		case "q":
			// Quits from list views; in chat "q" belongs to the input.
			if a.activeTab != tabChat {
				a.chatConn.Disconnect()
				return a, tea.Quit
			}
		}
		return a.updateActiveTab(msg)
	}

	if a.state.IsAuthenticated() {
		return a.updateActiveTab(msg)
	}
	return a, nil
}

func (a *App) updateActiveTab(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch a.activeTab {
	case tabCatalog:
		return a.updateCatalog(msg)
	case tabCart:
		return a.updateCart(msg)
	case tabChat:
		return a.updateChat(msg)
	case tabInvoices:
		return a.updateInvoices(msg)
	case tabDashboard:
		return a.updateDashboard(msg)
	}
	return a, nil
}

func (a *App) View() string {
	if !a.state.Initialized {
		return titleStyle.Render("tienda") + "\n\n" + statusStyle.Render("restoring session...")
	}
	if !a.state.IsAuthenticated() {
		var b strings.Builder
		b.WriteString(titleStyle.Render("tienda"))
		b.WriteString("\n\n")
		b.WriteString(a.viewLogin())
		if a.errText != "" {
			b.WriteString("\n" + errorStyle.Render(a.errText))
		}
		return b.String()
	}

	var b strings.Builder
	b.WriteString(a.viewHeader())
	b.WriteString("\n\n")
	switch a.activeTab {
	case tabCatalog:
		b.WriteString(a.viewCatalog())
	case tabCart:
		b.WriteString(a.viewCart())
	case tabChat:
		b.WriteString(a.viewChat())
	case tabInvoices:
		b.WriteString(a.viewInvoices())
	case tabDashboard:
		b.WriteString(a.viewDashboard())
	}
	if a.errText != "" {
		b.WriteString("\n" + errorStyle.Render(a.errText))
	}
	return b.String()
}

func (a *App) viewHeader() string {
	var parts []string
	for _, t := range a.tabs() {
		if t == a.activeTab {
			parts = append(parts, activeTabStyle.Render(tabNames[t]))
		} else {
			parts = append(parts, tabStyle.Render(tabNames[t]))
		}
	}
	header := titleStyle.Render("tienda") + " " + strings.Join(parts, "")
	user := statusStyle.Render(a.state.User.Name() + " · tab: switch · ctrl+l: logout")
	return header + "\n" + user
}

// Run starts the program on the alternate screen and blocks until exit.
func Run(app *App) error {
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
