package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/chat"
	"github.com/dmarquina/tienda-cli/internal/session"
)

// Messages delivered into the update loop. Session and chat callbacks feed
// the events channel; API calls resolve through tea.Cmds.

type sessionChangedMsg struct {
	state session.State
}

type chatReceivedMsg struct {
	message api.ChatMessage
}

type chatStateMsg struct {
	state chat.ConnectionState
	err   error
}

type productsLoadedMsg struct {
	products []api.Product
}

type cartLoadedMsg struct {
	cart api.Cart
}

type invoicesLoadedMsg struct {
	invoices []api.Invoice
}

type statsLoadedMsg struct {
	stats api.DashboardStats
}

type invoiceCreatedMsg struct {
	invoice api.Invoice
}

type chatHistoryLoadedMsg struct {
	messages []api.ChatMessage
}

type chatSentMsg struct{}

type authDoneMsg struct{}

type errMsg struct {
	err error
}

type clearErrorMsg struct{}

const requestTimeout = 15 * time.Second

func apiCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// waitForEvent re-arms after every delivered message so the channel keeps
// draining for the lifetime of the program.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

func (a *App) loadProductsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		products, err := a.client.ListProducts(ctx)
		if err != nil {
			return errMsg{err}
		}
		return productsLoadedMsg{products}
	}
}

func (a *App) loadCartCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		cart, err := a.client.GetCart(ctx)
		if err != nil {
			return errMsg{err}
		}
		return cartLoadedMsg{*cart}
	}
}

func (a *App) addToCartCmd(productID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		cart, err := a.client.AddToCart(ctx, productID, 1)
		if err != nil {
			return errMsg{err}
		}
		return cartLoadedMsg{*cart}
	}
}

func (a *App) removeFromCartCmd(productID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		cart, err := a.client.RemoveFromCart(ctx, productID)
		if err != nil {
			return errMsg{err}
		}
		return cartLoadedMsg{*cart}
	}
}

func (a *App) checkoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		invoice, err := a.client.CreateInvoice(ctx)
		if err != nil {
			return errMsg{err}
		}
		return invoiceCreatedMsg{*invoice}
	}
}

func (a *App) loadInvoicesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		invoices, err := a.client.MyInvoices(ctx)
		if err != nil {
			return errMsg{err}
		}
		return invoicesLoadedMsg{invoices}
	}
}

func (a *App) loadStatsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		stats, err := a.client.GetDashboardStats(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statsLoadedMsg{*stats}
	}
}

func (a *App) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		if err := a.session.Login(ctx, email, password); err != nil {
			return errMsg{err}
		}
		return authDoneMsg{}
	}
}

func (a *App) registerCmd(req api.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		if err := a.session.Register(ctx, req); err != nil {
			return errMsg{err}
		}
		return authDoneMsg{}
	}
}

func (a *App) loadChatHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		if err := a.chatConn.LoadHistory(ctx); err != nil {
			return errMsg{err}
		}
		return chatHistoryLoadedMsg{a.chatConn.Messages()}
	}
}

func (a *App) sendChatCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := apiCtx()
		defer cancel()
		if err := a.chatConn.Send(ctx, text); err != nil {
			return errMsg{err}
		}
		return chatSentMsg{}
	}
}
