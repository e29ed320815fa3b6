package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmarquina/tienda-cli/internal/api"
)

func newCatalogTable() table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Product", Width: 32},
		{Title: "Price", Width: 10},
		{Title: "Stock", Width: 6},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Selected = selectedStyle
	t.SetStyles(styles)
	return t
}

func (a *App) setProducts(products []api.Product) {
	a.products = products
	rows := make([]table.Row, 0, len(products))
	for _, p := range products {
		rows = append(rows, table.Row{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			fmt.Sprintf("%.2f", p.Price),
			strconv.Itoa(p.Stock),
		})
	}
	a.catalog.SetRows(rows)
}

// selectedProduct resolves the highlighted catalog row.
func (a *App) selectedProduct() (*api.Product, bool) {
	row := a.catalog.SelectedRow()
	if row == nil {
		return nil, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return nil, false
	}
	for i := range a.products {
		if a.products[i].ID == id {
			return &a.products[i], true
		}
	}
	return nil, false
}

func (a *App) updateCatalog(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "a", "enter":
			if p, ok := a.selectedProduct(); ok {
				return a, a.addToCartCmd(p.ID)
			}
			return a, nil
		case "r":
			return a, a.loadProductsCmd()
		}
	}
	var cmd tea.Cmd
	a.catalog, cmd = a.catalog.Update(msg)
	return a, cmd
}

func (a *App) viewCatalog() string {
	var b strings.Builder
	b.WriteString(a.catalog.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("a/enter: add to cart · r: refresh"))
	return b.String()
}

func (a *App) updateCart(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch key.String() {
	case "up", "k":
		if a.cartCursor > 0 {
			a.cartCursor--
		}
	case "down", "j":
		if a.cartCursor < len(a.cart.Items)-1 {
			a.cartCursor++
		}
	case "x", "delete":
		if a.cartCursor < len(a.cart.Items) {
			return a, a.removeFromCartCmd(a.cart.Items[a.cartCursor].ProductID)
		}
	case "c":
		if len(a.cart.Items) > 0 {
			return a, a.checkoutCmd()
		}
	case "r":
		return a, a.loadCartCmd()
	}
	return a, nil
}

func (a *App) viewCart() string {
	var b strings.Builder
	if len(a.cart.Items) == 0 {
		b.WriteString(labelStyle.Render("  Your cart is empty."))
		b.WriteString("\n\n")
		b.WriteString(statusStyle.Render("r: refresh"))
		return b.String()
	}
	for i, line := range a.cart.Items {
		text := fmt.Sprintf("%dx %s  %.2f", line.Quantity, line.ProductName, line.Subtotal)
		if i == a.cartCursor {
			b.WriteString("  " + selectedStyle.Render("> "+text) + "\n")
		} else {
			b.WriteString("    " + text + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %d items, total %.2f", a.cart.ItemCount, a.cart.Total)))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render("x: remove · c: checkout · r: refresh"))
	return b.String()
}

func (a *App) updateInvoices(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "r" {
		return a, a.loadInvoicesCmd()
	}
	return a, nil
}

func (a *App) viewInvoices() string {
	var b strings.Builder
	if len(a.invoices) == 0 {
		b.WriteString(labelStyle.Render("  No invoices yet."))
	}
	for _, inv := range a.invoices {
		b.WriteString(fmt.Sprintf("  #%d  %s  %.2f  %s\n", inv.ID, inv.CreatedAt, inv.Total, inv.Status))
		for _, item := range inv.Items {
			b.WriteString(labelStyle.Render(fmt.Sprintf("      %dx %s  %.2f", item.Quantity, item.ProductName, item.Subtotal)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("r: refresh"))
	return b.String()
}

func (a *App) updateDashboard(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "r" {
		return a, a.loadStatsCmd()
	}
	return a, nil
}

func (a *App) viewDashboard() string {
	s := a.stats
	lines := []string{
		fmt.Sprintf("Users     %d", s.TotalUsers),
		fmt.Sprintf("Products  %d", s.TotalProducts),
		fmt.Sprintf("Invoices  %d", s.TotalInvoices),
		fmt.Sprintf("Sales     %.2f", s.TotalSales),
	}
	var b strings.Builder
	b.WriteString(panelStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("r: refresh"))
	return b.String()
}
