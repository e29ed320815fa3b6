package stubserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmarquina/tienda-cli/internal/api"
)

// store is the in-memory state behind the stub backend. Everything lives
// for the lifetime of the process and is lost on restart, which is the
// point of a development double.
type store struct {
	mu sync.Mutex

	users    map[int64]*userRecord
	tokens   map[string]int64 // token -> user id
	products map[int64]*api.Product
	carts    map[int64][]api.CartItem // user id -> lines
	invoices map[int64][]api.Invoice  // user id -> history
	messages []api.ChatMessage
	nextIDs  map[string]int64
}

type userRecord struct {
	profile  api.UserProfile
	password string
}

func newStore() *store {
	return &store{
		users:    make(map[int64]*userRecord),
		tokens:   make(map[string]int64),
		products: make(map[int64]*api.Product),
		carts:    make(map[int64][]api.CartItem),
		invoices: make(map[int64][]api.Invoice),
		nextIDs:  make(map[string]int64),
	}
}

func (s *store) nextID(kind string) int64 {
	s.nextIDs[kind]++
	return s.nextIDs[kind]
}

func nowStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05")
}

func newToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// createUser registers a user and issues a token. Fails when the email is
// taken.
func (s *store) createUser(req api.RegisterRequest) (*api.AuthResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if rec.profile.Email == req.Email {
			return nil, fmt.Errorf("email already registered")
		}
	}

	role := "client"
	if req.IsAdmin {
		role = "admin"
	}
	profile := api.UserProfile{
		ID:          s.nextID("user"),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        role,
		IsActive:    true,
		CreatedAt:   nowStamp(),
	}
	s.users[profile.ID] = &userRecord{profile: profile, password: req.Password}

	token := newToken()
	s.tokens[token] = profile.ID
	return &api.AuthResponse{AccessToken: token, TokenType: "bearer", User: &profile}, nil
}

// login checks credentials and issues a fresh token.
func (s *store) login(email, password string) (*api.AuthResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if rec.profile.Email == email {
			if rec.password != password || !rec.profile.IsActive {
				break
			}
			token := newToken()
			s.tokens[token] = rec.profile.ID
			profile := rec.profile
			return &api.AuthResponse{AccessToken: token, TokenType: "bearer", User: &profile}, nil
		}
	}
	return nil, fmt.Errorf("incorrect email or password")
}

// userForToken resolves a bearer token to its profile.
func (s *store) userForToken(token string) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	rec, ok := s.users[id]
	if !ok {
		return nil, false
	}
	profile := rec.profile
	return &profile, true
}

func (s *store) listUsers() []api.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.UserProfile, 0, len(s.users))
	for _, rec := range s.users {
		out = append(out, rec.profile)
	}
	return out
}

func (s *store) searchUsers(query string) []api.UserProfile {
	query = strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.UserProfile
	for _, rec := range s.users {
		if strings.Contains(strings.ToLower(rec.profile.Email), query) ||
			strings.Contains(strings.ToLower(rec.profile.DisplayName), query) {
			out = append(out, rec.profile)
		}
	}
	return out
}

func (s *store) updateUser(id int64, req api.UpdateUserRequest) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if req.Email != nil {
		rec.profile.Email = *req.Email
	}
	if req.DisplayName != nil {
		rec.profile.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		rec.profile.Role = *req.Role
	}
	profile := rec.profile
	return &profile, true
}

func (s *store) toggleUserStatus(id int64) (*api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, false
	}
	rec.profile.IsActive = !rec.profile.IsActive
	profile := rec.profile
	return &profile, true
}

func (s *store) deleteUser(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	for token, uid := range s.tokens {
		if uid == id {
			delete(s.tokens, token)
		}
	}
	return true
}

func (s *store) addProduct(req api.CreateProductRequest) api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := api.Product{
		ID:          s.nextID("product"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CreatedAt:   nowStamp(),
		UpdatedAt:   nowStamp(),
	}
	s.products[p.ID] = &p
	return p
}

func (s *store) listProducts() []api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out
}

func (s *store) getProduct(id int64) (*api.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	out := *p
	return &out, true
}

func (s *store) updateProduct(id int64, req api.UpdateProductRequest) (*api.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	p.UpdatedAt = nowStamp()
	out := *p
	return &out, true
}

func (s *store) deleteProduct(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return false
	}
	delete(s.products, id)
	return true
}

// cartFor assembles the Cart view for a user. Caller holds s.mu.
func (s *store) cartForLocked(userID int64) api.Cart {
	lines := s.carts[userID]
	cart := api.Cart{Items: append([]api.CartItem(nil), lines...)}
	for _, line := range lines {
		cart.Total += line.Subtotal
		cart.ItemCount += line.Quantity
	}
	return cart
}

func (s *store) getCart(userID int64) api.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartForLocked(userID)
}

func (s *store) addToCart(userID, productID int64, quantity int) (api.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return api.Cart{}, fmt.Errorf("product not found")
	}
	if quantity <= 0 {
		return api.Cart{}, fmt.Errorf("quantity must be positive")
	}

	lines := s.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			lines[i].Subtotal = float64(lines[i].Quantity) * lines[i].ProductPrice
			s.carts[userID] = lines
			return s.cartForLocked(userID), nil
		}
	}
	lines = append(lines, api.CartItem{
		ID:           s.nextID("cartline"),
		ProductID:    productID,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		Quantity:     quantity,
		Subtotal:     float64(quantity) * p.Price,
	})
	s.carts[userID] = lines
	return s.cartForLocked(userID), nil
}

func (s *store) removeFromCart(userID, productID int64) api.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			s.carts[userID] = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return s.cartForLocked(userID)
}

// checkout turns the current cart into an invoice and empties the cart.
func (s *store) checkout(user *api.UserProfile) (*api.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartForLocked(user.ID)
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	invoice := api.Invoice{
		ID:        s.nextID("invoice"),
		UserID:    user.ID,
		UserEmail: user.Email,
		Total:     cart.Total,
		Status:    "pending",
		CreatedAt: nowStamp(),
		UpdatedAt: nowStamp(),
	}
	for _, line := range cart.Items {
		invoice.Items = append(invoice.Items, api.InvoiceItem{
			ID:           line.ID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			ProductPrice: line.ProductPrice,
			Quantity:     line.Quantity,
			Subtotal:     line.Subtotal,
		})
	}
	s.invoices[user.ID] = append(s.invoices[user.ID], invoice)
	delete(s.carts, user.ID)
	return &invoice, nil
}

func (s *store) invoicesFor(userID int64) []api.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Invoice(nil), s.invoices[userID]...)
}

func (s *store) appendMessage(user *api.UserProfile, text string) api.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := api.ChatMessage{
		ID:        s.nextID("message"),
		UserID:    user.ID,
		UserEmail: user.Email,
		Message:   text,
		CreatedAt: nowStamp(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *store) chatHistory() []api.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.ChatMessage(nil), s.messages...)
}

func (s *store) stats() api.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := api.DashboardStats{
		TotalUsers:    len(s.users),
		TotalProducts: len(s.products),
	}
	for _, history := range s.invoices {
		stats.TotalInvoices += len(history)
		for _, inv := range history {
			stats.TotalSales += inv.Total
		}
	}
	return stats
}
