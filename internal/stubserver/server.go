// Package stubserver is an in-memory double of the storefront backend. It
// serves the same REST surface and chat stream so the client can be
// developed and tested without the real server.
package stubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/logger"
)

// Server hosts the stub backend.
type Server struct {
	store    *store
	hub      *hub
	router   *httprouter.Router
	httpSrv  *http.Server
	upgrader websocket.Upgrader
}

// New builds a stub server with an empty store and a running broadcast hub.
func New() *Server {
	s := &Server{
		store: newStore(),
		hub:   newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	go s.hub.run()
	return s
}

func (s *Server) routes() *httprouter.Router {
	r := httprouter.New()

	r.POST("/auth/register", s.handleRegister)
	r.POST("/auth/login", s.handleLogin)

	r.GET("/users/me", s.authed(s.handleMe))
	r.GET("/users", s.authed(s.handleListUsers))
	r.GET("/users/search", s.authed(s.handleSearchUsers))
	r.PUT("/users/:id", s.authed(s.handleUpdateUser))
	r.DELETE("/users/:id", s.authed(s.handleDeleteUser))
	r.PATCH("/users/:id/toggle-status", s.authed(s.handleToggleUserStatus))

	r.GET("/products", s.handleListProducts)
	r.GET("/products/:id", s.handleGetProduct)
	r.POST("/products", s.authed(s.handleCreateProduct))
	r.PUT("/products/:id", s.authed(s.handleUpdateProduct))
	r.DELETE("/products/:id", s.authed(s.handleDeleteProduct))

	r.GET("/cart", s.authed(s.handleGetCart))
	r.POST("/cart/add", s.authed(s.handleAddToCart))
	r.POST("/cart/remove", s.authed(s.handleRemoveFromCart))
	r.GET("/cart/total", s.authed(s.handleCartTotal))

	r.GET("/chat/messages", s.authed(s.handleChatHistory))
	r.POST("/chat/messages", s.authed(s.handleSendMessage))
	r.GET("/ws/chat", s.handleChatSocket)

	r.POST("/invoicing/create", s.authed(s.handleCreateInvoice))
	r.GET("/invoicing/me", s.authed(s.handleMyInvoices))

	r.GET("/dashboard/stats", s.authed(s.handleDashboardStats))

	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	logger.Info("stubserver: listening on %s", addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP listener and closes all chat sockets.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Seed inserts catalog entries, for demos and tests.
func (s *Server) Seed(products ...api.CreateProductRequest) {
	for _, p := range products {
		s.store.addProduct(p)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("stubserver: encode response: %v", err)
		}
	}
}

// writeError mirrors the real backend's error shape.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type authedHandler func(http.ResponseWriter, *http.Request, httprouter.Params, *api.UserProfile)

// authed resolves the bearer token before calling h. Missing or unknown
// tokens get a 401 with the backend's detail shape.
func (s *Server) authed(h authedHandler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		user, ok := s.store.userForToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		h(w, r, ps, user)
	}
}

func pathID(ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	resp, err := s.store.createUser(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.store.login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	writeJSON(w, http.StatusOK, s.store.listUsers())
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	writeJSON(w, http.StatusOK, s.store.searchUsers(r.URL.Query().Get("q")))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	id, ok := pathID(ps)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req api.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, ok := s.store.updateUser(id, req)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, _ *http.Request, ps httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	id, ok := pathID(ps)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !s.store.deleteUser(id) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleUserStatus(w http.ResponseWriter, _ *http.Request, ps httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	id, ok := pathID(ps)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	updated, ok := s.store.toggleUserStatus(id)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.store.listProducts())
}

func (s *Server) handleGetProduct(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, ok := pathID(ps)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, ok := s.store.getProduct(id)
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	var req api.CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "product name is required")
		return
	}
	writeJSON(w, http.StatusCreated, s.store.addProduct(req))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	id, ok := pathID(ps)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req api.UpdateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, ok := s.store.updateProduct(id, req)
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, _ *http.Request, ps httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	id, ok := pathID(ps)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if !s.store.deleteProduct(id) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCart(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	writeJSON(w, http.StatusOK, s.store.getCart(user.ID))
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *api.UserProfile) {
	var req api.AddToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cart, err := s.store.addToCart(user.ID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *api.UserProfile) {
	var req api.RemoveFromCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.removeFromCart(user.ID, req.ProductID))
}

func (s *Server) handleCartTotal(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	cart := s.store.getCart(user.ID)
	writeJSON(w, http.StatusOK, api.CartTotal{Total: cart.Total})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, _ *api.UserProfile) {
	writeJSON(w, http.StatusOK, s.store.chatHistory())
}

// handleSendMessage stores the message, broadcasts it to every live socket,
// and returns the stored copy to the sender. The sender sees it again on the
// stream; clients keep duplicates.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params, user *api.UserProfile) {
	var req api.SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	msg := s.store.appendMessage(user, req.Message)
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("stubserver: marshal chat message: %v", err)
	} else {
		s.hub.send(payload)
	}
	writeJSON(w, http.StatusCreated, msg)
}

// handleChatSocket authenticates via the token query parameter and joins the
// socket to the hub. The stream is push-only.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	if _, ok := s.store.userForToken(token); !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("stubserver: websocket upgrade: %v", err)
		return
	}
	client := &hubClient{conn: conn, send: make(chan []byte, 32)}
	s.hub.register <- client
	go client.writePump()
	go client.readPump(s.hub)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	invoice, err := s.store.checkout(user)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

func (s *Server) handleMyInvoices(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	writeJSON(w, http.StatusOK, s.store.invoicesFor(user.ID))
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, user *api.UserProfile) {
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	writeJSON(w, http.StatusOK, s.store.stats())
}
