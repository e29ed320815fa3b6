package stubserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarquina/tienda-cli/internal/api"
)

type testClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newTestClient(t *testing.T) (*Server, *testClient) {
	t.Helper()
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, &testClient{t: t, server: ts}
}

func (c *testClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (c *testClient) registerAs(email string, admin bool) api.AuthResponse {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/auth/register", api.RegisterRequest{
		Email:       email,
		Password:    "secret",
		DisplayName: strings.Split(email, "@")[0],
		IsAdmin:     admin,
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	auth := decode[api.AuthResponse](c.t, resp)
	c.token = auth.AccessToken
	return auth
}

func TestRegisterAndLogin(t *testing.T) {
	_, c := newTestClient(t)

	auth := c.registerAs("ana@example.com", false)
	require.NotEmpty(t, auth.AccessToken)
	require.NotNil(t, auth.User)
	assert.Equal(t, "client", auth.User.Role)

	// Duplicate email is rejected.
	resp := c.do(http.MethodPost, "/auth/register", api.RegisterRequest{
		Email: "ana@example.com", Password: "other",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Fresh login issues a new token that works against /users/me.
	resp = c.do(http.MethodPost, "/auth/login", api.LoginRequest{
		Email: "ana@example.com", Password: "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[api.AuthResponse](t, resp)
	require.NotEmpty(t, login.AccessToken)
	assert.NotEqual(t, auth.AccessToken, login.AccessToken)

	c.token = login.AccessToken
	resp = c.do(http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[api.UserProfile](t, resp)
	assert.Equal(t, "ana@example.com", me.Email)
}

func TestLoginBadPassword(t *testing.T) {
	_, c := newTestClient(t)
	c.registerAs("ana@example.com", false)

	resp := c.do(http.MethodPost, "/auth/login", api.LoginRequest{
		Email: "ana@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["detail"], "incorrect")
}

func TestAuthRequired(t *testing.T) {
	_, c := newTestClient(t)

	resp := c.do(http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	c.token = "bogus"
	resp = c.do(http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "could not validate credentials", body["detail"])
}

func TestProductCRUDRequiresAdmin(t *testing.T) {
	_, c := newTestClient(t)
	c.registerAs("client@example.com", false)

	resp := c.do(http.MethodPost, "/products", api.CreateProductRequest{Name: "Mate"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	c.registerAs("admin@example.com", true)
	resp = c.do(http.MethodPost, "/products", api.CreateProductRequest{
		Name: "Mate", Price: 12.5, Stock: 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.Product](t, resp)

	newPrice := 15.0
	resp = c.do(http.MethodPut, "/products/"+itoa(created.ID), api.UpdateProductRequest{Price: &newPrice})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[api.Product](t, resp)
	assert.Equal(t, 15.0, updated.Price)
	assert.Equal(t, "Mate", updated.Name)

	// Catalog reads are public.
	anon := &testClient{t: t, server: c.server}
	resp = anon.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decode[[]api.Product](t, resp)
	require.Len(t, products, 1)

	resp = c.do(http.MethodDelete, "/products/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = anon.do(http.MethodGet, "/products/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCartAndCheckout(t *testing.T) {
	srv, c := newTestClient(t)
	srv.Seed(api.CreateProductRequest{Name: "Mate", Price: 10, Stock: 5})
	c.registerAs("ana@example.com", false)

	resp := c.do(http.MethodPost, "/cart/add", api.AddToCartRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decode[api.Cart](t, resp)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 20.0, cart.Total)
	assert.Equal(t, 2, cart.ItemCount)

	// Adding the same product again merges into the existing line.
	resp = c.do(http.MethodPost, "/cart/add", api.AddToCartRequest{ProductID: 1, Quantity: 1})
	cart = decode[api.Cart](t, resp)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 30.0, cart.Total)

	resp = c.do(http.MethodGet, "/cart/total", nil)
	total := decode[api.CartTotal](t, resp)
	assert.Equal(t, 30.0, total.Total)

	resp = c.do(http.MethodPost, "/invoicing/create", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	invoice := decode[api.Invoice](t, resp)
	assert.Equal(t, 30.0, invoice.Total)
	assert.Equal(t, "pending", invoice.Status)
	require.Len(t, invoice.Items, 1)

	// Checkout empties the cart, so a second one fails.
	resp = c.do(http.MethodGet, "/cart", nil)
	cart = decode[api.Cart](t, resp)
	assert.Empty(t, cart.Items)

	resp = c.do(http.MethodPost, "/invoicing/create", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/invoicing/me", nil)
	invoices := decode[[]api.Invoice](t, resp)
	require.Len(t, invoices, 1)
}

func TestAddUnknownProductToCart(t *testing.T) {
	_, c := newTestClient(t)
	c.registerAs("ana@example.com", false)

	resp := c.do(http.MethodPost, "/cart/add", api.AddToCartRequest{ProductID: 99, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["detail"], "not found")
}

func TestDashboardStats(t *testing.T) {
	srv, c := newTestClient(t)
	srv.Seed(
		api.CreateProductRequest{Name: "Mate", Price: 10},
		api.CreateProductRequest{Name: "Bombilla", Price: 5},
	)
	c.registerAs("admin@example.com", true)

	resp := c.do(http.MethodGet, "/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[api.DashboardStats](t, resp)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 0, stats.TotalInvoices)
}

func TestUserAdministration(t *testing.T) {
	_, c := newTestClient(t)
	victim := c.registerAs("victim@example.com", false)
	c.registerAs("admin@example.com", true)

	resp := c.do(http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]api.UserProfile](t, resp)
	assert.Len(t, users, 2)

	resp = c.do(http.MethodGet, "/users/search?q=victim", nil)
	found := decode[[]api.UserProfile](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "victim@example.com", found[0].Email)

	resp = c.do(http.MethodPatch, "/users/"+itoa(victim.User.ID)+"/toggle-status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	toggled := decode[api.UserProfile](t, resp)
	assert.False(t, toggled.IsActive)

	resp = c.do(http.MethodDelete, "/users/"+itoa(victim.User.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/users", nil)
	users = decode[[]api.UserProfile](t, resp)
	assert.Len(t, users, 1)
}

func TestChatBroadcast(t *testing.T) {
	_, c := newTestClient(t)
	c.registerAs("ana@example.com", false)

	wsURL := "ws" + strings.TrimPrefix(c.server.URL, "http") + "/ws/chat?token=" + c.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := c.do(http.MethodPost, "/chat/messages", api.SendMessageRequest{Message: "hola"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sent := decode[api.ChatMessage](t, resp)
	assert.Equal(t, "hola", sent.Message)
	assert.Equal(t, "ana@example.com", sent.UserEmail)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var streamed api.ChatMessage
	require.NoError(t, json.Unmarshal(frame, &streamed))
	assert.Equal(t, sent.ID, streamed.ID)
	assert.Equal(t, "hola", streamed.Message)

	// History returns the stored copy too.
	resp = c.do(http.MethodGet, "/chat/messages", nil)
	history := decode[[]api.ChatMessage](t, resp)
	require.Len(t, history, 1)
}

func TestChatSocketRejectsBadToken(t *testing.T) {
	_, c := newTestClient(t)

	wsURL := "ws" + strings.TrimPrefix(c.server.URL, "http") + "/ws/chat?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
