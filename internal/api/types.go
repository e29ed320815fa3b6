package api

// Wire types for the storefront backend. Timestamps stay as the ISO strings
// the server sends; the backend omits timezone suffixes so time.Time
// unmarshalling cannot be relied on.

// UserProfile is the authenticated user's profile as returned by /users/me.
// It is replaced wholesale on refresh, never patched field by field.
type UserProfile struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// Name returns the display name, falling back to the email address.
func (u *UserProfile) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
}

// AuthResponse is returned by the register and login endpoints. Login may
// omit the profile; callers then fetch it from /users/me.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *UserProfile `json:"user,omitempty"`
}

// UpdateUserRequest is the body for PUT /users/{id}. Nil fields are omitted.
type UpdateUserRequest struct {
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// CreateProductRequest is the body for POST /products.
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// UpdateProductRequest is the body for PUT /products/{id}. Nil fields are
// omitted so the server keeps their current values.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
}

// CartItem is one line of the current user's cart.
type CartItem struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	Quantity     int     `json:"quantity"`
	Subtotal     float64 `json:"subtotal"`
}

// Cart is the current user's cart as returned by GET /cart.
type Cart struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
}

// AddToCartRequest is the body for POST /cart/add.
type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// RemoveFromCartRequest is the body for POST /cart/remove.
type RemoveFromCartRequest struct {
	ProductID int64 `json:"product_id"`
}

// CartTotal is returned by GET /cart/total.
type CartTotal struct {
	Total float64 `json:"total"`
}

// ChatMessage is a single chat entry, delivered both by GET /chat/messages
// and as one JSON frame per message on the live stream.
type ChatMessage struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	UserEmail string `json:"user_email,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// SendMessageRequest is the body for POST /chat/messages.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// InvoiceItem is one line of an invoice snapshot.
type InvoiceItem struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	Quantity     int     `json:"quantity"`
	Subtotal     float64 `json:"subtotal"`
}

// Invoice is a checkout snapshot created from the cart.
type Invoice struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	UserEmail string        `json:"user_email,omitempty"`
	Items     []InvoiceItem `json:"items"`
	Total     float64       `json:"total"`
	Status    string        `json:"status"` // pending, paid, cancelled
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// DashboardStats is returned by GET /dashboard/stats (admin only).
type DashboardStats struct {
	TotalUsers    int     `json:"total_users"`
	TotalProducts int     `json:"total_products"`
	TotalInvoices int     `json:"total_invoices"`
	TotalSales    float64 `json:"total_sales"`
}
