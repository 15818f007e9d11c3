package shopapi

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// DirectOrderRequest creates a single-variant order bypassing the cart.
type DirectOrderRequest struct {
	VariantID     string `json:"variant_id"`
	Qty           int    `json:"qty"`
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	Note          string `json:"note,omitempty"`
}

// CartOrderRequest creates an order from the server-side cart contents.
type CartOrderRequest struct {
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	Note          string `json:"note,omitempty"`
}

// Order is the upstream's view of a placed order.
type Order struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Total  decimal.Decimal `json:"total"`
}

// CreateDirectOrder places a buy-now order for one variant.
func (c *Client) CreateDirectOrder(ctx context.Context, token string, req DirectOrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders/direct", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCartOrder places an order consuming the authoritative cart.
func (c *Client) CreateCartOrder(ctx context.Context, token string, req CartOrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
