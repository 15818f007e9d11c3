package shopapi

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// CartItem is one authoritative cart line as the upstream reports it.
type CartItem struct {
	ID        string          `json:"id"`
	Product   ProductSummary  `json:"product"`
	Variant   VariantSummary  `json:"variant"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ProductSummary is the slice of product data embedded in cart lines.
type ProductSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// VariantSummary is the slice of variant data embedded in cart lines.
type VariantSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock *int   `json:"stock,omitempty"`
}

// SyncItem is one (variant, qty) pair carried on the bulk sync endpoint,
// in both directions.
type SyncItem struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

type cartEnvelope struct {
	Items []CartItem `json:"items"`
}

type syncEnvelope struct {
	Items []SyncItem `json:"items"`
}

// GetCart fetches the authoritative cart for the token's user.
func (c *Client) GetCart(ctx context.Context, token string) ([]CartItem, error) {
	var out cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/cart", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SyncCart pushes the local (variant, qty) pairs in one bulk call and
// returns the authoritative quantities the server settled on. The server
// applies last-write-wins and clamps to available stock.
func (c *Client) SyncCart(ctx context.Context, token string, items []SyncItem) ([]SyncItem, error) {
	payload := syncEnvelope{Items: items}
	var out syncEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/cart/sync", token, payload, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
