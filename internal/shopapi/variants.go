package shopapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/shopin/storefront-bff/pkg/errors"
	"github.com/shopin/storefront-bff/pkg/variantref"
)

// Variant is a purchasable product configuration.
type Variant struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Product     ProductSummary  `json:"product"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock,omitempty"`
	Purchasable bool            `json:"purchasable"`
}

// GetVariantByID looks a variant up by its canonical identifier.
func (c *Client) GetVariantByID(ctx context.Context, token, id string) (*Variant, error) {
	var out Variant
	if err := c.do(ctx, http.MethodGet, "/v1/variants/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVariantBySlug looks a variant up by its human-readable slug.
func (c *Client) GetVariantBySlug(ctx context.Context, token, slug string) (*Variant, error) {
	var out Variant
	if err := c.do(ctx, http.MethodGet, "/v1/variants/slug/"+url.PathEscape(slug), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveVariant routes the reference to the matching lookup based on its
// structural shape.
func (c *Client) ResolveVariant(ctx context.Context, token, ref string) (*Variant, error) {
	switch variantref.Classify(ref) {
	case variantref.KindID:
		return c.GetVariantByID(ctx, token, ref)
	case variantref.KindSlug:
		return c.GetVariantBySlug(ctx, token, ref)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant reference is required")
	}
}
