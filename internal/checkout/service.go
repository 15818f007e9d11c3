package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopin/storefront-bff/internal/cart"
	"github.com/shopin/storefront-bff/internal/shopapi"
	pkgerrors "github.com/shopin/storefront-bff/pkg/errors"
	"github.com/shopin/storefront-bff/pkg/logger"
	"github.com/shopin/storefront-bff/pkg/metrics"
)

// orderAPI is the slice of the commerce API the dispatcher needs.
type orderAPI interface {
	ResolveVariant(ctx context.Context, token, ref string) (*shopapi.Variant, error)
	CreateDirectOrder(ctx context.Context, token string, req shopapi.DirectOrderRequest) (*shopapi.Order, error)
	CreateCartOrder(ctx context.Context, token string, req shopapi.CartOrderRequest) (*shopapi.Order, error)
}

// cartFlusher pushes unsynced optimistic cart state upstream before a
// cart-based order consumes the server-side cart. Satisfied by the cart
// service.
type cartFlusher interface {
	Flush(ctx context.Context, userID, token string) (*cart.View, error)
}

// PlaceOrderInput carries the buyer's choices collected on the checkout page.
type PlaceOrderInput struct {
	AddressID     string
	PaymentMethod string
	Note          string
}

// Service decides, once per checkout session, which order-creation contract
// to invoke and issues exactly one order call.
type Service interface {
	PlaceOrder(ctx context.Context, userID, token string, intent Intent, input PlaceOrderInput) (*shopapi.Order, error)
}

type service struct {
	api     orderAPI
	cart    cartFlusher
	logg    *logger.Logger
	metrics *metrics.CartSyncMetrics
}

// ServiceParams wires the checkout dispatcher.
type ServiceParams struct {
	API     orderAPI
	Cart    cartFlusher
	Logger  *logger.Logger
	Metrics *metrics.CartSyncMetrics
}

// NewService validates the wiring and returns the dispatcher.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("commerce api client required")
	}
	return &service{
		api:     params.API,
		cart:    params.Cart,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// PlaceOrder validates the input, then follows exactly one of the two
// mutually exclusive order paths. Validation failures never reach the
// upstream.
func (s *service) PlaceOrder(ctx context.Context, userID, token string, intent Intent, input PlaceOrderInput) (*shopapi.Order, error) {
	if strings.TrimSpace(input.AddressID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please select a delivery address")
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please select a payment method")
	}
	if intent.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive number")
	}

	if intent.Direct {
		return s.placeDirect(ctx, token, intent, input)
	}
	return s.placeFromCart(ctx, userID, token, input)
}

func (s *service) placeDirect(ctx context.Context, token string, intent Intent, input PlaceOrderInput) (*shopapi.Order, error) {
	variant, err := s.api.ResolveVariant(ctx, token, intent.VariantRef)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			s.metrics.IncOrderPlacement("direct", "not_found")
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "that item no longer exists, please choose a different one")
		}
		s.metrics.IncOrderPlacement("direct", "error")
		return nil, err
	}
	if !variant.Purchasable {
		s.metrics.IncOrderPlacement("direct", "unavailable")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "this item is currently unavailable, please choose a different one")
	}
	if variant.Stock != nil && intent.Quantity > *variant.Stock {
		s.metrics.IncOrderPlacement("direct", "insufficient_stock")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("only %d left in stock", *variant.Stock))
	}

	order, err := s.api.CreateDirectOrder(ctx, token, shopapi.DirectOrderRequest{
		VariantID:     variant.ID,
		Qty:           intent.Quantity,
		AddressID:     input.AddressID,
		PaymentMethod: input.PaymentMethod,
		Note:          input.Note,
	})
	if err != nil {
		s.metrics.IncOrderPlacement("direct", "error")
		if s.logg != nil {
			s.logg.Error(ctx, "checkout.direct_order.failed", err)
		}
		return nil, err
	}

	s.metrics.IncOrderPlacement("direct", "ok")
	if s.logg != nil {
		lctx := s.logg.WithField(ctx, "order_id", order.ID)
		s.logg.Info(lctx, "checkout.direct_order.placed")
	}
	return order, nil
}

func (s *service) placeFromCart(ctx context.Context, userID, token string, input PlaceOrderInput) (*shopapi.Order, error) {
	// The server consumes its own cart; make sure any optimistic edits
	// reached it first.
	if s.cart != nil {
		if _, err := s.cart.Flush(ctx, userID, token); err != nil && s.logg != nil {
			s.logg.Error(ctx, "checkout.cart_flush.failed", err)
		}
	}

	order, err := s.api.CreateCartOrder(ctx, token, shopapi.CartOrderRequest{
		AddressID:     input.AddressID,
		PaymentMethod: input.PaymentMethod,
		Note:          input.Note,
	})
	if err != nil {
		s.metrics.IncOrderPlacement("cart", "error")
		if s.logg != nil {
			s.logg.Error(ctx, "checkout.cart_order.failed", err)
		}
		return nil, err
	}

	s.metrics.IncOrderPlacement("cart", "ok")
	if s.logg != nil {
		lctx := s.logg.WithField(ctx, "order_id", order.ID)
		s.logg.Info(lctx, "checkout.cart_order.placed")
	}
	return order, nil
}
