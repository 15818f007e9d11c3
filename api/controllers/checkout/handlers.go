package checkout

import (
	"fmt"
	"net/http"

	"github.com/shopin/storefront-bff/api/middleware"
	"github.com/shopin/storefront-bff/api/responses"
	"github.com/shopin/storefront-bff/api/validators"
	checkoutsvc "github.com/shopin/storefront-bff/internal/checkout"
	"github.com/shopin/storefront-bff/internal/shopapi"
	"github.com/shopin/storefront-bff/pkg/logger"
)

// Deps carries the collaborators the checkout handler needs.
type Deps struct {
	Service checkoutsvc.Service
	Logger  *logger.Logger
}

// PlaceOrderRequest is the body of an order placement.
type PlaceOrderRequest struct {
	AddressID     string `json:"address_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	Note          string `json:"note"`
}

// PlaceOrderResponse pairs the created order with the confirmation page
// the storefront should navigate to.
type PlaceOrderResponse struct {
	Order    *shopapi.Order `json:"order"`
	Redirect string         `json:"redirect"`
}

// PlaceOrder reads the checkout intent from the navigation query
// parameters, the buyer's choices from the body, and dispatches exactly
// one order-creation call.
func PlaceOrder(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req PlaceOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		intent := checkoutsvc.ParseIntent(r.URL.Query())
		order, err := deps.Service.PlaceOrder(ctx,
			middleware.UserIDFromContext(ctx),
			middleware.TokenFromContext(ctx),
			intent,
			checkoutsvc.PlaceOrderInput{
				AddressID:     req.AddressID,
				PaymentMethod: req.PaymentMethod,
				Note:          req.Note,
			})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, PlaceOrderResponse{
			Order:    order,
			Redirect: fmt.Sprintf("/orders/%s/confirmation", order.ID),
		})
	}
}
