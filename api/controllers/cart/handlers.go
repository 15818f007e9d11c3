package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopin/storefront-bff/api/middleware"
	"github.com/shopin/storefront-bff/api/responses"
	"github.com/shopin/storefront-bff/api/validators"
	cartsvc "github.com/shopin/storefront-bff/internal/cart"
	"github.com/shopin/storefront-bff/pkg/logger"
)

// Deps carries the collaborators every cart handler needs.
type Deps struct {
	Service cartsvc.Service
	Logger  *logger.Logger
}

// Fetch returns the session's optimistic cart view, hydrating the session
// on first contact.
func Fetch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := deps.Service.View(ctx, middleware.UserIDFromContext(ctx), middleware.TokenFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// SetQuantity replaces the quantity of one cart line. Zero removes the
// line; values above the stock ceiling are clamped with a notice.
func SetQuantity(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		lineID := chi.URLParam(r, "lineID")

		var req SetQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		view, err := deps.Service.SetQuantity(ctx, middleware.UserIDFromContext(ctx), middleware.TokenFromContext(ctx), lineID, *req.Quantity)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Increase bumps one cart line by a single unit, respecting the stock
// ceiling.
func Increase(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := deps.Service.Increase(ctx, middleware.UserIDFromContext(ctx), middleware.TokenFromContext(ctx), chi.URLParam(r, "lineID"))
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Decrease lowers one cart line by a single unit, never below one.
func Decrease(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := deps.Service.Decrease(ctx, middleware.UserIDFromContext(ctx), middleware.TokenFromContext(ctx), chi.URLParam(r, "lineID"))
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Remove deletes one cart line. Removing an already-gone line succeeds.
func Remove(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := deps.Service.Remove(ctx, middleware.UserIDFromContext(ctx), middleware.TokenFromContext(ctx), chi.URLParam(r, "lineID"))
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Flush pushes any unsynced edits upstream immediately. The storefront
// calls this when the user navigates away from the cart.
func Flush(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := deps.Service.Flush(ctx, middleware.UserIDFromContext(ctx), middleware.TokenFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
