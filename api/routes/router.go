package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopin/storefront-bff/api/controllers"
	cartctl "github.com/shopin/storefront-bff/api/controllers/cart"
	checkoutctl "github.com/shopin/storefront-bff/api/controllers/checkout"
	"github.com/shopin/storefront-bff/api/middleware"
	cartsvc "github.com/shopin/storefront-bff/internal/cart"
	checkoutsvc "github.com/shopin/storefront-bff/internal/checkout"
	"github.com/shopin/storefront-bff/pkg/config"
	"github.com/shopin/storefront-bff/pkg/logger"
	"github.com/shopin/storefront-bff/pkg/redis"
)

// Deps is everything the router needs to build the full HTTP surface.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Registry *prometheus.Registry
}

// New assembles the router: operational endpoints on the outside, the
// storefront API behind authentication.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	var pinger redis.Pinger
	if deps.Redis != nil {
		pinger = deps.Redis
	}
	r.Get("/health/live", controllers.HealthLive(deps.Config))
	r.Get("/health/ready", controllers.HealthReady(deps.Config, deps.Logger, pinger))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, deps.Logger))

			r.Get("/ping/private", controllers.PrivatePing())

			cartDeps := cartctl.Deps{Service: deps.Cart, Logger: deps.Logger}
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartctl.Fetch(cartDeps))
				r.Post("/flush", cartctl.Flush(cartDeps))
				r.Route("/items/{lineID}", func(r chi.Router) {
					r.Post("/", cartctl.SetQuantity(cartDeps))
					r.Post("/increase", cartctl.Increase(cartDeps))
					r.Post("/decrease", cartctl.Decrease(cartDeps))
					r.Delete("/", cartctl.Remove(cartDeps))
				})
			})

			checkoutDeps := checkoutctl.Deps{Service: deps.Checkout, Logger: deps.Logger}
			r.Post("/checkout/orders", checkoutctl.PlaceOrder(checkoutDeps))
		})
	})

	return r
}
