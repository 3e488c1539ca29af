package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Users      UserAPI
	Catalog    CatalogAPI
	Stock      StockAPI
	Carts      CartAPI
	Deliveries DeliveryLister
	// Feed serves the staff websocket; nil leaves the route unmounted.
	Feed           http.Handler
	Tokens         TokenParser
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	accountHandler := NewAccountHandler(cfg.Users, cfg.Carts, cfg.RequestTimeout)
	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.Stock, cfg.RequestTimeout)
	cartHandler := NewCartHandler(cfg.Carts, cfg.RequestTimeout)
	userHandler := NewUserHandler(cfg.Users, cfg.Deliveries, cfg.RequestTimeout)
	authenticate := AuthMiddleware(cfg.Tokens, cfg.Users)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// the websocket outlives any request timeout and cannot be compressed
		if cfg.Feed != nil {
			r.With(authenticate, RequireStaff).Get("/admin/orders/feed", cfg.Feed.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Post("/auth/signup", accountHandler.Signup)
			r.Post("/auth/login", accountHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)

				r.Route("/account", func(r chi.Router) {
					r.Get("/", accountHandler.GetAccount)
					r.Put("/", accountHandler.UpdateAccount)
					r.Get("/orders", accountHandler.ListOrders)
				})

				r.Route("/tires", func(r chi.Router) {
					r.Get("/", catalogHandler.SearchTires)
					r.Get("/{id}", catalogHandler.GetTire)
				})

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartHandler.GetCart)
					r.Post("/items", cartHandler.AddItem)
					r.Put("/items/{line_id}", cartHandler.UpdateQuantity)
					r.Delete("/items/{line_id}", cartHandler.RemoveItem)
					r.Post("/{cart_id}/order", cartHandler.PlaceOrder)
				})

				r.Route("/orders/{cart_id}", func(r chi.Router) {
					r.Get("/", cartHandler.GetOrder)
					r.Post("/cancel", cartHandler.CancelOrder)
				})

				r.Route("/admin", func(r chi.Router) {
					r.Use(RequireStaff)

					r.Route("/products", func(r chi.Router) {
						r.Get("/", catalogHandler.ListProducts)
						r.Post("/", catalogHandler.CreateProduct)
						r.Delete("/images/{image_id}", catalogHandler.RemoveImage)
						r.Route("/{id}", func(r chi.Router) {
							r.Get("/revisions", catalogHandler.ListRevisions)
							r.Post("/revisions", catalogHandler.ReviseProduct)
							r.Post("/images", catalogHandler.AddImage)
							r.Get("/stock", catalogHandler.StockHistory)
							r.Post("/stock/received", catalogHandler.ReceiveStock)
							r.Post("/stock/shrink", catalogHandler.ShrinkStock)
						})
					})

					r.Get("/treads", catalogHandler.ListTreads)
					r.Post("/treads", catalogHandler.CreateTread)
					r.Get("/inventory.xlsx", catalogHandler.ExportInventory)

					r.Route("/carts", func(r chi.Router) {
						r.Get("/", cartHandler.ListCarts)
						r.Route("/{cart_id}", func(r chi.Router) {
							r.Get("/", cartHandler.GetCartAsStaff)
							r.Post("/fulfill", cartHandler.FulfillOrder)
							r.Post("/cancel", cartHandler.CancelOrderAsStaff)
							r.Put("/ratios", cartHandler.SetRatios)
						})
					})

					r.Route("/users", func(r chi.Router) {
						r.Get("/", userHandler.ListUsers)
						r.Put("/{id}/active", userHandler.SetActive)
						r.Put("/{id}/pricing", userHandler.SetPricing)
						r.Get("/{id}/deliveries", userHandler.ListDeliveries)
					})
				})
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
