package router

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/factura-admin/api/internal/config"
	"github.com/factura-admin/api/internal/handler"
	mw "github.com/factura-admin/api/internal/middleware"
	"github.com/factura-admin/api/internal/service"
	"github.com/factura-admin/api/internal/store"
	"github.com/factura-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, st store.Store, node *snowflake.Node, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // Next.js dev server
			"http://localhost:5173",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(st, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		clientHandler := handler.NewClientHandler(st, hub)
		r.Route("/clients", clientHandler.RegisterRoutes)

		invoiceService := service.NewInvoiceService(st, nil, nil, nil)
		orderHandler := handler.NewOrderHandler(st, invoiceService, node, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		invoiceHandler := handler.NewInvoiceHandler(st, nil, hub)
		r.Route("/invoices", invoiceHandler.RegisterRoutes)
	})

	return r
}
