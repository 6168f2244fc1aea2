package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/order-engine/internal/config"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"github.com/kiwari-pos/order-engine/internal/events"
	"github.com/kiwari-pos/order-engine/internal/handler"
	mw "github.com/kiwari-pos/order-engine/internal/middleware"
	"github.com/kiwari-pos/order-engine/internal/service"
	"github.com/kiwari-pos/order-engine/internal/ws"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
// Committed changes go to publisher; hub serves the live feed and is
// normally one of publisher's targets.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub, publisher events.Publisher, log *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/stores/{sid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, publisher, log.Named("orders"))
	orderHandler := handler.NewOrderHandler(orderService, log.Named("http"))
	tableHandler := handler.NewTableHandler(orderService, log.Named("http"))

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/stores/{sid}", func(r chi.Router) {
			// Staff routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(mw.StaffRoles...))
				r.Use(mw.RequireStore)

				orderHandler.RegisterRoutes(r)
				r.Route("/tables", tableHandler.RegisterRoutes)
			})

			// Customer routes, scoped by order ownership
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCustomer))
				r.Route("/customer", orderHandler.RegisterCustomerRoutes)
			})
		})
	})

	log.Info("router initialized")
	return r
}
