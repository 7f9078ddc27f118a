package router

import (
	"log"
	"net/http"

	"github.com/andina-pos/api/internal/config"
	"github.com/andina-pos/api/internal/database"
	"github.com/andina-pos/api/internal/enum"
	"github.com/andina-pos/api/internal/handler"
	mw "github.com/andina-pos/api/internal/middleware"
	"github.com/andina-pos/api/internal/service"
	"github.com/andina-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // cashier frontend dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Shared services
	ledger := service.NewSalesLedger(queries, cfg.Location)
	creditService := service.NewCreditService(
		queries,
		pool,
		func(db database.DBTX) service.CreditStore {
			return database.New(db)
		},
		cfg.Location,
	)
	closingService := service.NewClosingService(ledger, queries, cfg.ClosingTolerancePct, cfg.Location)
	saleService := service.NewSaleService(
		pool,
		func(db database.DBTX) service.SaleStore {
			return database.New(db)
		},
		cfg.Location,
	)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			categoryHandler := handler.NewCategoryHandler(queries)
			r.Route("/categories", categoryHandler.RegisterRoutes)

			productHandler := handler.NewProductHandler(queries)
			r.Route("/products", productHandler.RegisterRoutes)
		})

		// Sales
		saleHandler := handler.NewSaleHandler(saleService, queries, hub)
		r.Route("/sales", saleHandler.RegisterRoutes)

		// Credit accounts
		creditHandler := handler.NewCreditHandler(creditService, hub)
		r.Route("/credits", creditHandler.RegisterRoutes)

		// Cash closings
		closingHandler := handler.NewClosingHandler(closingService, hub)
		r.Route("/closings", closingHandler.RegisterRoutes)

		// Reports
		reportHandler := handler.NewReportHandler(ledger, creditService)
		r.Route("/reports", reportHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
