package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"billing-system/config"
	"billing-system/internal/auth"
	"billing-system/internal/database"
	"billing-system/internal/handlers"
	"billing-system/internal/middleware"
)

func main() {
	cfg := config.LoadConfig()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)

	signer := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	ledger := auth.NewLedger(db, rdb, signer)

	r := gin.Default()
	r.Use(middleware.CORS(cfg.HTTP.AllowOrigins))
	r.Use(middleware.RateLimit(cfg.HTTP.RateLimit))

	handlers.RegisterRoutes(r, handlers.RouterDeps{
		DB:         db,
		Redis:      rdb,
		Signer:     signer,
		Ledger:     ledger,
		TOTPIssuer: cfg.Auth.TOTPIssuer,
	})

	addr := ":" + cfg.HTTP.Port
	log.Printf("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
