package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bridgeguard/internal/app"
	"bridgeguard/internal/config"
	"bridgeguard/internal/db"
	"bridgeguard/internal/handlers"
	"bridgeguard/internal/router"
)

func main() {
	log.Println("🚀 Starting bridgeguard backend...")

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database and schema
	db.InitDB()
	db.StartHealthCheck(30 * time.Second)

	// Wire repositories, clients, and services
	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("Failed to initialize service container: %v", err)
	}
	defer container.Cleanup()

	// Handlers
	accountHandler := handlers.NewAccountHandler(container.AccountService)
	recoveryHandler := handlers.NewRecoveryHandler(container.AccountService)
	routeHandler := handlers.NewRouteHandler(
		container.RouteAggregator,
		container.SecurityScorer,
		container.StrategySynthesizer,
		container.ExecutionService,
		container.AccountService,
		container.ExecutionRepo,
	)
	wsHandler := handlers.NewWebSocketHandler(container.PushService)

	r := router.SetupRouter(accountHandler, recoveryHandler, routeHandler, wsHandler)

	host := config.AppConfig.Server.Host
	port := config.AppConfig.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("✅ HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited")
}
