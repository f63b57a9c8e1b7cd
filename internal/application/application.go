package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/auth"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/config"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/database"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/handler"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/router"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/service"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API is the HTTP + WebSocket API application.
type API struct {
	cfg *config.Config
	srv *http.Server
	db  *gorm.DB
	hub *service.JamHub
}

// NewAPI creates the API application: validates config, runs migrations, opens DB, builds router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	verifier := auth.NewTokenVerifier(cfg.JWTSecret)
	membership := store.NewGormStore(db)
	registry := service.NewSessionRegistry()
	hub := service.NewJamHub(cfg.WSReadBufferSize, cfg.WSWriteBufferSize, cfg.WSMaxMessageSize, logger)

	roomSvc := service.NewRoomService(membership, registry, hub, logger)
	coordinator := service.NewRoomCoordinator(membership, registry, hub, logger)

	roomHandler := handler.NewRoomHandler(roomSvc)
	jamWS := handler.NewJamWSHandler(hub, coordinator, membership, verifier, logger)
	health := handler.NewHealthHandler()

	r := router.New(roomHandler, jamWS, health, verifier)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No Read/WriteTimeout: jam WebSocket connections are long-lived.
	}

	return &API{cfg: cfg, srv: srv, db: db, hub: hub}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	addr := a.srv.Addr
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  Rooms:         %s/rooms", base)
	log.Printf("  WebSocket:     ws://%s:%s/ws/jam/:room_id/:user_id", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
