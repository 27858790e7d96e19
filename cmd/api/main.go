package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/brandforge/contentpilot/internal/handlers"
	"github.com/brandforge/contentpilot/internal/mailer"
	"github.com/brandforge/contentpilot/internal/repository"
	"github.com/brandforge/contentpilot/internal/service"
	"github.com/brandforge/contentpilot/internal/session"
	"github.com/brandforge/contentpilot/internal/store"
	"github.com/brandforge/contentpilot/pkg/config"
	"github.com/brandforge/contentpilot/pkg/events"
	"github.com/brandforge/contentpilot/pkg/logger"
	mw "github.com/brandforge/contentpilot/pkg/middleware"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher
	if cfg.NATS.URL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		publisher = natsPub
	} else {
		publisher = events.NewNoopPublisher()
	}
	defer publisher.Close()

	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	// Repositories over the key/value store
	userRepo := repository.NewUserRepository(kv)
	verifyRepo := repository.NewVerifyRepository(kv)
	businessRepo := repository.NewBusinessRepository(kv)

	// Session state restored from the store
	sess := session.NewManager(ctx, kv)
	logger.Info("Session restored", "state", sess.State().String())

	// Services
	authService := service.NewAuthService(userRepo, verifyRepo, sess, mail, publisher, cfg)
	businessService := service.NewBusinessService(businessRepo, sess, publisher)

	// Handlers
	h := handlers.New(authService, businessService, cfg)

	// Router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API", "port", cfg.Server.Port, "store", cfg.Store.Driver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "file":
		return store.NewFile(cfg.Store.FilePath)
	case "redis":
		return store.NewRedis(cfg.Store.RedisURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.PostgresURL)
	default:
		return store.NewMemory(), nil
	}
}
