package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/anonboard/internal/config"
	"github.com/hongminglow/anonboard/internal/http/handlers"
	"github.com/hongminglow/anonboard/internal/models"
	"github.com/hongminglow/anonboard/internal/server"
	"github.com/hongminglow/anonboard/internal/storage/memory"
)

func main() {
	loadLocalEnv()

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	accounts := memory.NewAccountStore()
	if cfg.AdminEmail != "" {
		admin, err := handlers.SeedAccount(ctx, accounts, handlers.SeedInput{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Role:     models.RoleAdmin,
		})
		if err != nil {
			log.Fatalf("seed admin: %v", err)
		}
		logger.Info("devserver.admin.seeded", "user_id", admin.ID, "email", admin.Email)
	}

	srv := server.New(cfg, accounts, logger)

	go func() {
		log.Printf("AnonBoard dev server listening on %s", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
