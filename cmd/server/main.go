package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/bsrmarket/marketplace/internal/api"
	"github.com/bsrmarket/marketplace/internal/audit"
	"github.com/bsrmarket/marketplace/internal/config"
	"github.com/bsrmarket/marketplace/internal/notify"
	"github.com/bsrmarket/marketplace/internal/storage"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatal("Invalid configuration")
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("Failed to open database")
	}
	defer db.Close()

	notifier := notify.New(cfg.NotifyWebhookURL)
	auditLog := audit.New(db)
	handler := api.NewHandler(cfg, db, notifier, auditLog)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.WithFields(log.Fields{
			"addr": cfg.ListenAddr,
			"env":  cfg.Env,
		}).Info("Marketplace server starting")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("error", err.Error()).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithField("error", err.Error()).Error("Forced shutdown")
	}
	log.Info("Server stopped")
}
