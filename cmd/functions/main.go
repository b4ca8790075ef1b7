// cmd/functions/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/notification"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/callable"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/middleware"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/auth"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/email"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/sms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadFunctions()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logging())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	mailer := email.NewService(cfg.Email(), appLogger)
	texter := sms.NewService(cfg.SMS(), appLogger)
	dispatcher := notification.NewDispatcher(mailer, texter, nil, cfg.FromName, 0, appLogger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLogger))
	router.Use(middleware.CORS(config.SecurityConfig{
		CORSAllowedOrigins: cfg.AllowedOrigins,
		CORSAllowedMethods: []string{http.MethodPost, http.MethodOptions},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	tokens := auth.NewJWTManager(cfg.JWT(), cfg.FromName)
	callable.New(mailer, texter, dispatcher, appLogger).Register(router, tokens)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logrus.Fields{
			"port":           cfg.Port,
			"email_provider": mailer.Provider(),
			"sms_provider":   cfg.SMSProvider,
		}).Info("Functions server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Functions server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Failed to shutdown functions server gracefully")
	}
	appLogger.Info("Functions server stopped")
}
