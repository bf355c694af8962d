package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"founderframe/internal/config"
	"founderframe/internal/export"
	"founderframe/internal/fanout"
	"founderframe/internal/genai"
	"founderframe/internal/handler"
	"founderframe/internal/metrics"
	"founderframe/internal/middleware"
	"founderframe/internal/picker"
	"founderframe/internal/progress"
	"founderframe/internal/session"
	"founderframe/internal/storage"
	"founderframe/internal/wizard"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	collector := metrics.NewCollector()

	genClient := genai.NewClient(genai.Config{
		BaseURL:     cfg.GeminiBaseURL,
		APIKey:      cfg.GeminiAPIKey,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		MaxAttempts: cfg.RetryAttempts,
	}, collector)

	runner := fanout.NewRunner(genClient, cfg.ImageBatchSize, cfg.ImageBatchDelay)
	tracker := progress.NewTracker()

	var credentialPicker wizard.CredentialPicker
	if p := picker.New(cfg.KeyPickerURL); p != nil {
		credentialPicker = p
	}

	machineCfg := wizard.Config{
		RequireAuth:   cfg.RequireAuth,
		HasCredential: cfg.GeminiAPIKey != "",
	}
	store := wizard.NewStore(func(id string) *wizard.Machine {
		return wizard.NewMachine(id, genClient, runner, credentialPicker, tracker, collector, machineCfg)
	}, tracker.CloseChannel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	store.StartJanitor(ctx, 10*time.Minute, cfg.SessionTTL)

	var artifactStore export.ArtifactStore
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		sb, err := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		artifactStore = sb
	} else {
		logrus.Info("No artifact store configured, exports stay local to the session")
	}
	exporter := export.NewService(artifactStore)

	source := session.NewSource(cfg.JWTSecret)
	wizardHandler := handler.NewWizardHandler(store, tracker, exporter)

	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	api := r.Group("/api")
	api.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))
	api.Use(middleware.Identify(source))
	wizardHandler.Register(api)

	r.GET("/metrics", gin.WrapH(collector.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logrus.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}
