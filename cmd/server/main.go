package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"athletix/tracker/internal/api"
	"athletix/tracker/internal/config"
	"athletix/tracker/internal/logging"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository/mongo"
	"athletix/tracker/internal/service"
	"athletix/tracker/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// @title Athletix Tracker API
// @version 1.0
// @description API for athletes, coaches and trainers tracking injuries, training load and recovery.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment and config file only")
	}

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.ToStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
	})
	log.Info("starting tracker server")

	// --- Metrics ---
	registry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, registry)

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("could not connect to MongoDB: %s", err)
	}
	defer func() {
		log.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Errorf("failed to disconnect MongoDB: %s", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB)
	}()

	gateway := mongo.NewGateway(appDB)

	// --- Storage ---
	// Avatar uploads are optional; everything else works without a bucket.
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		fileStorage, err = storage.NewS3Storage(initCtx, cfg.S3)
		cancel()
		if err != nil {
			log.Warnf("file storage disabled: %s", err)
			fileStorage = nil
		}
	}

	// --- Services ---
	authService := service.NewAuthService(gateway, cfg.JWT.Secret, cfg.JWT.Expiration)
	teamService := service.NewTeamService(gateway)
	profileService := service.NewProfileService(gateway, fileStorage)
	sessions := service.NewSessionManager(gateway, metricsManager, cfg.Session)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sessions.Run(ctx)

	// --- Router ---
	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Dependencies{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Realtime:       cfg.Realtime,
		AuthService:    authService,
		TeamService:    teamService,
		ProfileService: profileService,
		Sessions:       sessions,
		Metrics:        metricsManager,
		Registry:       registry,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      c.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("listen: %s", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server forced to shutdown: %s", err)
	}
	sessions.CloseAll()
	log.Info("server exited")
}
