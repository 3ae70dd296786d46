package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/api"
	"flavoriz-backend-go/internal/catalog"
	"flavoriz-backend-go/internal/config"
	"flavoriz-backend-go/internal/core"
	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/identity"
	"flavoriz-backend-go/internal/middleware"
	"flavoriz-backend-go/pkg/cache"
	"flavoriz-backend-go/pkg/mailer"
	"flavoriz-backend-go/pkg/messagequeue"
)

func main() {
	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	var zapLogger *zap.Logger
	if appConfig.IsRelease() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded successfully.", zap.String("ginMode", appConfig.GinMode))

	// --- 3. Initialize the document store ---
	// Firestore when a Firebase project is configured and reachable, otherwise the local Badger store.
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()

	var store db.DocumentStore
	if appConfig.RemoteStoreConfigured() {
		if err := db.InitFirestore(initCtx, appConfig, zapLogger); err != nil {
			zapLogger.Error("Failed to initialize Firestore, falling back to the local store", zap.Error(err))
		} else {
			store = db.NewFirestoreDocumentStore(db.GetFirestoreClient(), zapLogger)
		}
	}
	if store == nil {
		local, err := db.OpenLocalStore(db.LocalStoreConfig{
			Path:       appConfig.LocalStorePath,
			InMemory:   appConfig.LocalStoreInMemory,
			SyncWrites: appConfig.IsRelease(),
			GCInterval: 10 * time.Minute,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to open the local store", zap.Error(err))
		}
		migrated, err := local.MigrateLegacyMealPlans(initCtx)
		if err != nil {
			zapLogger.Error("Legacy meal plan migration failed", zap.Error(err))
		} else if migrated > 0 {
			zapLogger.Info("Migrated legacy meal plans", zap.Int("count", migrated))
		}
		store = local
	}
	defer store.Close()
	zapLogger.Info("Document store ready", zap.String("backend", store.Name()))

	// --- 4. Initialize the identity provider ---
	var provider identity.Provider
	switch {
	case db.GetFirebaseAuthClient() != nil:
		provider = identity.NewFirebaseProvider(db.GetFirebaseAuthClient(), identity.NewPasswordSignIn("", appConfig.FirebaseWebAPIKey))
		zapLogger.Info("Using Firebase Authentication")
	case appConfig.DevAuthEnabled:
		provider = identity.NewDevProvider()
		zapLogger.Warn("Using the development identity provider: any 'dev:<uid>' token is accepted")
	default:
		zapLogger.Fatal("CRITICAL_ERROR: No identity provider available. Configure Firebase or set DEV_AUTH_ENABLED outside release mode.")
	}

	// --- 5. Initialize cache, message queue and mailer ---
	var profileCache cache.Cache = cache.NewMemoryCache()
	if appConfig.RedisAddress != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable, using in-process profile cache", zap.Error(err))
		} else {
			profileCache = redisCache
		}
	}
	defer profileCache.Close()

	var queue messagequeue.MessageQueue = messagequeue.NewMemoryQueue()
	if appConfig.RabbitMQURL != "" {
		rabbit, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.RabbitMQURL}, zapLogger)
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable, using in-process event queue", zap.Error(err))
		} else {
			queue = rabbit
		}
	}
	defer queue.Close()

	var mail mailer.Mailer = mailer.NewLogMailer(zapLogger)
	if appConfig.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			User:     appConfig.SMTPUser,
			Password: appConfig.SMTPPass,
			Sender:   appConfig.MailSender,
		})
	} else {
		zapLogger.Warn("SMTP_HOST is not configured, e-mails will only be logged")
	}

	// --- 6. Initialize Repositories and Services ---
	planRepo := db.NewMealPlanRepository(store, zapLogger)
	userRepo := db.NewUserRepository(store, zapLogger)
	savedRepo := db.NewSavedMealRepository(store, zapLogger)

	catalogClient := catalog.NewClient(catalog.Options{
		BaseURL: appConfig.CatalogBaseURL,
		Timeout: appConfig.CatalogTimeout,
	}, zapLogger)

	eventService := core.NewEventService(queue, appConfig.RabbitMQQueue, zapLogger)
	services := api.Services{
		Identity: core.NewIdentityService(core.IdentityServiceConfig{
			Provider:   provider,
			Users:      userRepo,
			Cache:      profileCache,
			ProfileTTL: appConfig.ProfileCacheTTL,
			Mailer:     mail,
			Logger:     zapLogger,
		}),
		Plans:     core.NewMealPlanService(planRepo, userRepo, catalogClient, eventService, zapLogger),
		Saved:     core.NewSavedMealService(savedRepo, eventService, zapLogger),
		Directory: core.NewDirectoryService(userRepo),
		Catalog:   catalogClient,
	}
	zapLogger.Info("Core services initialized successfully.")

	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	notifierDone := make(chan struct{})
	notifier := core.NewNotifier(queue, appConfig.RabbitMQQueue, mail, appConfig.ClientURL, zapLogger)
	go func() {
		defer close(notifierDone)
		if err := notifier.Run(notifierCtx); err != nil {
			zapLogger.Error("Notifier stopped", zap.Error(err))
		}
	}()

	// --- 7. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// --- 8. Apply Global Middleware (Order is important) ---
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.Metrics())

	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	// --- 9. Setup API Routes ---
	api.SetupRoutes(router, services, zapLogger)
	if appConfig.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// --- 10. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 11. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	stopNotifier()
	select {
	case <-notifierDone:
	case <-shutdownCtx.Done():
		zapLogger.Warn("Notifier did not stop before the shutdown deadline")
	}

	zapLogger.Info("Server exiting gracefully.")
}
