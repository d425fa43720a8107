package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/config"
	"github.com/diewo77/go-church/internal/db"
	"github.com/diewo77/go-church/internal/policy"
	"github.com/diewo77/go-church/internal/store"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid configuration", err)
	}

	dbConn, err := db.Connect(cfg.Database, logger)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn); err != nil {
			fatal(logger, "migration failed", err)
		}
		logger.Info("migrations completed")
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			fatal(logger, "seeding failed", err)
		}
		logger.Info("seeding completed")
		return
	}

	if cfg.App.Migrations {
		if err := db.Migrate(dbConn); err != nil {
			fatal(logger, "migration failed", err)
		}
		logger.Info("migrations completed")
	}

	// Seed permissions and the built-in roles
	if err := db.Seed(dbConn); err != nil {
		fatal(logger, "seeding failed", err)
	}

	ctx := context.Background()
	docs, closeDocs, err := openStore(ctx, cfg.Store, dbConn)
	if err != nil {
		fatal(logger, "failed to open document store", err)
	}
	defer closeDocs()

	routerCfg := policy.NewRouterConfig(dbConn, docs, cfg, logger)

	// Warm the role cache. A failure keeps built-in roles only.
	if err := routerCfg.Resolver.Refresh(ctx); err != nil {
		logger.Warn("role cache warmup failed", "error", err)
	}
	settings := routerCfg.Settings.Init(ctx)
	logger.Info("settings loaded", "church", settings.ChurchName)
	defer routerCfg.Settings.Dispose()

	routerCfg.Inboxes.Start()

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	// Role and status come from the users table, not from the token.
	verifier.SetIdentityResolver(routerCfg.Users.Identity)
	appHandler := NewApp(dbConn, verifier, routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(logger, appHandler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	routerCfg.Inboxes.Stop(shutdownCtx)
	logger.Info("server stopped gracefully")
}

// openStore selects the document store for settings and preferences.
func openStore(ctx context.Context, cfg config.StoreConfig, dbConn *gorm.DB) (store.Store, func(), error) {
	switch cfg.Backend {
	case "firestore":
		fs, err := store.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.FirestoreDatabase)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { _ = fs.Close() }, nil
	default:
		return store.NewGormStore(dbConn), func() {}, nil
	}
}

// withLogging adds request logging middleware.
func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
