package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	httpadapter "github.com/benefitnav/benefitnav/internal/adapter/http"
	"github.com/benefitnav/benefitnav/internal/adapter/persistence"
	"github.com/benefitnav/benefitnav/internal/config"
	"github.com/benefitnav/benefitnav/internal/service/audit"
	"github.com/benefitnav/benefitnav/internal/service/crypto"
	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/internal/service/session"
	"github.com/benefitnav/benefitnav/internal/service/token"
	"github.com/benefitnav/benefitnav/internal/usecase"
)

func main() {
	ctx := context.Background()

	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	structuredLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "benefitnav",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", map[string]interface{}{
		"host": cfg.Database.Host,
		"name": cfg.Database.DBName,
	})

	// Initialize services
	cipher, err := crypto.NewAESGCMCipher(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize payload cipher: %v", err)
	}

	tokenService, err := token.NewJWTService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}

	// Session inactivity tracking is advisory; the service still runs when
	// Redis is unreachable.
	var sessionStore *session.ActivityStore
	if store, err := session.NewActivityStore(session.Config{
		RedisURL: cfg.GetRedisURL(),
		Timeout:  cfg.Security.SessionTimeout,
	}); err != nil {
		structuredLogger.Warn(ctx, "Session activity store unavailable, inactivity timeout disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		sessionStore = store
		defer sessionStore.Close()
		structuredLogger.Info(ctx, "Session activity store initialized", map[string]interface{}{
			"timeout": cfg.Security.SessionTimeout.String(),
		})
	}

	// Initialize repositories
	draftRepo := persistence.NewPostgresDraftRepository(db)
	submissionRepo := persistence.NewPostgresSubmissionRepository(db)
	auditSink := persistence.NewPostgresAuditRepository(db)

	auditEmitter := audit.NewEmitter(auditSink, structuredLogger)

	// Initialize use cases
	draftUseCase := usecase.NewDraftUseCase(draftRepo, cipher, auditEmitter, structuredLogger)
	submitUseCase := usecase.NewSubmitUseCase(submissionRepo, draftRepo, cipher, auditEmitter, structuredLogger)

	authMiddleware := httpadapter.NewAuthMiddleware(tokenService, sessionStore, structuredLogger)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Security.CORSOrigins,
	}, draftUseCase, submitUseCase, authMiddleware, structuredLogger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			structuredLogger.Error(ctx, "Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
