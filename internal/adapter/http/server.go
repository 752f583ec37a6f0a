package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/internal/usecase"
	"github.com/benefitnav/benefitnav/pkg/apperror"
	"github.com/benefitnav/benefitnav/pkg/response"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	server *http.Server
	logger logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// NewServer creates a new HTTP server
func NewServer(
	config ServerConfig,
	draftUseCase *usecase.DraftUseCase,
	submitUseCase *usecase.SubmitUseCase,
	auth *AuthMiddleware,
	log logger.Logger,
) *Server {
	draftHandler := NewDraftHandler(draftUseCase, log)
	applicationHandler := NewApplicationHandler(submitUseCase)

	router := mux.NewRouter()

	draftHandler.RegisterRoutes(router, auth)
	applicationHandler.RegisterRoutes(router, auth)

	router.Use(newLoggingMiddleware(log))
	router.Use(newCORSMiddleware(config.CORSOrigins))
	router.Use(newRecoveryMiddleware(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return &Server{
		addr:   ":" + config.Port,
		logger: log,
		server: &http.Server{
			Addr:         ":" + config.Port,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// writeError maps a use case error onto the response envelope.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.Map(err)
	response.Error(w, appErr.Status, appErr.Message)
}

// Middleware

func newLoggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info(r.Context(), "request completed", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

func newCORSMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := "*"
	if len(origins) > 0 {
		allowed = origins[0]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func newRecoveryMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(r.Context(), "panic recovered", nil, map[string]interface{}{
						"panic":  rec,
						"method": r.Method,
						"path":   r.URL.Path,
					})
					response.InternalServerError(w, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
