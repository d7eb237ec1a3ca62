package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/auth"
	"github.com/ridopark/jonbu-patterns/internal/config"
	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/indicators"
	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/metrics"
	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/scheduler"
	"github.com/ridopark/jonbu-patterns/internal/store"
	"github.com/ridopark/jonbu-patterns/internal/stream"
	"github.com/ridopark/jonbu-patterns/pkg/api/handlers"
	"github.com/ridopark/jonbu-patterns/pkg/api/middleware"
)

// indicatorCacheTTL bounds how long a cached RSI/MACD snapshot is trusted
// before the next request recomputes it.
const indicatorCacheTTL = 2 * time.Minute

// Server wires the pattern detection engine to an HTTP/WebSocket API, a
// Postgres result store, and a cron-driven re-analysis scheduler.
type Server struct {
	config *config.Config
	logger zerolog.Logger

	db   *store.DB
	repo *store.ResultRepository

	streamServer   *stream.Server
	scheduler      *scheduler.Scheduler
	issuer         *auth.Issuer
	indicatorCache *indicators.Cache

	httpServer *http.Server
	router     *mux.Router
}

func main() {
	server, err := initializeServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize server: %v\n", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		server.logger.Fatal().Err(err).Msg("failed to start server")
	}

	server.WaitForShutdown()
}

func initializeServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.InitLogger(cfg.LogLevel, cfg.Environment)
	appLogger := logger.New(cfg.Environment, cfg.LogLevel)
	appLogger.Info().Str("environment", cfg.Environment).Msg("initializing jonbu-patterns server")

	metrics.Register()

	var db *store.DB
	var repo *store.ResultRepository
	db, err = store.NewConnection(cfg.Database, appLogger)
	if err != nil {
		appLogger.Warn().Err(err).Msg("database unavailable; continuing without result persistence")
	} else {
		repo, err = store.NewResultRepository(db)
		if err != nil {
			appLogger.Warn().Err(err).Msg("failed to prepare result repository; continuing without persistence")
			db.Close()
			db = nil
		}
	}

	streamServer := stream.NewServer(appLogger)
	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTLMinutes)

	indicatorCache := buildIndicatorCache(cfg.Redis, appLogger)

	sink := &resultSink{repo: repo, hub: streamServer.GetHub(), log: appLogger}
	sched := scheduler.New(engine.NewWithCache(cfg.Analysis, appLogger, indicatorCache), sink, appLogger)

	router := mux.NewRouter()

	server := &Server{
		config:         cfg,
		logger:         appLogger,
		db:             db,
		repo:           repo,
		streamServer:   streamServer,
		scheduler:      sched,
		issuer:         issuer,
		indicatorCache: indicatorCache,
		router:         router,
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      server.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return server, nil
}

// buildIndicatorCache returns a Redis-backed cache when cfg.Enabled, falling
// back to an in-process-only cache otherwise. Redis is never required for
// the server to run; it only lets a fleet of instances share RSI/MACD
// snapshots instead of each one recomputing them.
func buildIndicatorCache(cfg config.RedisConfig, log zerolog.Logger) *indicators.Cache {
	if !cfg.Enabled {
		return indicators.NewCache(indicatorCacheTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable; falling back to in-process indicator cache")
		return indicators.NewCache(indicatorCacheTTL)
	}

	log.Info().Str("addr", cfg.Addr).Msg("indicator cache backed by redis")
	return indicators.NewCacheWithRedis(indicatorCacheTTL, client)
}

// resultSink bridges a completed AnalysisResult, whether freshly requested
// or produced by a scheduled re-analysis, into persistence and broadcast.
type resultSink struct {
	repo *store.ResultRepository
	hub  *stream.Hub
	log  zerolog.Logger
}

func (s *resultSink) Handle(result models.AnalysisResult) {
	if result.Outcome != models.Success {
		return
	}
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Insert(ctx, result); err != nil {
			s.log.Error().Err(err).Str("analysis_id", result.AnalysisID).Msg("failed to persist scheduled analysis result")
		}
	}
	if s.hub != nil {
		s.hub.BroadcastResult(&result)
	}
}

func (s *Server) setupRoutes() {
	if s.config.Server.EnableCORS {
		s.router.Use(corsMiddleware)
	}
	s.router.Use(requestLoggingMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	apiRouter := s.router.PathPrefix("/v1").Subrouter()
	apiRouter.Use(middleware.Auth(s.issuer, s.logger))

	var resultStore handlers.ResultStore
	if s.repo != nil {
		resultStore = s.repo
	}
	analyzeHandler := handlers.NewAnalyzeHandler(s.config.Analysis, s.streamServer.GetHub(), resultStore, s.scheduler, s.indicatorCache, s.logger)
	apiRouter.HandleFunc("/analyze", analyzeHandler.Analyze).Methods("POST")

	s.streamServer.RegisterRoutes(s.router)

	s.logger.Info().Msg("routes configured")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLoggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// Start begins all server components.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("starting server")

	s.streamServer.Start()

	if err := s.scheduler.Schedule("*/15 * * * *"); err != nil {
		return fmt.Errorf("failed to schedule re-analysis: %w", err)
	}
	s.scheduler.Start()

	go func() {
		s.logger.Info().Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "disconnected"
		} else {
			status["database"] = "connected"
		}
	} else {
		status["database"] = "unconfigured"
	}

	clients, messages, subs := s.streamServer.GetHub().GetMetrics()
	status["websocket_clients"] = clients
	status["websocket_messages"] = messages
	status["websocket_subscriptions"] = subs

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// WaitForShutdown blocks until an interrupt/terminate signal arrives, then
// shuts every component down in turn.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("http server shutdown error")
	}

	s.scheduler.Stop()
	s.streamServer.Stop()

	if s.repo != nil {
		s.repo.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error().Err(err).Msg("database close error")
		}
	}

	s.logger.Info().Msg("server shutdown complete")
}
