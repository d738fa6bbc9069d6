// Package api implements app.Runner for the bridge API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chainsafe/spiral-bridge/internal/metrics"
	apperrors "github.com/chainsafe/spiral-bridge/pkg/app/errors"
	apphttp "github.com/chainsafe/spiral-bridge/pkg/app/http"
	"github.com/chainsafe/spiral-bridge/pkg/auth"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	bridgeservice "github.com/chainsafe/spiral-bridge/pkg/bridge/service"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore"
	"github.com/chainsafe/spiral-bridge/pkg/config"
	"github.com/chainsafe/spiral-bridge/pkg/ledger"
	"github.com/chainsafe/spiral-bridge/pkg/pgutil"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires the stores, the coordinator and the HTTP API, then serves until an OS
// shutdown signal is received or the server fails.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bridge API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Bridge.Store),
		zap.String("ledger", cfg.Ledger.Driver),
	)

	var db *bun.DB
	if cfg.UsesPostgres() {
		db, err = pgutil.ConnectDB(&cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		logger.Info("Connected to database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
	}

	svc := NewBridgeService(cfg, db, logger)
	router := s.setupRouter(svc, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

// NewBridgeService builds the logged coordinator over the configured store and ledger
// drivers. db may be nil when neither driver is postgres.
func NewBridgeService(cfg *config.Config, db *bun.DB, logger *zap.Logger) bridgeservice.Service {
	var store bridgestore.Store = bridgestore.NewMemoryStore()
	if cfg.Bridge.Store == config.DriverPostgres {
		store = bridgestore.NewStore(db)
	}

	var tokenLedger ledger.Ledger = ledger.NewMemoryLedger()
	if cfg.Ledger.Driver == config.DriverPostgres {
		tokenLedger = ledger.NewPGLedger(db)
	}

	if !cfg.Bridge.StrictTrustedRemotes {
		logger.Warn("Trusted remotes are permissive: inbound transfers from chains without a registered remote are accepted")
	}

	svc := bridgeservice.NewService(store, tokenLedger, bridgeservice.Config{
		LocalChainID:          bridge.ChainID(cfg.Bridge.LocalChainID),
		MaxNonces:             cfg.Bridge.MaxNonces,
		MaxSupplyCeiling:      cfg.Bridge.MaxSupplyCeiling,
		ConsumeNonceOnFailure: cfg.Bridge.NonceFailurePolicy == config.NoncePolicyConsume,
		StrictTrustedRemotes:  cfg.Bridge.StrictTrustedRemotes,
	}, bridgeservice.WithLogger(logger))

	return bridgeservice.NewLog(svc, logger)
}

func (s *Server) setupRouter(svc bridgeservice.Service, logger *zap.Logger) chi.Router {
	cfg := s.cfg
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(countRequests)

	r.MethodNotAllowed(apphttp.HandleError(func(_ http.ResponseWriter, r *http.Request) error {
		return apperrors.NotSupportedError(nil, r.Method+" is not supported on "+r.URL.Path)
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute))
		}
		if cfg.Auth.Enabled {
			r.Use(auth.NewJWTValidator(cfg.Auth.Secret, cfg.Auth.Issuer).Middleware)
		} else {
			logger.Warn("Authentication disabled, trusting the " + auth.HeaderCaller + " header")
			r.Use(auth.HeaderMiddleware)
		}
		bridgeservice.RegisterRoutes(r, svc, logger)
	})

	return r
}

// countRequests records every request by matched route pattern and status.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
