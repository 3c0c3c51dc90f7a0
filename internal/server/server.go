package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/heliumweb/helium/backend/internal/api/middleware"
	"github.com/heliumweb/helium/backend/internal/config"
	"github.com/heliumweb/helium/backend/internal/domain/extension"
	"github.com/heliumweb/helium/backend/internal/domain/isolation"
	"github.com/heliumweb/helium/backend/internal/domain/permissions"
	"github.com/heliumweb/helium/backend/internal/domain/pkgparser"
	"github.com/heliumweb/helium/backend/internal/domain/recovery"
	"github.com/heliumweb/helium/backend/internal/engine"
	"github.com/heliumweb/helium/backend/internal/fetch"
	apihttp "github.com/heliumweb/helium/backend/internal/http"
	"github.com/heliumweb/helium/backend/internal/infrastructure/monitoring"
	"github.com/heliumweb/helium/backend/internal/infrastructure/tracing"
	"github.com/heliumweb/helium/backend/internal/logging"
	"github.com/heliumweb/helium/backend/internal/shared/types"
	"github.com/heliumweb/helium/backend/internal/storage"
	"github.com/heliumweb/helium/backend/internal/telemetry"
	"github.com/heliumweb/helium/backend/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	httpServer  *http.Server
	coordinator *extension.Coordinator
	sampler     *telemetry.Sampler
	hub         *ws.Hub
	limiter     *middleware.RateLimiter
	logger      *logging.Logger
}

// New wires every component from configuration. host may be nil, in
// which case the in-process engine stand-in is used.
func New(cfg *config.Config, logger *logging.Logger, host engine.Engine) (*Server, error) {
	if host == nil {
		host = engine.NewInProc()
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extension store: %w", err)
	}

	policy, err := config.LoadPolicy(cfg.Storage.PolicyFile)
	if err != nil {
		return nil, err
	}

	if err := applyDefaults(store, cfg, policy); err != nil {
		return nil, err
	}

	sessions := isolation.NewManager()
	applyPolicyRestrictions(sessions, policy, store.Settings().DefaultIsolationLevel)

	riskEngine := permissions.NewEngine()
	recoveryManager := recovery.NewManager(recovery.DefaultOptions())
	metrics := monitoring.NewMetrics()
	hub := ws.NewHub()

	coordinator := extension.NewCoordinator(extension.Deps{
		Logger:      logger.Logger,
		Parser:      pkgparser.NewParser(pkgparser.NewZipReader()),
		Permissions: riskEngine,
		Sessions:    sessions,
		Recovery:    recoveryManager,
		Engine:      host,
		Store:       store,
		Fetcher:     fetch.New(cfg.Storage.Staging),
		Publisher:   hub,
		Observer:    metrics,
	})

	reporter, _ := host.(telemetry.UsageReporter)
	sampler := telemetry.New(sessions, reporter, metrics, 10*time.Second, logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(tracing.HTTPMiddleware(tracing.New("extension-host", logger.Logger)))
	router.Use(monitoring.Middleware(metrics))
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
		router.Use(limiter.Middleware())
	}

	handlers := apihttp.NewHandlers(coordinator, sessions, riskEngine, recoveryManager, store, metrics)
	wsHandler := ws.NewHandler(hub, metrics, logger.Logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Extension lifecycle
	router.GET("/extensions", handlers.ListExtensions)
	router.POST("/extensions", handlers.AddExtension)
	router.GET("/extensions/:id", handlers.GetExtension)
	router.POST("/extensions/:id/toggle", handlers.ToggleExtension)
	router.DELETE("/extensions/:id", handlers.RemoveExtension)
	router.GET("/extensions/:id/permissions", handlers.AssessExtension)

	// Permissions
	router.PUT("/permissions/overrides", handlers.UpdateOverrides)
	router.GET("/permissions/stats", handlers.PermissionStats)

	// Sessions, errors, settings
	router.GET("/sessions/stats", handlers.SessionStats)
	router.GET("/errors/stats", handlers.ErrorStats)
	router.DELETE("/errors", handlers.ClearErrors)
	router.GET("/settings", handlers.GetSettings)
	router.PUT("/settings", handlers.UpdateSettings)

	// Observability
	router.GET("/stats", handlers.MetricsSnapshot)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Event stream
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		coordinator: coordinator,
		sampler:     sampler,
		hub:         hub,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Run restores persisted extensions, starts the telemetry sampler and
// serves HTTP until Shutdown.
func (s *Server) Run(ctx context.Context) error {
	restored := s.coordinator.Restore(ctx)
	s.sampler.Start(ctx)

	s.logger.Info("starting extension host",
		zap.String("addr", s.httpServer.Addr),
		zap.Int("extensions", restored))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains connections and releases resources
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.coordinator.Close()
	s.sampler.Close()
	s.hub.Close()
	if s.limiter != nil {
		s.limiter.Close()
	}
	return err
}

// applyDefaults folds environment and policy defaults into the persisted
// settings. Enable/auto-load flags belong to the store; isolation level
// and risk tolerance follow the operator's configuration.
func applyDefaults(store *storage.FileStore, cfg *config.Config, policy *config.Policy) error {
	settings := store.Settings()

	if level, err := types.ParseIsolationLevel(cfg.Extensions.IsolationLevel); err == nil {
		settings.DefaultIsolationLevel = level
	}
	if policy.DefaultIsolationLevel != "" {
		if level, err := types.ParseIsolationLevel(policy.DefaultIsolationLevel); err == nil {
			settings.DefaultIsolationLevel = level
		}
	}
	if tolerance, err := types.ParseRiskLevel(cfg.Extensions.RiskTolerance); err == nil {
		settings.DefaultRiskTolerance = tolerance
	}
	settings.AutoLoadExtensions = cfg.Extensions.AutoLoad

	if err := store.SetSettings(settings); err != nil {
		return err
	}

	// Policy overrides seed the store only when the user has none yet
	if len(store.Overrides()) == 0 && len(policy.PermissionOverrides) > 0 {
		if err := store.SetOverrides(policy.PermissionOverrides); err != nil {
			return err
		}
	}
	return nil
}

// applyPolicyRestrictions replaces level restriction sets named by the
// policy file.
func applyPolicyRestrictions(sessions *isolation.Manager, policy *config.Policy, defaultLevel types.IsolationLevel) {
	partial := isolation.Config{DefaultLevel: defaultLevel}
	if len(policy.IsolationRestrictions) > 0 {
		partial.Restrictions = make(map[types.IsolationLevel][]string, len(policy.IsolationRestrictions))
		for level, restrictions := range policy.IsolationRestrictions {
			if parsed, err := types.ParseIsolationLevel(level); err == nil {
				partial.Restrictions[parsed] = restrictions
			}
		}
	}
	sessions.UpdateConfig(partial)
}
