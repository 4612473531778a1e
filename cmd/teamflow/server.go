package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/api/handlers"
	"github.com/BaSui01/teamflow/backend"
	"github.com/BaSui01/teamflow/config"
	"github.com/BaSui01/teamflow/events"
	"github.com/BaSui01/teamflow/hierarchy"
	"github.com/BaSui01/teamflow/internal/metrics"
	"github.com/BaSui01/teamflow/internal/server"
	"github.com/BaSui01/teamflow/runs"
	"github.com/BaSui01/teamflow/store"
)

// =============================================================================
// 🧩 服务组装
// =============================================================================

// Server 聚合全部子系统：存储、事件注册表、运行管理器与 HTTP 服务。
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store     *store.Store
	registry  *events.Registry
	collector *metrics.Collector
	manager   *runs.Manager

	httpManager       *server.Manager
	rateLimiterCancel context.CancelFunc

	healthHandler    *handlers.HealthHandler
	hierarchyHandler *handlers.HierarchyHandler
	runHandler       *handlers.RunHandler
}

// NewServer 按配置装配所有子系统。
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	st, err := store.Open(cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("Database connected", zap.String("dsn", cfg.Database.DSN))

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	registry := events.NewRegistry(logger)
	invoker := newInvoker(cfg.Backend, logger)

	manager := runs.NewManager(runs.Config{
		MaxConcurrent: cfg.Runs.MaxConcurrent,
		RunTimeout:    cfg.Runs.RunTimeout,
	}, st, registry, invoker, collector, logger)

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		registry:  registry,
		collector: collector,
		manager:   manager,
	}

	s.healthHandler = handlers.NewHealthHandler(logger)
	s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
		CheckName: "database",
		Fn: func(ctx context.Context) error {
			sqlDB, err := st.DB().WithContext(ctx).DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	s.hierarchyHandler = handlers.NewHierarchyHandler(st, logger)
	s.runHandler = handlers.NewRunHandler(manager, st, registry, cfg.Events.HeartbeatInterval, logger)

	return s, nil
}

// newInvoker 根据配置选择模型后端。未知类型回落到 scripted。
func newInvoker(cfg config.BackendConfig, logger *zap.Logger) hierarchy.Invoker {
	switch cfg.Type {
	case "scripted", "":
		return backend.NewScripted(logger)
	default:
		logger.Warn("unknown backend type, falling back to scripted", zap.String("type", cfg.Type))
		return backend.NewScripted(logger)
	}
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// Start 注册路由、构建中间件链并启动 HTTP 服务（非阻塞）。
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 指标端点
	if s.collector != nil {
		mux.Handle("/metrics", s.collector.Handler())
	}

	// 层级定义 API
	mux.HandleFunc("POST /api/v1/hierarchies", s.hierarchyHandler.HandleCreate)
	mux.HandleFunc("GET /api/v1/hierarchies", s.hierarchyHandler.HandleList)
	mux.HandleFunc("GET /api/v1/hierarchies/{id}", s.hierarchyHandler.HandleGet)
	mux.HandleFunc("PUT /api/v1/hierarchies/{id}", s.hierarchyHandler.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/hierarchies/{id}", s.hierarchyHandler.HandleDelete)

	// 运行 API
	mux.HandleFunc("POST /api/v1/hierarchies/{id}/runs", s.runHandler.HandleStart)
	mux.HandleFunc("GET /api/v1/runs", s.runHandler.HandleList)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.runHandler.HandleGet)
	mux.HandleFunc("POST /api/v1/runs/{id}/cancel", s.runHandler.HandleCancel)
	mux.HandleFunc("GET /api/v1/runs/{id}/events", s.runHandler.HandleStream)
	mux.HandleFunc("GET /api/v1/runs/{id}/ws", s.runHandler.HandleStreamWS)
	mux.HandleFunc("GET /api/v1/runs/{id}/statistics", s.runHandler.HandleStatistics)
	mux.HandleFunc("GET /api/v1/runs/{id}/calls", s.runHandler.HandleCallLog)

	// 构建中间件链
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	if s.cfg.Server.RateLimit > 0 {
		rateLimiterCtx, cancel := context.WithCancel(context.Background())
		s.rateLimiterCancel = cancel
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimit, s.cfg.Server.RateBurst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    0, // SSE/WebSocket 长连接
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// WaitForShutdown 阻塞到收到退出信号，然后按序关停。
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.manager.Shutdown(ctx); err != nil {
		s.logger.Warn("runs did not drain before timeout", zap.Error(err))
	}

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
}
