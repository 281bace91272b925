package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voiceloop/api/handlers"
	"github.com/BaSui01/voiceloop/config"
	"github.com/BaSui01/voiceloop/internal/metrics"
	"github.com/BaSui01/voiceloop/internal/server"
	"github.com/BaSui01/voiceloop/providers"
	"github.com/BaSui01/voiceloop/seedstore"
	"github.com/BaSui01/voiceloop/session"
	"github.com/BaSui01/voiceloop/transport"
	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 VoiceLoop 的主服务器：一条 worker 循环跑语音会话，
// 一个管理面端口承载注入、健康检查、用量和指标端点。
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 管理面服务器
	admin *server.Manager

	// Handlers
	healthHandler *handlers.HealthHandler

	// 指标收集器
	collector *metrics.Collector

	// 种子存储（redisStore 非空时与 store 指向同一实例）
	store      seedstore.Store
	redisStore *seedstore.RedisStore

	// 能力提供者
	providers session.Providers

	// worker 生命周期
	workerCancel context.CancelFunc
	wg           sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.collector = metrics.NewCollector(s.cfg.Metrics.Namespace, s.logger)

	// 2. 初始化种子存储
	if err := s.initStore(); err != nil {
		return fmt.Errorf("failed to init seed store: %w", err)
	}

	// 3. 组装能力提供者并预热
	p, err := providers.Build(s.cfg.Providers, s.logger)
	if err != nil {
		return fmt.Errorf("failed to build providers: %w", err)
	}
	s.providers = p
	s.prewarm()

	// 4. 启动管理面服务器
	if err := s.startAdminServer(); err != nil {
		return fmt.Errorf("failed to start admin server: %w", err)
	}

	// 5. 启动 worker 循环
	s.startWorker()

	s.logger.Info("All services started",
		zap.String("admin_addr", s.admin.ListenAddr()),
		zap.String("room_url", s.cfg.Transport.URL),
		zap.String("seed_store", s.cfg.Seed.Store),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initStore 初始化种子存储并装载可选的文件种子
func (s *Server) initStore() error {
	switch s.cfg.Seed.Store {
	case "redis":
		store, err := seedstore.NewRedisStore(seedstore.RedisConfig{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
			Key:      s.cfg.Redis.Key,
		}, s.logger)
		if err != nil {
			return err
		}
		s.redisStore = store
		s.store = store
	default:
		s.store = seedstore.NewMemoryStore(s.logger)
	}

	// 文件种子在启动时读取一次，写入存储供首个会话消费
	if s.cfg.Seed.FilePath != "" {
		source := seedstore.NewFileSource(s.cfg.Seed.FilePath, s.logger)
		if seed, ok := source.Read(); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.store.Write(ctx, seed); err != nil {
				s.logger.Warn("failed to store file seed", zap.Error(err))
			} else {
				s.logger.Info("file seed loaded", zap.String("path", s.cfg.Seed.FilePath))
			}
		}
	}

	return nil
}

// prewarm 在接待第一个参与者之前加载 VAD 模型
func (s *Server) prewarm() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.providers.VAD.Load(ctx); err != nil {
		s.logger.Warn("vad prewarm failed, first session will load lazily",
			zap.String("provider", s.providers.VAD.Name()),
			zap.Error(err),
		)
	}
}

// startAdminServer 组装路由并启动管理面端口
func (s *Server) startAdminServer() error {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.redisStore != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", s.redisStore.Ping))
	}

	limiter := rate.NewLimiter(rate.Limit(s.cfg.Server.InjectRateLimit), s.cfg.Server.InjectRateBurst)
	injectHandler := handlers.NewInjectHandler(s.store, limiter, s.logger)
	usageHandler := handlers.NewUsageHandler(s.collector, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/inject-context", injectHandler.HandleInject)
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))
	mux.HandleFunc("/usage", usageHandler.HandleUsage)
	mux.Handle("/metrics", promhttp.Handler())

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
	)

	s.admin = server.NewManager(handler, server.Config{
		Addr:            s.cfg.Server.Addr,
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.admin.Start()
}

// =============================================================================
// 🔁 Worker 循环
// =============================================================================

// startWorker 启动数据面 worker
func (s *Server) startWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	s.workerCancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runWorker(ctx)
	}()
}

// runWorker 逐个会话地运行：连接房间、跑完一个会话、按配置的
// 间隔重连。每个会话独占一条 transport 连接和一份对话上下文。
func (s *Server) runWorker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		tr := transport.NewWSTransport(transport.WSConfig{
			URL:        s.cfg.Transport.URL,
			SampleRate: s.cfg.Transport.SampleRate,
		}, s.logger)

		sess := session.New(s.sessionOptions(), s.providers, tr, s.store, s.logger)
		sess.Subscribe(s.collector)

		if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("session ended with error",
				zap.String("session_id", sess.ID()),
				zap.String("code", string(types.GetErrorCode(err))),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Transport.ReconnectDelay):
		}
	}
}

// sessionOptions 把配置映射为会话选项
func (s *Server) sessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.MinEndpointingDelay = s.cfg.Session.MinEndpointingDelay
	opts.MaxEndpointingDelay = s.cfg.Session.MaxEndpointingDelay
	opts.AllowInterruptions = s.cfg.Session.AllowInterruptions
	opts.ProactiveOpen = s.cfg.Session.ProactiveOpen
	opts.SeedRole = s.cfg.SeedRole()
	if s.cfg.Session.Greeting != "" {
		opts.Greeting = s.cfg.Session.Greeting
	}
	if s.cfg.Session.FallbackLine != "" {
		opts.FallbackLine = s.cfg.Session.FallbackLine
	}
	opts.MaxProviderRetries = s.cfg.Session.MaxProviderRetries
	if s.cfg.Transport.SampleRate > 0 {
		opts.SampleRate = s.cfg.Transport.SampleRate
	}
	return opts
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 阻塞直到收到关闭信号，然后按序停机
func (s *Server) WaitForShutdown() {
	s.admin.WaitForShutdown()
	s.Stop()
}

// Stop 取消 worker、等待在途会话结束、释放外部连接
func (s *Server) Stop() {
	if s.workerCancel != nil {
		s.workerCancel()
	}
	s.wg.Wait()

	if s.redisStore != nil {
		if err := s.redisStore.Close(); err != nil {
			s.logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
