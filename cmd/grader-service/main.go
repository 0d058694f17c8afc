package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skillbuilder/internal/common/cache"
	commonmw "skillbuilder/internal/common/http/middleware"
	"skillbuilder/internal/content"
	"skillbuilder/internal/grading"
	"skillbuilder/internal/grading/controller"
	"skillbuilder/internal/grading/engine"
	"skillbuilder/internal/grading/policy"
	"skillbuilder/internal/grading/service"
	"skillbuilder/pkg/utils/logger"
)

const defaultConfigPath = "configs/grader.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	var resultCache cache.Cache
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = redisCache.Close()
		}()
		resultCache = redisCache
	}

	eng, err := engine.NewEngine(appCfg.Sandbox.toEngineConfig())
	if err != nil {
		logger.Error(context.Background(), "init interpreter engine failed", zap.Error(err))
		return
	}
	defer func() {
		_ = eng.Close()
	}()

	// The policy is built once at startup and shared by reference; the
	// validator, namespaces and harness all see the same tables.
	pol := policy.Default()
	protocol := grading.NewProtocol(pol, eng)
	repo := content.NewRepository(appCfg.Content.Dir)

	gradeSvc := service.NewGradeService(service.Config{
		Repo:         repo,
		Protocol:     protocol,
		Cache:        resultCache,
		ResultTTL:    appCfg.Grading.ResultTTL,
		MaxCodeBytes: appCfg.Grading.MaxCodeBytes,
	})
	metricsSvc := service.NewMetricsService()

	httpServer := buildHTTPServer(appCfg.Server, gradeSvc, metricsSvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "grader http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, gradeSvc *service.GradeService, metricsSvc *service.MetricsService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	gradeController := controller.NewGradeController(gradeSvc, metricsSvc)

	api := router.Group("/api/v1")
	api.POST("/grade", gradeController.Grade)
	api.GET("/modules", gradeController.ListModules)
	api.GET("/modules/:id", gradeController.GetModule)
	api.POST("/metrics", gradeController.Metrics)
	api.POST("/metrics/refactor", gradeController.CompareRefactor)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
