package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workflow-runner-service/internal/adapters/primary/http/handlers"
	"workflow-runner-service/internal/adapters/primary/http/middleware"
	"workflow-runner-service/internal/adapters/secondary/codecov"
	"workflow-runner-service/internal/adapters/secondary/kubernetes"
	"workflow-runner-service/internal/adapters/secondary/localexec"
	"workflow-runner-service/internal/adapters/secondary/postgres"
	"workflow-runner-service/internal/config"
	output "workflow-runner-service/internal/core/ports/output"
	"workflow-runner-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// Secondary Adapters (Output Ports)
	workflowRepo := postgres.NewWorkflowRepository(pool)
	runRepo := postgres.NewRunRepository(pool)

	// Command Runner (local by default, Kubernetes when enabled)
	var runner output.CommandRunner
	if cfg.Kubernetes.Enabled {
		r, err := kubernetes.NewRunner(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("Kubernetes runner init failed (falling back to local execution): %v", err)
			runner = localexec.NewRunner(true)
		} else {
			runner = r
			log.Info("Kubernetes runner initialized")
		}
	} else {
		runner = localexec.NewRunner(true)
		log.Info("local runner initialized")
	}

	// Coverage Client (Optional - based on config)
	var coverageClient output.CoverageClient
	if cfg.Coverage.Enabled {
		coverageClient = codecov.NewClient(&cfg.Coverage)
		log.Info("coverage client initialized")
	} else {
		log.Info("coverage upload disabled")
	}

	// Core Services (Application Layer)
	workflowSvc := services.NewWorkflowService(workflowRepo)
	triggerSvc := services.NewTriggerService(workflowRepo, runRepo)
	executorSvc := services.NewExecutorService(runRepo, workflowRepo, runner, coverageClient, services.ExecutorOptions{
		WorkDir:             cfg.Runner.WorkDir,
		DefaultShell:        cfg.Runner.DefaultShell,
		MaxParallelJobs:     cfg.Runner.MaxParallelJobs,
		StepTimeout:         cfg.Runner.StepTimeout,
		RunnerOS:            cfg.Runner.OS,
		RunnerArch:          cfg.Runner.Arch,
		EnvName:             cfg.Runner.EnvName,
		CoverageFailOnError: cfg.Coverage.FailOnError,
	})
	runSvc := services.NewRunService(runRepo, workflowRepo, executorSvc)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(workflowSvc, triggerSvc, runSvc, executorSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/workflow-runner")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	executorSvc.Wait()
	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
