package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"AgentHub/backend/go/internal/agent"
	"AgentHub/backend/go/internal/config"
	dbkafka "AgentHub/backend/go/internal/database/kafka"
	dbredis "AgentHub/backend/go/internal/database/redis"
	"AgentHub/backend/go/internal/llm"
	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/internal/orchestrator_service/api"
	"AgentHub/backend/go/internal/orchestrator_service/consumer"
	"AgentHub/backend/go/internal/orchestrator_service/metrics"
	"AgentHub/backend/go/internal/orchestrator_service/publisher"
	"AgentHub/backend/go/internal/orchestrator_service/service"
	"AgentHub/backend/go/internal/orchestrator_service/store"
	agenthttp "AgentHub/backend/go/pkg/http"
	"AgentHub/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultConfigPath = "backend/go/internal/config/config.yaml"
	envConfigPath     = "AGENTHUB_CONFIG"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (default $"+envConfigPath+" or "+defaultConfigPath+")")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(resolveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Logger.Level)
	serviceLogger := logger.New("OrchestratorService", "")

	if err := run(cfg, serviceLogger); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Orchestrator service stopped with error")
	}
	serviceLogger.Info("Server gracefully stopped")
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(envConfigPath); env != "" {
		return env
	}
	return defaultConfigPath
}

func run(cfg *config.AppConfig, serviceLogger *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.MustNewMetrics(registry)

	// Agents, routing and prompts
	agents, err := agent.NewRegistry(agent.DefaultProfiles())
	if err != nil {
		return fmt.Errorf("build agent registry: %w", err)
	}
	rules := agent.DefaultRules()
	if err := agent.ValidateRules(agents, rules, agent.DefaultAgentID); err != nil {
		return fmt.Errorf("validate routing rules: %w", err)
	}
	router := agent.NewRouter(rules, agent.DefaultAgentID)
	prompts := agent.NewPromptLoader(cfg.Prompts.Path, serviceLogger)

	// Providers
	providers, err := llm.NewRegistryFromConfig(ctx, cfg, pipelineMetrics)
	if err != nil {
		return fmt.Errorf("create provider clients: %w", err)
	}
	defer providers.Close()

	// Event sinks
	events := publisher.NewMulti(serviceLogger)
	defer func() {
		if err := events.Close(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing event publishers")
		}
	}()

	var connManager *service.ConnectionManager
	if cfg.Events.WebSocket.Enabled {
		connManager = service.NewConnectionManager(serviceLogger)
		events.Add("websocket", connManager)
	}

	kafkaCfg := cfg.Events.Kafka
	if kafkaCfg.Enabled {
		if err := dbkafka.EnsureTopics(ctx, kafkaCfg.Brokers, kafkaCfg.EventsTopic, kafkaCfg.IntakeTopic); err != nil {
			return fmt.Errorf("prepare kafka topics: %w", err)
		}
		events.Add("kafka", publisher.NewKafkaPublisher(dbkafka.NewWriter(kafkaCfg.Brokers, kafkaCfg.EventsTopic), kafkaCfg.EventsTopic))
		serviceLogger.Info("Publishing task events to Kafka topic " + kafkaCfg.EventsTopic)
	}

	if cfg.Events.Redis.Enabled {
		rdb, err := dbredis.NewClient(ctx, &cfg.Events.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		events.Add("redis", publisher.NewRedisPublisher(rdb, cfg.Events.Redis.ChannelPrefix))
		serviceLogger.Info("Publishing task events to Redis channels " + cfg.Events.Redis.ChannelPrefix + "<taskId>")
	}

	// Orchestrator
	orchestrator := service.NewTaskOrchestrator(service.Dependencies{
		Router:       router,
		Agents:       agents,
		Executor:     service.NewExecutor(agents, prompts, providers),
		Synthesizer:  service.NewSynthesizer(providers, cfg.Synthesis),
		Tasks:        store.NewMemoryTaskStore(),
		Deliverables: store.NewMemoryDeliverableStore(),
		Publisher:    events,
		Metrics:      pipelineMetrics,
		Logger:       serviceLogger,
	})

	// Kafka intake consumer
	var intake *consumer.TaskIntakeConsumer
	if kafkaCfg.Enabled && kafkaCfg.IntakeTopic != "" {
		intake = consumer.NewTaskIntakeConsumer(dbkafka.NewReader(kafkaCfg.Brokers, kafkaCfg.IntakeTopic, kafkaCfg.GroupID), orchestrator, serviceLogger)
		intake.Start(ctx)
		serviceLogger.Info("Kafka intake consumer started on topic " + kafkaCfg.IntakeTopic)
	}

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), api.RequestLogger(serviceLogger))
	var eventSource api.EventSource
	if connManager != nil {
		eventSource = connManager
	}
	api.RegisterRoutes(engine, api.NewAPI(orchestrator, eventSource, serviceLogger), promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv, err := agenthttp.NewServer(cfg, agenthttp.WithLogger(serviceLogger))
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}
	srv.Handle("/", engine)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		serviceLogger.Info("Received " + sig.String() + ", shutting down server...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Server forced to shutdown")
	}

	// Stop taking new work from Kafka, then let running tasks finish.
	cancel()
	if intake != nil {
		<-intake.Done()
		if err := intake.Close(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka consumer")
		}
	}
	if err := orchestrator.Wait(shutdownCtx); err != nil {
		serviceLogger.Warn("Shutdown timeout reached with tasks still running")
	}
	return nil
}
