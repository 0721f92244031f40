package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"casebridge/internal/auth"
	"casebridge/internal/config"
	"casebridge/internal/db"
	"casebridge/internal/handlers"
	"casebridge/internal/middleware"
	"casebridge/internal/observability"
	"casebridge/internal/rabbitmq"
	"casebridge/internal/repositories"
	"casebridge/internal/service"
	"casebridge/internal/telemetry"
	"casebridge/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.S().Fatalf("failed to load config: %v", err)
	}
	syncLogs := config.SetupLogging(cfg.Env)
	defer syncLogs()

	ctx := context.Background()
	shutdownTracing, err := telemetry.SetupTracing(ctx, "casebridge", cfg.OTLPEndpoint)
	if err != nil {
		zap.S().Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		zap.S().Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	zap.S().Infow("event publisher ready", "mode", rabbitmq.PublisherMode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.casebridge", "casebridge", cfg.Env)

	if cfg.AMQPURL != "" {
		sessionPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			zap.S().Warnw("session event publisher unavailable", "error", err)
		} else {
			observability.SetPublisher(sessionPublisher)
			defer sessionPublisher.Close()
		}
	}

	caseRepo := repositories.NewCaseRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	verifier := auth.NewTokenService(cfg.JWTSecret)

	hub := ws.NewHub()
	messageService := service.NewMessageService(caseRepo, messageRepo, hub)

	messageHandler := handlers.NewMessageHandler(messageService, audit)
	caseHandler := handlers.NewCaseHandler(caseRepo, audit)
	channelHandler := ws.NewChannelHandler(hub, caseRepo, verifier)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("casebridge"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier)

	api := router.Group("/api", authMiddleware)

	api.POST("/cases", caseHandler.CreateCase)
	api.GET("/cases", caseHandler.ListCases)
	api.GET("/cases/:case_id", caseHandler.GetCase)
	api.PUT("/cases/:case_id/status", caseHandler.UpdateStatus)
	api.POST("/cases/:case_id/assign", caseHandler.AssignLawyer)
	api.POST("/cases/:case_id/remarks", caseHandler.AddRemark)

	api.GET("/messages/case/:case_id", messageHandler.ListMessages)
	api.POST("/messages", messageHandler.SendMessage)
	api.PUT("/messages/:message_id/read", messageHandler.MarkRead)
	api.GET("/messages/unread", messageHandler.UnreadCounts)

	router.GET("/ws", channelHandler.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	zap.S().Infow("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := router.Run(":" + cfg.Port); err != nil {
		zap.S().Fatalf("server error: %v", err)
	}
}
