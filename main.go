package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ops-triage/backend/internal/client"
	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/db"
	"github.com/ops-triage/backend/internal/handler"
	"github.com/ops-triage/backend/internal/service"
)

// @title ops-triage API
// @version 1.0
// @description Alert classification and context engine for monitoring webhooks
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env 파일 로드 (없으면 무시)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	// Postgres 연결 + 스키마 준비 (pgvector 확장 포함)
	pool, err := db.NewPostgresPool(ctx)
	if err != nil {
		log.Fatalf("postgres connect failed: %v", err)
	}
	defer pool.Close()

	database := &db.Postgres{Pool: pool}
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}

	// 외부 클라이언트
	embeddingClient, err := client.NewEmbeddingClient(cfg.Embedding)
	if err != nil {
		log.Fatalf("embedding client init failed: %v", err)
	}
	slackClient := client.NewSlackClient(cfg.Slack)
	if !slackClient.IsConfigured() {
		log.Printf("slack not configured, verdict notifications disabled")
	}

	// 서비스 계층
	authService, err := service.NewAuthService(database, cfg.Auth)
	if err != nil {
		log.Fatalf("auth service init failed: %v", err)
	}
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}

	retriever := service.NewRetrieverService(embeddingClient, database, cfg.Embedding, cfg.Classifier)
	classifier := service.NewClassifierService(cfg.Classifier)
	deliverer := service.NewWebhookDeliveryService(database)
	ingest := service.NewIngestService(database, retriever, classifier, slackClient, deliverer, cfg.Ingest, cfg.Classifier)
	feedback := service.NewFeedbackService(database, slackClient)
	report := service.NewReportService(database, cfg.Report)
	webhookSettings := service.NewWebhookService(database)

	// 핸들러
	ingestHandler := handler.NewIngestHandler(ingest)
	alertHandler := handler.NewAlertQueryHandler(database)
	feedbackHandler := handler.NewFeedbackHandler(feedback)
	reportHandler := handler.NewReportHandler(report)
	monitorHandler := handler.NewMonitorHandler(database, cfg.Classifier.StatsWindow)
	settingsHandler := handler.NewWebhookSettingsHandler(webhookSettings)
	slackActionHandler := handler.NewSlackActionHandler(feedback, cfg.Slack.SigningSecret)
	authHandler := handler.NewAuthHandler(authService)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(corsOrigins(), true))

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/openapi.json", handler.OpenAPIDoc)

	// provider 웹훅 수신 (provider 쪽에서 인증 헤더를 못 붙이는 경우가 많아 비보호)
	router.POST("/webhook/slack/actions", slackActionHandler.Interact)
	router.POST("/webhook/:provider", ingestHandler.Webhook)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	api := router.Group("/api/v1")
	api.Use(handler.AuthMiddleware(authService))
	{
		api.GET("/auth/me", authHandler.Me)

		api.GET("/alerts", alertHandler.List)
		api.GET("/alerts/:id", alertHandler.Detail)
		api.POST("/alerts/:id/feedback", feedbackHandler.Record)

		api.GET("/reports/classification", reportHandler.Classification)

		api.GET("/monitors/:provider/:id", monitorHandler.Get)
		api.PUT("/monitors/:provider/:id/noisy", monitorHandler.MarkNoisy)

		api.GET("/settings/webhooks", settingsHandler.ListWebhookConfigs)
		api.GET("/settings/webhooks/:id", settingsHandler.GetWebhookConfig)
		api.POST("/settings/webhooks", settingsHandler.CreateWebhookConfig)
		api.PUT("/settings/webhooks/:id", settingsHandler.UpdateWebhookConfig)
		api.DELETE("/settings/webhooks/:id", settingsHandler.DeleteWebhookConfig)
	}

	addr := ":" + cfg.Server.Port
	log.Printf("starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func corsOrigins() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	return strings.Split(raw, ",")
}
