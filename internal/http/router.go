// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, identity resolution, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/assistant"
	"github.com/agentchief/go-emailbots-backend/internal/auth"
	"github.com/agentchief/go-emailbots-backend/internal/config"
	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/http/handlers"
	"github.com/agentchief/go-emailbots-backend/internal/http/middleware"
	"github.com/agentchief/go-emailbots-backend/internal/repo"
	"github.com/agentchief/go-emailbots-backend/internal/services"
	"github.com/agentchief/go-emailbots-backend/internal/settings"
	"github.com/agentchief/go-emailbots-backend/internal/store"
)

// botRepoShim adapts the repository free functions to the services.BotRepo
// interface expected by the BotService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type botRepoShim struct{}

// CreateBot proxies repo.CreateBot.
func (botRepoShim) CreateBot(ctx context.Context, db *gorm.DB, b *domain.Bot) (*domain.Bot, error) {
	return repo.CreateBot(ctx, db, b)
}

// ListBots proxies repo.ListBots.
func (botRepoShim) ListBots(ctx context.Context, db *gorm.DB, userID string) ([]domain.Bot, error) {
	return repo.ListBots(ctx, db, userID)
}

// GetBot proxies repo.GetBot.
func (botRepoShim) GetBot(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Bot, error) {
	return repo.GetBot(ctx, db, id, userID)
}

// FindBotByEmail proxies repo.FindBotByEmail.
func (botRepoShim) FindBotByEmail(ctx context.Context, db *gorm.DB, userID, email, excludeID string) (*domain.Bot, error) {
	return repo.FindBotByEmail(ctx, db, userID, email, excludeID)
}

// UpdateBot proxies repo.UpdateBot.
func (botRepoShim) UpdateBot(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) (*domain.Bot, error) {
	return repo.UpdateBot(ctx, db, id, userID, fields)
}

// UpdateBotAssistant proxies repo.UpdateBotAssistant.
func (botRepoShim) UpdateBotAssistant(ctx context.Context, db *gorm.DB, id, assistantID, model, status, apiKey string) error {
	return repo.UpdateBotAssistant(ctx, db, id, assistantID, model, status, apiKey)
}

// DeleteBot proxies repo.DeleteBot.
func (botRepoShim) DeleteBot(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteBot(ctx, db, id, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Identity resolution (JWT, or X-User-ID in dev)
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, provisioner services.Provisioner, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Identity resolution; runs before the limiter so per-user buckets work
	r.Use(auth.Middleware(cfg.Auth.JWTSecret))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/provisioner
	botSvc := services.NewBotService(db, botRepoShim{}, provisioner)
	templateSvc := &services.TemplateService{DB: db}
	knowledgeSvc := &services.KnowledgeService{DB: db}
	questionSvc := &services.FineTuningService{DB: db}
	convSvc := &services.ConversationService{DB: db}
	settingsSvc := settings.NewService(settings.Defaults())

	stores := store.NewManager(botSvc, templateSvc, knowledgeSvc, questionSvc, convSvc, settingsSvc)
	h := handlers.New(stores, convSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Dashboard state
		api.GET("/state", h.GetState)
		api.POST("/state/refresh", h.RefreshState)

		// Bots
		api.GET("/bots", h.ListBots)
		api.POST("/bots", h.CreateBot)
		api.PUT("/bots/:id", h.UpdateBot)
		api.DELETE("/bots/:id", h.DeleteBot)

		// Templates
		api.GET("/templates", h.ListTemplates)
		api.POST("/templates", h.CreateTemplate)
		api.PUT("/templates/:id", h.UpdateTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)

		// Knowledge base
		api.GET("/knowledge-base", h.ListKnowledge)
		api.POST("/knowledge-base", h.CreateKnowledge)
		api.PUT("/knowledge-base/:id", h.UpdateKnowledge)
		api.DELETE("/knowledge-base/:id", h.DeleteKnowledge)

		// Fine-tuning questions
		api.GET("/fine-tuning/questions", h.ListQuestions)
		api.POST("/fine-tuning/questions", h.CreateQuestion)
		api.PUT("/fine-tuning/questions/:id", h.UpdateQuestion)
		api.POST("/fine-tuning/questions/bulk-delete", h.BulkDeleteQuestions)
		api.POST("/fine-tuning/questions/import", h.ImportQuestions)

		// Conversations (CSV export compresses well; gzip only here)
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/export", gzip.Gzip(gzip.DefaultCompression), h.ExportConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.PUT("/conversations/:id/status", h.UpdateConversationStatus)

		// Settings
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)
		api.POST("/settings/save", h.SaveSettings)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// NewProvisioner builds the assistant client from configuration. A nil
// return (no API key) leaves bots in the pending provisioning state, which
// is the expected dev posture.
func NewProvisioner(cfg config.Config) services.Provisioner {
	if cfg.Assistant.APIKey == "" {
		return nil
	}
	return assistant.NewClient(cfg.Assistant.BaseURL, cfg.Assistant.APIKey)
}
