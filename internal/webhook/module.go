package webhook

import (
	apphttp "agenda_backend/internal/http"
	"agenda_backend/internal/http/middleware"
	"agenda_backend/platform/config"
	"agenda_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inbound webhook module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, engine ReplyHandler, cfg config.WebhookConfig, log *logger.Logger) *Module {
	var audit AuditLog
	if pool != nil {
		audit = NewRepository(pool)
	}
	service := NewService(engine, audit, cfg.GetWhatsAppInstance(), log)

	return &Module{
		handler: NewHandler(service),
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	if ctx.WebhookRateLimiter != nil {
		group.Use(ctx.WebhookRateLimiter.RateLimit())
	}
	group.Use(middleware.RequestTimeout(m.cfg.GetWebhookTimeout()))
	group.POST("/evolution", APIKeyAuthMiddleware(m.cfg.GetWebhookKey()), m.handler.HandleEvolution)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
