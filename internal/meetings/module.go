// Package meetings provides the meeting confirmation admin module.
package meetings

import (
	apphttp "agenda_backend/internal/http"
	"agenda_backend/internal/meetings/handler"
	"agenda_backend/internal/meetings/service"
	"agenda_backend/platform/validator"
)

// Module represents the meetings domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new meetings module with all dependencies wired
func NewModule(deps service.Deps, val *validator.Validator) *Module {
	svc := service.New(deps)
	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "meetings"
}

// RegisterRoutes registers the module's routes under /api/v1/admin
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/meetings"))
	m.handler.RegisterWatchRoutes(ctx.Admin.Group("/watches"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
