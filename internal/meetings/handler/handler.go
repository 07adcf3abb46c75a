package handler

import (
	"net/http"
	"strconv"

	"agenda_backend/internal/meetings/service"
	"agenda_backend/internal/meetings/transport"
	"agenda_backend/platform/apperr"
	"agenda_backend/platform/httpkit"
	"agenda_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidMeetingID = "invalid meeting id"
)

// Handler handles HTTP requests for meeting confirmation administration
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new meetings handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the meeting routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/confirmation", h.ManualConfirmation)
	rg.GET("/:id/responses", h.ListResponses)
	rg.POST("/:id/confirmation-request", h.RequestConfirmation)
}

// RegisterWatchRoutes registers the watch admin routes
func (h *Handler) RegisterWatchRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListWatches)
	rg.POST("", h.AddWatch)
	rg.DELETE("", h.ClearWatches)
	rg.DELETE("/:meetingId", h.RemoveWatch)
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidMeetingID))
		return 0, false
	}
	return id, true
}

// GetByID handles GET /api/v1/admin/meetings/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ManualConfirmation handles POST /api/v1/admin/meetings/:id/confirmation
func (h *Handler) ManualConfirmation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.ManualConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	result, err := h.svc.ManualConfirmation(c.Request.Context(), id, identity.Subject(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ListResponses handles GET /api/v1/admin/meetings/:id/responses
func (h *Handler) ListResponses(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.ListResponsesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListResponses(c.Request.Context(), id, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// RequestConfirmation handles POST /api/v1/admin/meetings/:id/confirmation-request
func (h *Handler) RequestConfirmation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.ConfirmationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RequestConfirmation(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, result)
}

// ListWatches handles GET /api/v1/admin/watches
func (h *Handler) ListWatches(c *gin.Context) {
	httpkit.OK(c, h.svc.ListWatches())
}

// AddWatch handles POST /api/v1/admin/watches
func (h *Handler) AddWatch(c *gin.Context) {
	var req transport.AddWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AddWatch(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// RemoveWatch handles DELETE /api/v1/admin/watches/:meetingId
func (h *Handler) RemoveWatch(c *gin.Context) {
	id, ok := parseID(c, "meetingId")
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.RemoveWatch(c.Request.Context(), id)) {
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearWatches handles DELETE /api/v1/admin/watches
func (h *Handler) ClearWatches(c *gin.Context) {
	httpkit.OK(c, h.svc.ClearWatches(c.Request.Context()))
}
