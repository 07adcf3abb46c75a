package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"agenda_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const maxPayloadBytes = 1 << 20

const (
	errInvalidJSON = "invalid JSON"
	errEmptyBody   = "no JSON data"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleEvolution processes an Evolution API delivery.
// POST /api/v1/webhook/evolution
// Answers 200 for everything but malformed bodies and storage failures, so
// the provider only redelivers what can succeed later.
func (h *Handler) HandleEvolution(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidJSON, nil)
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidJSON, nil)
		return
	}
	if len(payload) == 0 {
		httpkit.Error(c, http.StatusBadRequest, errEmptyBody, nil)
		return
	}

	result, err := h.service.Process(c.Request.Context(), payload, raw)
	if err != nil {
		// Engine errors are storage failures; 503 makes the provider redeliver.
		_ = c.Error(err)
		httpkit.Error(c, http.StatusServiceUnavailable, "storage unavailable, retry later", result)
		return
	}

	httpkit.OK(c, result)
}
