package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "bounded", timeout: time.Second, wantDeadline: true},
		{name: "disabled", timeout: 0, wantDeadline: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			var hasDeadline bool
			r.Use(RequestTimeout(tt.timeout))
			r.GET("/", func(c *gin.Context) {
				_, hasDeadline = c.Request.Context().Deadline()
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if hasDeadline != tt.wantDeadline {
				t.Fatalf("expected deadline=%v, got %v", tt.wantDeadline, hasDeadline)
			}
		})
	}
}
