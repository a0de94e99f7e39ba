package errorreport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledReporterIsNoop(t *testing.T) {
	r, err := New(nil, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, r.Enabled())
	assert.NotPanics(t, func() {
		r.CaptureError(context.Background(), errors.New("boom"), map[string]string{"k": "v"})
	})
}

func TestGinRecoveryAnswersInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := New(nil, Config{}, zap.NewNop())
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(r.GinRecovery())
	engine.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}
