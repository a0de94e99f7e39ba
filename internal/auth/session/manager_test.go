package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/parcella/internal/config"
	"github.com/stretchr/testify/assert"
)

func newContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestReadTokenFromCookieOrBearer(t *testing.T) {
	m := NewManager(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-token"})
	c, _ := newContext(req)
	token, ok := m.ReadToken(c)
	assert.True(t, ok)
	assert.Equal(t, "cookie-token", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	c, _ = newContext(req)
	token, ok = m.ReadToken(c)
	assert.True(t, ok)
	assert.Equal(t, "header-token", token)

	c, _ = newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	_, ok = m.ReadToken(c)
	assert.False(t, ok)
}

func TestSetWritesHTTPOnlyCookie(t *testing.T) {
	m := NewManager(config.Config{AuthCookieSecure: true})
	c, w := newContext(httptest.NewRequest(http.MethodPost, "/", nil))

	m.Set(c, "tok", time.Now().Add(time.Hour))

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, DefaultCookieName+"=tok")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "Secure")
}
