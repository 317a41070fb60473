package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	h := NewStaticHandler(&StaticConfig{
		Root: fstest.MapFS{
			"index.html":      {Data: []byte("<html>index</html>")},
			"assets/app.js":   {Data: []byte("console.log(1)")},
			"docs/index.html": {Data: []byte("<html>docs</html>")},
		},
		APIPrefix: []string{"/api/", "/health"},
	})
	r := gin.New()
	r.GET("/api/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	h.SetupRoutes(r)
	return r
}

func get(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestSPAHandler(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
		wantBody string
	}{
		{"api route untouched", http.MethodGet, "/api/ping", http.StatusOK, "pong"},
		{"static file", http.MethodGet, "/assets/app.js", http.StatusOK, "console.log(1)"},
		{"root", http.MethodGet, "/", http.StatusOK, "<html>index</html>"},
		{"directory index", http.MethodGet, "/docs/", http.StatusOK, "<html>docs</html>"},
		{"spa route", http.MethodGet, "/dashboard/users", http.StatusOK, "<html>index</html>"},
		{"unknown api", http.MethodGet, "/api/nope", http.StatusNotFound, `{"detail":"接口不存在"}`},
		{"health prefix", http.MethodGet, "/health/x", http.StatusNotFound, `{"detail":"接口不存在"}`},
		{"missing asset", http.MethodGet, "/assets/missing.js", http.StatusNotFound, `{"detail":"Not Found"}`},
		{"post", http.MethodPost, "/dashboard", http.StatusNotFound, `{"detail":"接口不存在"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.method, tt.target)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestIsAPIPath(t *testing.T) {
	h := NewStaticHandler(&StaticConfig{Root: fstest.MapFS{}, APIPrefix: []string{"", "/api"}})
	assert.True(t, h.IsAPIPath("/api"))
	assert.True(t, h.IsAPIPath("/api/user"))
	assert.False(t, h.IsAPIPath("/apis"))
	assert.False(t, h.IsAPIPath("/"))
}

func TestNoIndexFile(t *testing.T) {
	h := NewStaticHandler(&StaticConfig{Root: fstest.MapFS{}})
	r := gin.New()
	h.SetupRoutes(r)

	w := get(r, http.MethodGet, "/dashboard")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
