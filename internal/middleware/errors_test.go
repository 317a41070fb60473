package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/internal/sso"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"不存在", repository.ErrUserNotFound, http.StatusNotFound},
		{"包装后的不存在", fmt.Errorf("查询: %w", repository.ErrDictionaryNotFound), http.StatusNotFound},
		{"用户名重复", service.ErrUserExists, http.StatusConflict},
		{"部门成环", service.ErrDepartmentCycle, http.StatusConflict},
		{"账户类型不符", fmt.Errorf("%w: xysso", service.ErrAccountTypeMismatch), http.StatusConflict},
		{"密码未变化", service.ErrPasswordUnchanged, http.StatusConflict},
		{"凭据错误", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"原密码错误", service.ErrPasswordIncorrect, http.StatusUnauthorized},
		{"参数校验", service.ErrPasswordTooShort, http.StatusUnprocessableEntity},
		{"未知权限范围", fmt.Errorf("%w: bogus", scope.ErrUnknownScope), http.StatusBadRequest},
		{"单点登录业务错误", &sso.ProviderError{Code: 1, Msg: "invalid code"}, http.StatusBadRequest},
		{"单点登录未配置", sso.ErrNotConfigured, http.StatusInternalServerError},
		{"缺少权限范围", &service.ScopeError{Missing: []string{"user:read"}}, http.StatusUnauthorized},
		{"已是 HTTPError", response.TooManyRequests(""), http.StatusTooManyRequests},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapError(tt.err).Status)
		})
	}
}

func TestMapError_Details(t *testing.T) {
	he := MapError(&sso.ProviderError{Code: 40029, Msg: "invalid code"})
	assert.Equal(t, "invalid code", he.Detail)

	he = MapError(&service.ScopeError{Missing: []string{"user:read", "dict:write"}})
	assert.Equal(t, `Bearer scope="user:read dict:write"`, he.Header["WWW-Authenticate"])

	he = MapError(service.ErrInvalidCredentials)
	assert.Equal(t, "Bearer", he.Header["WWW-Authenticate"])

	he = MapError(errors.New("数据库连接断开"))
	assert.NotContains(t, he.Detail, "数据库")
}

func TestErrorHandler(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/missing", func(c *gin.Context) {
		_ = c.Error(repository.ErrRoleNotFound)
	})
	router.GET("/written", func(c *gin.Context) {
		_ = c.Error(errors.New("已经写出响应"))
		c.String(http.StatusAccepted, "done")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"角色不存在"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "done", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
