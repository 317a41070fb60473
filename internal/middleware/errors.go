package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/logger"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/internal/sso"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
	"go.uber.org/zap"
)

var (
	notFoundErrors = []error{
		repository.ErrUserNotFound,
		repository.ErrDepartmentNotFound,
		repository.ErrRoleNotFound,
		repository.ErrPermissionNotFound,
		repository.ErrActionNotFound,
		repository.ErrMenuNotFound,
		repository.ErrDictionaryNotFound,
		repository.ErrDictionaryValueNotFound,
	}
	conflictErrors = []error{
		service.ErrUserExists,
		repository.ErrUserUsernameExists,
		repository.ErrDepartmentKeyExists,
		repository.ErrDepartmentHasChildren,
		service.ErrDepartmentCycle,
		repository.ErrRoleKeyExists,
		repository.ErrPermissionKeyExists,
		repository.ErrDictionaryKeyExists,
		repository.ErrDictionaryNameExists,
		service.ErrPasswordUnchanged,
		service.ErrPasswordNotLocal,
		service.ErrAccountTypeMismatch,
	}
	unauthorizedErrors = []error{
		service.ErrInvalidCredentials,
		service.ErrPasswordIncorrect,
		service.ErrAccountDisabled,
		service.ErrAccountInvalid,
		service.ErrInvalidToken,
		service.ErrTokenExpired,
		service.ErrWrongTokenType,
	}
	invalidErrors = []error{
		service.ErrUsernameEmpty,
		service.ErrUsernameInvalid,
		service.ErrUsernameTooShort,
		service.ErrMailInvalid,
		service.ErrPasswordEmpty,
		service.ErrPasswordTooShort,
		service.ErrDepartmentKeyEmpty,
		service.ErrDepartmentNameEmpty,
		service.ErrRoleKeyEmpty,
		service.ErrRoleNameEmpty,
		service.ErrDataScopeInvalid,
		service.ErrPermissionKeyEmpty,
		service.ErrPermissionNameEmpty,
		service.ErrActionInvalid,
		service.ErrActionMethodInvalid,
		service.ErrMenuNameEmpty,
		service.ErrDictionaryKeyEmpty,
		service.ErrDictionaryNameEmpty,
		service.ErrValueTypeInvalid,
		service.ErrDictionaryValueSchema,
	}
	badRequestErrors = []error{
		scope.ErrUnknownScope,
		service.ErrSSOUsernameEmpty,
		sso.ErrBadResponse,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MapError 将业务错误转换为 HTTPError，无法识别的错误视为 500
func MapError(err error) *response.HTTPError {
	var (
		he          *response.HTTPError
		scopeErr    *service.ScopeError
		providerErr *sso.ProviderError
	)
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &scopeErr):
		return response.Unauthorized(scopeErr.Error(), scopeErr.Missing...)
	case errors.As(err, &providerErr):
		return response.BadRequest(providerErr.Msg)
	case errors.Is(err, sso.ErrNotConfigured):
		return response.ServerConfig(err.Error())
	case isAny(err, notFoundErrors):
		return response.NotFound(err.Error())
	case isAny(err, conflictErrors):
		return response.Conflict(err.Error())
	case isAny(err, unauthorizedErrors):
		return response.Unauthorized(err.Error())
	case isAny(err, invalidErrors):
		return response.Unprocessable(err.Error())
	case isAny(err, badRequestErrors):
		return response.BadRequest(err.Error())
	}
	return response.AsHTTPError(err)
}

// ErrorHandler 处理器通过 c.Error 登记错误后，由此写出 {"detail": ...}
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		he := MapError(err)
		if he.Status >= http.StatusInternalServerError {
			requestID, _ := c.Get(ContextRequestID)
			logger.L().Error("请求处理失败",
				zap.Any("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		response.Error(c, he)
	}
}
