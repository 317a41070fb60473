package service

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
)

// 新签发的令牌对：访问令牌 typ=access，刷新令牌 typ=refresh，主体均为签发用户名
func TestProperty_IssuedPairTypesAndSubject(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	svc, _ := NewTokenService(&TokenServiceConfig{
		Secret:        "property-secret",
		Issuer:        "qual",
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: time.Hour,
	})

	usernameGen := gen.AlphaString().Map(func(s string) string {
		if len(s) == 0 {
			return "user"
		}
		return s
	})

	properties.Property("类型与主体正确", prop.ForAll(
		func(username string) bool {
			data, err := svc.Issue(username, []string{"all"})
			if err != nil {
				return false
			}
			access, err := svc.Decode(data.AccessToken)
			if err != nil {
				return false
			}
			refresh, err := svc.Decode(data.RefreshToken)
			if err != nil {
				return false
			}
			return access.Type == TokenTypeAccess &&
				refresh.Type == TokenTypeRefresh &&
				access.Subject == username &&
				refresh.Subject == username
		},
		usernameGen,
	))

	properties.TestingRun(t)
}

// 不含 all 的令牌缺少所需权限时被拒绝，并枚举缺失项
func TestProperty_ScopeRejectionEnumeratesMissing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	svc, _ := NewTokenService(&TokenServiceConfig{Secret: "property-secret"})

	scopeGen := gen.IntRange(1, len(scope.Known)-1).Map(func(i int) scope.Scope { return scope.Known[i] })

	properties.Property("缺失项与集合差一致", prop.ForAll(
		func(granted []scope.Scope, required scope.Scope) bool {
			data, err := svc.Issue("u", scope.Strings(granted...))
			if err != nil {
				return false
			}
			_, err = svc.ValidateAccess(data.AccessToken, required)

			has := false
			for _, g := range granted {
				if g == required {
					has = true
				}
			}
			if has {
				return err == nil
			}
			scopeErr, ok := err.(*ScopeError)
			return ok && len(scopeErr.Missing) == 1 && scopeErr.Missing[0] == string(required)
		},
		gen.SliceOf(scopeGen),
		scopeGen,
	))

	properties.TestingRun(t)
}
