package service

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// 注册后的账户只能用注册时的密码登录
func TestProperty_RegisterThenLogin(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	usernameGen := gen.Identifier().Map(func(s string) string {
		if len(s) < 3 {
			return "usr" + s
		}
		if len(s) > 20 {
			return s[:20]
		}
		return s
	})
	passwordGen := gen.AlphaString().Map(func(s string) string {
		if len(s) > 40 {
			s = s[:40]
		}
		return "pw-" + s + "!"
	})

	properties.Property("正确密码登录成功，错误密码失败", prop.ForAll(
		func(username, plain string) bool {
			ctx := context.Background()
			repo := newMockUserRepository()
			passwords := newTestPasswords(t)
			tokens := newTestTokenService(t)
			users := NewUserService(repo, nil, nil, nil, passwords)
			auth := NewAuthService(repo, tokens, passwords, nil, nil)

			if _, err := users.Register(ctx, &RegisterInput{Username: username, Password: plain}); err != nil {
				return false
			}
			data, _, err := auth.PasswordLogin(ctx, username, plain, nil)
			if err != nil || data.AccessToken == "" {
				return false
			}
			_, _, err = auth.PasswordLogin(ctx, username, plain+"x", nil)
			return errors.Is(err, ErrInvalidCredentials)
		},
		usernameGen,
		passwordGen,
	))

	properties.Property("重复注册总是冲突", prop.ForAll(
		func(username string) bool {
			ctx := context.Background()
			users := NewUserService(newMockUserRepository(), nil, nil, nil, newTestPasswords(t))
			if _, err := users.Register(ctx, &RegisterInput{Username: username, Password: "secret1"}); err != nil {
				return false
			}
			_, err := users.Register(ctx, &RegisterInput{Username: username, Password: "secret2"})
			return errors.Is(err, ErrUserExists)
		},
		usernameGen,
	))

	properties.TestingRun(t)
}
