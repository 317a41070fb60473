package password

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastContext(t *testing.T) *Context {
	ctx, err := NewContext(Bcrypt(bcrypt.MinCost), Argon2id())
	require.NoError(t, err)
	return ctx
}

// 任意明文：verify(p, hash(p)) 为真；p1 != p2 时 verify(p1, hash(p2)) 为假
func TestProperty_HashVerify(t *testing.T) {
	pwd := fastContext(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	plainGen := gen.AlphaString().Map(func(s string) string {
		if len(s) > 64 {
			return s[:64]
		}
		return s
	})

	properties.Property("哈希后可以校验通过", prop.ForAll(
		func(p string) bool {
			h, err := pwd.Hash(p)
			if err != nil {
				return false
			}
			return pwd.Verify(p, h)
		},
		plainGen,
	))

	properties.Property("不同明文校验失败", prop.ForAll(
		func(p1, p2 string) bool {
			if p1 == p2 {
				return true
			}
			h, err := pwd.Hash(p2)
			if err != nil {
				return false
			}
			return !pwd.Verify(p1, h)
		},
		plainGen,
		plainGen,
	))

	properties.TestingRun(t)
}

func TestVerify_MalformedHash(t *testing.T) {
	pwd := fastContext(t)

	assert.False(t, pwd.Verify("secret", ""))
	assert.False(t, pwd.Verify("secret", "not-a-hash"))
	assert.False(t, pwd.Verify("secret", "$2b$broken"))
	assert.False(t, pwd.Verify("secret", "$argon2id$v=19$m=1,t=1$bad"))
}

func TestArgon2id_RoundTrip(t *testing.T) {
	s := Argon2id()
	h, err := s.Hash("secret1")
	require.NoError(t, err)

	assert.True(t, s.Identify(h))
	assert.True(t, s.Verify("secret1", h))
	assert.False(t, s.Verify("secret2", h))
	assert.False(t, s.NeedsUpdate(h))
}

func TestNeedsUpdate(t *testing.T) {
	pwd := fastContext(t)

	current, err := pwd.Hash("secret1")
	require.NoError(t, err)
	assert.False(t, pwd.NeedsUpdate(current))

	// argon2id 已弃用，需要迁移，但仍然可以校验
	legacy, err := Argon2id().Hash("secret1")
	require.NoError(t, err)
	assert.True(t, pwd.Verify("secret1", legacy))
	assert.True(t, pwd.NeedsUpdate(legacy))

	// cost 变化也需要迁移
	strong, err := Bcrypt(bcrypt.MinCost + 1).Hash("secret1")
	require.NoError(t, err)
	assert.True(t, pwd.NeedsUpdate(strong))

	assert.True(t, pwd.NeedsUpdate("garbage"))
}

func TestIdentify(t *testing.T) {
	pwd := fastContext(t)

	h, err := pwd.Hash("x")
	require.NoError(t, err)
	name, err := pwd.Identify(h)
	require.NoError(t, err)
	assert.Equal(t, SchemeBcrypt, name)
	assert.Equal(t, SchemeBcrypt, pwd.Active())

	_, err = pwd.Identify("plain")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestNewContext_Empty(t *testing.T) {
	_, err := NewContext()
	assert.ErrorIs(t, err, ErrNoScheme)
}
