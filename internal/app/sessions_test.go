package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessions(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessions()

	t.Run("unknown token is anonymous", func(t *testing.T) {
		p, err := sessions.Lookup(ctx, "sess-mzrn-deadbeef")
		require.NoError(t, err)
		assert.Equal(t, KindAnonymous, p.Kind)
	})

	t.Run("bind and lookup student", func(t *testing.T) {
		token, err := sessions.Bind(ctx, StudentPrincipal(42))
		require.NoError(t, err)
		assert.Contains(t, token, tokenPrefix)

		p, err := sessions.Lookup(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, KindStudent, p.Kind)
		assert.Equal(t, int64(42), p.StudentID)
	})

	t.Run("bind and lookup admin", func(t *testing.T) {
		token, err := sessions.Bind(ctx, AdminPrincipal())
		require.NoError(t, err)

		p, err := sessions.Lookup(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, KindAdmin, p.Kind)
	})

	t.Run("clear unbinds", func(t *testing.T) {
		token, err := sessions.Bind(ctx, StudentPrincipal(7))
		require.NoError(t, err)

		require.NoError(t, sessions.Clear(ctx, token))

		p, err := sessions.Lookup(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, KindAnonymous, p.Kind)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		a, err := sessions.Bind(ctx, StudentPrincipal(1))
		require.NoError(t, err)
		b, err := sessions.Bind(ctx, StudentPrincipal(1))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}
