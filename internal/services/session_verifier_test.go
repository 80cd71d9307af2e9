package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pantrykit/pantry-api/internal/cache"
	"github.com/pantrykit/pantry-api/internal/services"
	"github.com/pantrykit/pantry-api/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountSessionVerifier(t *testing.T) {
	tm := jwt.NewTokenManager(testSecret, "pantry-api", time.Hour)
	raw, _, err := tm.GenerateToken("user-a", "cook@example.com")
	require.NoError(t, err)

	t.Run("live account", func(t *testing.T) {
		accounts := cache.NewAccountCache(func(ctx context.Context, id string) (bool, error) {
			return true, nil
		}, time.Minute)
		v := services.NewAccountSessionVerifier(tm, accounts)

		claims, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "user-a", claims.UserID)
		assert.False(t, claims.Invalid)
	})

	t.Run("deleted account", func(t *testing.T) {
		accounts := cache.NewAccountCache(func(ctx context.Context, id string) (bool, error) {
			return false, nil
		}, time.Minute)
		v := services.NewAccountSessionVerifier(tm, accounts)

		claims, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.True(t, claims.Invalid)
	})

	t.Run("lookup failure keeps session", func(t *testing.T) {
		accounts := cache.NewAccountCache(func(ctx context.Context, id string) (bool, error) {
			return false, errors.New("db down")
		}, time.Minute)
		v := services.NewAccountSessionVerifier(tm, accounts)

		claims, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.False(t, claims.Invalid)
	})

	t.Run("bad token", func(t *testing.T) {
		v := services.NewAccountSessionVerifier(tm, nil)
		_, err := v.Verify(context.Background(), "garbage")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
