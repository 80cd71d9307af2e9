//go:build integration

package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("pantry"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		panic(err)
	}
	if err := db.RunMigrations(db.PoolConfig{URL: connStr}, "file://"+migrationsDir); err != nil {
		panic(err)
	}

	testPool, err = db.NewPool(ctx, db.PoolConfig{URL: connStr, MaxConns: 10})
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testPool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newToken(t *testing.T, value, requestID string, expiresAt time.Time) *models.LoginToken {
	t.Helper()
	token := &models.LoginToken{
		Token:     value,
		Email:     "cook+" + value + "@example.com",
		RequestID: requestID,
		Purpose:   models.PurposeLogin,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, NewLoginTokenRepository(testPool).Create(context.Background(), token))
	return token
}

func TestLoginTokenRepository_GetByRequestIDReturnsNewest(t *testing.T) {
	repo := NewLoginTokenRepository(testPool)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	newToken(t, "plt_first", "req-newest", future)
	time.Sleep(5 * time.Millisecond)
	newToken(t, "plt_second", "req-newest", future)

	got, err := repo.GetByRequestID(ctx, "req-newest")
	require.NoError(t, err)
	assert.Equal(t, "plt_second", got.Token)

	_, err = repo.GetByRequestID(ctx, "req-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoginTokenRepository_MarkUsedIsSingleUse(t *testing.T) {
	repo := NewLoginTokenRepository(testPool)
	ctx := context.Background()
	newToken(t, "plt_race", "req-race", time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.MarkUsed(ctx, "plt_race", time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestLoginTokenRepository_MarkUsedRejectsExpired(t *testing.T) {
	repo := NewLoginTokenRepository(testPool)
	newToken(t, "plt_expired", "req-expired", time.Now().Add(-time.Minute))

	_, ok, err := repo.MarkUsed(context.Background(), "plt_expired", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginTokenRepository_MarkExchangedRequiresConsumption(t *testing.T) {
	repo := NewLoginTokenRepository(testPool)
	ctx := context.Background()
	newToken(t, "plt_exchange", "req-exchange", time.Now().Add(time.Hour))

	_, ok, err := repo.MarkExchanged(ctx, "plt_exchange", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.MarkUsed(ctx, "plt_exchange", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	exchanged, ok, err := repo.MarkExchanged(ctx, "plt_exchange", time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, exchanged.ExchangedAt)

	_, ok, err = repo.MarkExchanged(ctx, "plt_exchange", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginTokenRepository_DeleteStale(t *testing.T) {
	repo := NewLoginTokenRepository(testPool)
	ctx := context.Background()
	newToken(t, "plt_stale", "req-stale", time.Now().Add(-48*time.Hour))
	newToken(t, "plt_live", "req-live", time.Now().Add(time.Hour))

	removed, err := repo.DeleteStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	_, err = repo.GetByToken(ctx, "plt_stale")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.GetByToken(ctx, "plt_live")
	assert.NoError(t, err)
}

func TestUserRepository_CreateIsIdempotent(t *testing.T) {
	repo := NewUserRepository(testPool)
	ctx := context.Background()
	verified := time.Now().UTC()

	first, err := repo.Create(ctx, "twice@example.com", nil)
	require.NoError(t, err)
	assert.Nil(t, first.EmailVerifiedAt)

	second, err := repo.Create(ctx, "twice@example.com", &verified)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotNil(t, second.EmailVerifiedAt)

	exists, err := repo.Exists(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, first.ID))
	exists, err = repo.Exists(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPantryRepositories(t *testing.T) {
	ctx := context.Background()
	user, err := NewUserRepository(testPool).Create(ctx, "pantry@example.com", nil)
	require.NoError(t, err)

	ingredients := NewIngredientRepository(testPool)
	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	milk, err := ingredients.Create(ctx, &models.Ingredient{UserID: user.ID, Name: "Milk", Quantity: 1, Unit: "l", ExpiresOn: &expires})
	require.NoError(t, err)
	require.NoError(t, ingredients.CreateMany(ctx, []*models.Ingredient{
		{UserID: user.ID, Name: "Eggs", Quantity: 12},
		{UserID: user.ID, Name: "Flour", Quantity: 1, Unit: "kg"},
	}))

	list, err := ingredients.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, milk.ID, list[0].ID)

	err = ingredients.Delete(ctx, "00000000-0000-0000-0000-000000000000", milk.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	recipes := NewSavedRecipeRepository(testPool)
	recipe, err := recipes.Create(ctx, &models.SavedRecipe{UserID: user.ID, Title: "Pancakes", Slug: "pancakes", Ingredients: []string{"milk", "eggs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"milk", "eggs"}, recipe.Ingredients)

	_, err = recipes.Create(ctx, &models.SavedRecipe{UserID: user.ID, Title: "Pancakes", Slug: "pancakes"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	plans := NewMealPlanRepository(testPool)
	day := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err = plans.Create(ctx, &models.MealPlan{UserID: user.ID, Date: day, Meal: "breakfast", RecipeID: &recipe.ID})
	require.NoError(t, err)

	planned, err := plans.ListRange(ctx, user.ID, day, day)
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, recipe.ID, *planned[0].RecipeID)

	receipts := NewReceiptRepository(testPool)
	scan, err := receipts.Create(ctx, &models.ReceiptScan{
		UserID:  user.ID,
		RawText: "Milk 1.99",
		Lines:   []models.ReceiptLine{{Name: "Milk", Quantity: 1, Price: 1.99}},
	})
	require.NoError(t, err)
	assert.Len(t, scan.Lines, 1)
}
