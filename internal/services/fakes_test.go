package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/mailer"
	"github.com/stretchr/testify/mock"
)

func init() {
	_ = logger.Initialize(logger.Config{Level: "debug", Environment: "development"})
}

// fakeTokenStore keeps login tokens in memory with the same conditional
// update rules as the database
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens []*models.LoginToken
	seq    int
	// failCreate makes Create return an error
	failCreate error
}

func (f *fakeTokenStore) Create(_ context.Context, t *models.LoginToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.seq++
	t.ID = fmt.Sprintf("tok-%d", f.seq)
	t.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	cp := *t
	f.tokens = append(f.tokens, &cp)
	return nil
}

func (f *fakeTokenStore) GetByRequestID(_ context.Context, requestID string) (*models.LoginToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.tokens) - 1; i >= 0; i-- {
		if f.tokens[i].RequestID == requestID {
			cp := *f.tokens[i]
			return &cp, nil
		}
	}
	return nil, apperrors.NotFoundError("login token")
}

func (f *fakeTokenStore) GetByToken(_ context.Context, value string) (*models.LoginToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t := f.find(value); t != nil {
		cp := *t
		return &cp, nil
	}
	return nil, apperrors.NotFoundError("login token")
}

func (f *fakeTokenStore) MarkUsed(_ context.Context, value string, now time.Time) (*models.LoginToken, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.find(value)
	if t == nil || t.UsedAt != nil || !now.Before(t.ExpiresAt) {
		return nil, false, nil
	}
	at := now
	t.UsedAt = &at
	cp := *t
	return &cp, true, nil
}

func (f *fakeTokenStore) MarkExchanged(_ context.Context, value string, now time.Time) (*models.LoginToken, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.find(value)
	if t == nil || t.UsedAt == nil || t.ExchangedAt != nil || !now.Before(t.ExpiresAt) {
		return nil, false, nil
	}
	at := now
	t.ExchangedAt = &at
	cp := *t
	return &cp, true, nil
}

func (f *fakeTokenStore) SetUserID(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.ID == id {
			uid := userID
			t.UserID = &uid
			return nil
		}
	}
	return apperrors.NotFoundError("login token")
}

func (f *fakeTokenStore) find(value string) *models.LoginToken {
	for _, t := range f.tokens {
		if t.Token == value {
			return t
		}
	}
	return nil
}

func (f *fakeTokenStore) last() *models.LoginToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return nil
	}
	cp := *f.tokens[len(f.tokens)-1]
	return &cp
}

// fakeUserStore keeps accounts in memory keyed by id
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperrors.NotFoundError("user")
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFoundError("user")
}

func (f *fakeUserStore) Create(_ context.Context, email string, verifiedAt *time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	u := &models.User{ID: fmt.Sprintf("user-%d", f.seq), Email: email, EmailVerifiedAt: verifiedAt}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, id string, at time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFoundError("user")
	}
	u.EmailVerifiedAt = &at
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdateName(_ context.Context, id, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFoundError("user")
	}
	u.Name = name
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperrors.NotFoundError("user")
	}
	delete(f.users, id)
	return nil
}

// MockMailer records sent links
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendMagicLink(ctx context.Context, msg mailer.MagicLinkMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMailer) Provider() string {
	return "mock"
}

// MockCaptcha is a testify mock for captcha verification
type MockCaptcha struct {
	mock.Mock
}

func (m *MockCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	args := m.Called(ctx, token, remoteIP)
	return args.Error(0)
}

// MockImageStore is a testify mock for object storage
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockExtractor is a testify mock for OCR
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	args := m.Called(ctx, image, contentType)
	return args.String(0), args.Error(1)
}

// MockReceiptStore is a testify mock for receipt persistence
type MockReceiptStore struct {
	mock.Mock
}

func (m *MockReceiptStore) Create(ctx context.Context, scan *models.ReceiptScan) (*models.ReceiptScan, error) {
	args := m.Called(ctx, scan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReceiptScan), args.Error(1)
}

func (m *MockReceiptStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ReceiptScan, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReceiptScan), args.Error(1)
}

// MockIngredientStore is a testify mock for pantry persistence
type MockIngredientStore struct {
	mock.Mock
}

func (m *MockIngredientStore) ListByUser(ctx context.Context, userID string) ([]*models.Ingredient, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ingredient), args.Error(1)
}

func (m *MockIngredientStore) Create(ctx context.Context, ing *models.Ingredient) (*models.Ingredient, error) {
	args := m.Called(ctx, ing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ingredient), args.Error(1)
}

func (m *MockIngredientStore) CreateMany(ctx context.Context, ingredients []*models.Ingredient) error {
	args := m.Called(ctx, ingredients)
	return args.Error(0)
}

func (m *MockIngredientStore) Update(ctx context.Context, ing *models.Ingredient) (*models.Ingredient, error) {
	args := m.Called(ctx, ing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ingredient), args.Error(1)
}

func (m *MockIngredientStore) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockRecipeStore is a testify mock for saved recipes
type MockRecipeStore struct {
	mock.Mock
}

func (m *MockRecipeStore) ListByUser(ctx context.Context, userID string) ([]*models.SavedRecipe, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SavedRecipe), args.Error(1)
}

func (m *MockRecipeStore) GetByID(ctx context.Context, userID, id string) (*models.SavedRecipe, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavedRecipe), args.Error(1)
}

func (m *MockRecipeStore) Create(ctx context.Context, recipe *models.SavedRecipe) (*models.SavedRecipe, error) {
	args := m.Called(ctx, recipe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavedRecipe), args.Error(1)
}

func (m *MockRecipeStore) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockMealPlanStore is a testify mock for meal plans
type MockMealPlanStore struct {
	mock.Mock
}

func (m *MockMealPlanStore) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlan, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MealPlan), args.Error(1)
}

func (m *MockMealPlanStore) Create(ctx context.Context, plan *models.MealPlan) (*models.MealPlan, error) {
	args := m.Called(ctx, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MealPlan), args.Error(1)
}

func (m *MockMealPlanStore) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}
