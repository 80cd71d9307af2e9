package services

import (
	"context"
	"time"

	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/pkg/jwt"
)

// LoginTokenStore persists magic link tokens
type LoginTokenStore interface {
	Create(ctx context.Context, token *models.LoginToken) error
	GetByRequestID(ctx context.Context, requestID string) (*models.LoginToken, error)
	GetByToken(ctx context.Context, value string) (*models.LoginToken, error)
	MarkUsed(ctx context.Context, value string, now time.Time) (*models.LoginToken, bool, error)
	MarkExchanged(ctx context.Context, value string, now time.Time) (*models.LoginToken, bool, error)
	SetUserID(ctx context.Context, id, userID string) error
}

// UserStore persists accounts
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email string, verifiedAt *time.Time) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// IngredientStore persists pantry inventory
type IngredientStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Ingredient, error)
	Create(ctx context.Context, ing *models.Ingredient) (*models.Ingredient, error)
	CreateMany(ctx context.Context, ingredients []*models.Ingredient) error
	Update(ctx context.Context, ing *models.Ingredient) (*models.Ingredient, error)
	Delete(ctx context.Context, userID, id string) error
}

// SavedRecipeStore persists bookmarked recipes
type SavedRecipeStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.SavedRecipe, error)
	GetByID(ctx context.Context, userID, id string) (*models.SavedRecipe, error)
	Create(ctx context.Context, recipe *models.SavedRecipe) (*models.SavedRecipe, error)
	Delete(ctx context.Context, userID, id string) error
}

// MealPlanStore persists planned meals
type MealPlanStore interface {
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlan, error)
	Create(ctx context.Context, plan *models.MealPlan) (*models.MealPlan, error)
	Delete(ctx context.Context, userID, id string) error
}

// ReceiptScanStore persists receipt scans
type ReceiptScanStore interface {
	Create(ctx context.Context, scan *models.ReceiptScan) (*models.ReceiptScan, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.ReceiptScan, error)
}

// ImageStore keeps uploaded images
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// TextExtractor reads text off an image
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, contentType string) (string, error)
}

// CaptchaVerifier checks a captcha token
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// SessionIssuer signs session tokens
type SessionIssuer interface {
	GenerateToken(userID, email string) (string, *jwt.SessionClaims, error)
}

// MagicLinkServiceInterface defines the passwordless sign-in flow
type MagicLinkServiceInterface interface {
	RequestLink(ctx context.Context, in RequestLinkInput) (*models.RequestLinkResponse, error)
	Poll(ctx context.Context, requestID string) (*models.PollResponse, error)
	Consume(ctx context.Context, token string) (*SessionResult, error)
	Exchange(ctx context.Context, token string) (*SessionResult, error)
}

// UserServiceInterface defines account operations for the signed-in user
type UserServiceInterface interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdateName(ctx context.Context, userID, name string) (*models.User, error)
	Delete(ctx context.Context, userID string) error
}

// InventoryServiceInterface defines pantry inventory operations
type InventoryServiceInterface interface {
	List(ctx context.Context, userID string) ([]*models.Ingredient, error)
	Add(ctx context.Context, userID string, req *models.IngredientRequest) (*models.Ingredient, error)
	Update(ctx context.Context, userID, id string, req *models.IngredientRequest) (*models.Ingredient, error)
	Remove(ctx context.Context, userID, id string) error
}

// RecipeServiceInterface defines saved recipe operations
type RecipeServiceInterface interface {
	List(ctx context.Context, userID string) ([]*models.SavedRecipe, error)
	Save(ctx context.Context, userID string, req *models.SaveRecipeRequest) (*models.SavedRecipe, error)
	Remove(ctx context.Context, userID, id string) error
}

// MealPlanServiceInterface defines meal planning operations
type MealPlanServiceInterface interface {
	List(ctx context.Context, userID, from, to string) ([]*models.MealPlan, error)
	Add(ctx context.Context, userID string, req *models.MealPlanRequest) (*models.MealPlan, error)
	Remove(ctx context.Context, userID, id string) error
}

// ReceiptServiceInterface defines receipt scanning operations
type ReceiptServiceInterface interface {
	Scan(ctx context.Context, userID string, req *models.ReceiptScanRequest) (*models.ReceiptScan, error)
	List(ctx context.Context, userID string) ([]*models.ReceiptScan, error)
}
