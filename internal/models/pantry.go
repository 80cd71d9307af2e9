package models

import "time"

// Meal slots accepted by meal plans
var MealSlots = []string{"breakfast", "lunch", "dinner", "snack"}

// Ingredient is an item in a user's pantry
type Ingredient struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Name      string     `json:"name"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit"`
	Category  string     `json:"category"`
	ExpiresOn *time.Time `json:"expiresOn,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// IngredientRequest creates or replaces an ingredient
type IngredientRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=120"`
	Quantity  float64 `json:"quantity" binding:"gte=0"`
	Unit      string  `json:"unit" binding:"max=32"`
	Category  string  `json:"category" binding:"max=64"`
	ExpiresOn string  `json:"expiresOn" binding:"omitempty,datetime=2006-01-02"`
}

// SavedRecipe is a recipe bookmarked by a user
type SavedRecipe struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	Ingredients  []string  `json:"ingredients"`
	Instructions string    `json:"instructions,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SaveRecipeRequest bookmarks a recipe
type SaveRecipeRequest struct {
	Title        string   `json:"title" binding:"required,min=1,max=200"`
	SourceURL    string   `json:"sourceUrl" binding:"omitempty,url,max=2048"`
	Ingredients  []string `json:"ingredients" binding:"max=200,dive,max=200"`
	Instructions string   `json:"instructions" binding:"max=20000"`
}

// MealPlan schedules a meal on a day
type MealPlan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Date      time.Time `json:"date"`
	Meal      string    `json:"meal"`
	RecipeID  *string   `json:"recipeId,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MealPlanRequest adds a meal to the plan
type MealPlanRequest struct {
	Date     string `json:"date" binding:"required,datetime=2006-01-02"`
	Meal     string `json:"meal" binding:"required,oneof=breakfast lunch dinner snack"`
	RecipeID string `json:"recipeId" binding:"omitempty,uuid"`
	Notes    string `json:"notes" binding:"max=1000"`
}

// ReceiptLine is a purchased item read from a receipt
type ReceiptLine struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// ReceiptScan is a stored receipt photo and the items parsed from it
type ReceiptScan struct {
	ID        string        `json:"id"`
	UserID    string        `json:"-"`
	ImageURL  string        `json:"imageUrl"`
	RawText   string        `json:"rawText"`
	Lines     []ReceiptLine `json:"lines"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReceiptScanRequest uploads a receipt photo
type ReceiptScanRequest struct {
	Image       string `json:"image" binding:"required"`
	ContentType string `json:"contentType" binding:"omitempty,max=64"`
	// AddToPantry stores every recognised line as an ingredient
	AddToPantry bool `json:"addToPantry"`
}

// DataResponse wraps successful payloads
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}
