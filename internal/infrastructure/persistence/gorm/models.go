// Package gorm provides GORM model definitions and the relational store
// implementation for the costing engine.
package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// SupplierModel represents the GORM model for suppliers
type SupplierModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Slug         string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string    `gorm:"type:varchar(255);not null"`
	ContactName  string    `gorm:"type:varchar(255)"`
	ContactEmail string    `gorm:"type:varchar(255)"`
	ContactPhone string    `gorm:"type:varchar(50)"`
	Notes        string    `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relationships
	Ingredients []IngredientModel `gorm:"foreignKey:SupplierID"`
}

// TableName overrides the default table name
func (SupplierModel) TableName() string { return "suppliers" }

// IngredientModel represents the GORM model for purchasable ingredients
type IngredientModel struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey"`
	Slug           string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name           string     `gorm:"type:varchar(255);not null"`
	Category       string     `gorm:"type:varchar(100);index"`
	PurchaseUnit   string     `gorm:"type:varchar(50);not null"`
	PurchaseCost   int64      `gorm:"not null;check:purchase_cost >= 0"`
	IncludesVAT    bool       `gorm:"default:false"`
	ConversionRule string     `gorm:"type:varchar(255)"`
	SupplierID     *uuid.UUID `gorm:"type:char(36);index"`
	Notes          string     `gorm:"type:text"`
	LastPurchased  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Relationships
	Supplier *SupplierModel `gorm:"foreignKey:SupplierID"`
}

// TableName overrides the default table name
func (IngredientModel) TableName() string { return "ingredients" }

// RecipeModel represents the GORM model for costed recipes
type RecipeModel struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	Slug         string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string     `gorm:"type:varchar(255);not null"`
	Stage        string     `gorm:"type:varchar(20);default:'development';index"`
	Class        string     `gorm:"type:varchar(20);default:'menu_item';index"`
	Category     string     `gorm:"type:varchar(100);index"`
	SellPrice    int64      `gorm:"default:0"`
	IncludesVAT  bool       `gorm:"default:false"`
	TargetMargin int        `gorm:"default:0;check:target_margin >= 0 AND target_margin <= 100"`
	YieldAmount  string     `gorm:"type:varchar(50)"`
	YieldUnit    string     `gorm:"type:varchar(50)"`
	ParentID     *uuid.UUID `gorm:"type:char(36);index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relationships
	Parent *RecipeModel      `gorm:"foreignKey:ParentID"`
	Lines  []RecipeLineModel `gorm:"foreignKey:RecipeID"`
}

// TableName overrides the default table name
func (RecipeModel) TableName() string { return "recipes" }

// RecipeLineModel represents one line of a recipe. Exactly one of
// IngredientID and SubRecipeID is set.
type RecipeLineModel struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RecipeID     uuid.UUID  `gorm:"type:char(36);not null;index"`
	IngredientID *uuid.UUID `gorm:"type:char(36);index"`
	SubRecipeID  *uuid.UUID `gorm:"type:char(36);index"`
	Unit         string     `gorm:"type:varchar(50);not null"`
	Notes        string     `gorm:"type:text"`

	// Relationships
	Ingredient *IngredientModel `gorm:"foreignKey:IngredientID"`
	SubRecipe  *RecipeModel     `gorm:"foreignKey:SubRecipeID"`
}

// TableName overrides the default table name
func (RecipeLineModel) TableName() string { return "recipe_lines" }

// BeforeCreate assigns an ID when none was set
func (m *SupplierModel) BeforeCreate(tx *gormlib.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an ID when none was set
func (m *IngredientModel) BeforeCreate(tx *gormlib.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an ID when none was set
func (m *RecipeModel) BeforeCreate(tx *gormlib.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an ID when none was set
func (m *RecipeLineModel) BeforeCreate(tx *gormlib.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
