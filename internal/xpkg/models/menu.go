package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultMenuImage = "https://images.unsplash.com/photo-1546069901-ba9599a7e63c?w=400"

// Categories are the menu categories offered in the admin form.
var Categories = []string{"Veg", "Non-Veg", "Drinks", "Snacks"}

type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description,omitempty"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (m MenuItem) Key() int64 { return m.ID }

type MenuItemDraft struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Image       string
	Description string
	Available   bool
}
