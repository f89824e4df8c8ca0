package dto

import "github.com/shopspring/decimal"

type MenuItemRequest struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
	Available   *bool           `json:"available,omitempty"`
}

type AvailabilityRequest struct {
	Available bool `json:"available"`
}

type Settings struct {
	Name          string  `json:"name"`
	TaxPercentage float64 `json:"tax_percentage"`
	Timezone      string  `json:"timezone"`
	Tables        int     `json:"tables"`
}
