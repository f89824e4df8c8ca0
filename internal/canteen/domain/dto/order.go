package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

type CheckoutRequest struct {
	TableNumber   int        `json:"table_number"`
	PaymentMethod string     `json:"payment_method"`
	Items         []CartItem `json:"items"`
	Note          string     `json:"note,omitempty"`
}

type CheckoutResponse struct {
	OrderID       int64           `json:"order_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

// AdvanceRequest carries the status the kitchen saw when the button was
// pressed. An empty From means the replica's current status.
type AdvanceRequest struct {
	From string `json:"from,omitempty"`
}

// OrderEvent is published to the notifications exchange on every status
// change.
type OrderEvent struct {
	OrderID     int64     `json:"order_id"`
	TableNumber int       `json:"table_number"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}
