// Package projection derives the read-only views each surface renders from
// the shared order and menu collections. Every function tolerates a nil
// collection and returns an empty, non-nil result for it.
package projection

import (
	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/xpkg/models"
)

// kitchenColumns are the board columns in display order.
var kitchenColumns = []models.Status{
	models.StatusPending,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusCompleted,
}

type Card struct {
	Order      models.Order   `json:"order"`
	View       lifecycle.View `json:"view"`
	Action     string         `json:"action,omitempty"`
	NextStatus models.Status  `json:"next_status,omitempty"`
}

type Column struct {
	Status models.Status `json:"status"`
	Title  string        `json:"title"`
	Count  int           `json:"count"`
	Cards  []Card        `json:"cards"`
}

type Board struct {
	Columns []Column `json:"columns"`
}

// Column returns the column for s, or false for statuses not on the board.
func (b Board) Column(s models.Status) (Column, bool) {
	for _, c := range b.Columns {
		if c.Status == s {
			return c, true
		}
	}
	return Column{}, false
}

// KitchenBoard groups orders into the four kitchen columns, keeping the
// collection order within a column. Cancelled orders never appear.
func KitchenBoard(orders []models.Order) Board {
	byStatus := make(map[models.Status][]Card, len(kitchenColumns))
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		view := lifecycle.Presentation(o.Status)
		card := Card{Order: o, View: view}
		if next, ok := lifecycle.Next(o.Status); ok {
			card.Action = view.Action
			card.NextStatus = next
		}
		byStatus[o.Status] = append(byStatus[o.Status], card)
	}

	board := Board{Columns: make([]Column, 0, len(kitchenColumns))}
	for _, s := range kitchenColumns {
		cards := byStatus[s]
		if cards == nil {
			cards = make([]Card, 0)
		}
		board.Columns = append(board.Columns, Column{
			Status: s,
			Title:  lifecycle.Presentation(s).Column,
			Count:  len(cards),
			Cards:  cards,
		})
	}
	return board
}
