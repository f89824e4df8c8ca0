// Package replica keeps a surface's local copy of a store collection in sync
// using an initial load, the store change feed and a polling fallback.
package replica

import (
	"campus-canteen/internal/xpkg/models"
)

// InsertMode decides where a new record lands in the local collection.
type InsertMode int

const (
	// Prepend keeps newest-first collections such as orders.
	Prepend InsertMode = iota
	// Append keeps oldest-first collections such as the menu.
	Append
)

func indexOf[T models.Keyed](items []T, id int64) int {
	for i := range items {
		if items[i].Key() == id {
			return i
		}
	}
	return -1
}

// Apply returns items with the change applied. The input slice is never
// modified. Changes are keyed:
//   - insert adds the item, or replaces it when the id is already present
//   - update replaces the item in place, or inserts it when missing
//   - delete removes the item, a missing id is a no-op
//
// Applying the same change twice yields the same collection as applying it
// once.
func Apply[T models.Keyed](items []T, c models.Change[T], mode InsertMode) []T {
	id := c.ID
	if c.Op != models.OpDelete && id == 0 {
		id = c.Item.Key()
	}
	idx := indexOf(items, id)

	switch c.Op {
	case models.OpInsert, models.OpUpdate:
		if idx >= 0 {
			out := make([]T, len(items))
			copy(out, items)
			out[idx] = c.Item
			return out
		}
		out := make([]T, 0, len(items)+1)
		if mode == Append {
			out = append(out, items...)
			return append(out, c.Item)
		}
		out = append(out, c.Item)
		return append(out, items...)

	case models.OpDelete:
		if idx < 0 {
			return clone(items)
		}
		out := make([]T, 0, len(items)-1)
		out = append(out, items[:idx]...)
		return append(out, items[idx+1:]...)
	}
	return clone(items)
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
