package models

// Keyed is implemented by every record that a replica can hold.
type Keyed interface {
	Key() int64
}

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// Change is one row-level event from a store change feed. Item is the zero
// value for deletes.
type Change[T Keyed] struct {
	Op   ChangeOp `json:"op"`
	ID   int64    `json:"id"`
	Item T        `json:"item"`
}
