package board

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"campus-canteen/internal/projection"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBoard(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: 2, TableNumber: 5, Status: models.StatusPreparing, Total: decimal.NewFromInt(63), CreatedAt: at,
			Items: []models.LineItem{{Name: "Dosa", Quantity: 1}}},
		{ID: 1, TableNumber: 3, Status: models.StatusPending, Total: decimal.NewFromInt(42), CreatedAt: at,
			Items: []models.LineItem{{Name: "Tea", Quantity: 2}, {Name: "Samosa", Quantity: 1}}},
		{ID: 3, TableNumber: 1, Status: models.StatusCancelled, CreatedAt: at},
	}

	var out bytes.Buffer
	r := NewRenderer(&out, time.UTC, false)
	require.NoError(t, r.Render(projection.KitchenBoard(orders)))

	text := out.String()
	assert.Contains(t, text, "== Pending (1) ==")
	assert.Contains(t, text, "== Preparing (1) ==")
	assert.Contains(t, text, "2x Tea, 1x Samosa")
	assert.Contains(t, text, "12:30")
	assert.Contains(t, text, "42.00")
	assert.Contains(t, text, "Start Cooking")
	assert.NotContains(t, text, "#3")
	assert.False(t, strings.HasPrefix(text, clearScreen))
}

func TestRenderClearsScreen(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, nil, true)
	require.NoError(t, r.Render(projection.KitchenBoard(nil)))
	assert.True(t, strings.HasPrefix(out.String(), clearScreen))
	assert.Contains(t, out.String(), "== Completed (0) ==")
}
