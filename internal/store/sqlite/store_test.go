package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "canteen.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDraft() models.OrderDraft {
	return models.OrderDraft{
		TableNumber: 7,
		Items: []models.LineItem{
			{MenuItemID: 1, Name: "Masala Dosa", Quantity: 2, Price: decimal.NewFromInt(60), Category: "Veg"},
			{MenuItemID: 2, Name: "Coffee", Quantity: 1, Price: decimal.RequireFromString("25.50"), Category: "Drinks"},
		},
		Total:         decimal.NewFromInt(153),
		PaymentMethod: models.PaymentUPI,
		PaymentStatus: models.PaymentPaid,
		Note:          "less spicy",
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ", logger.Nop())
	require.Error(t, err)
}

func TestCreateThenList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := sampleDraft()
	created, err := s.CreateOrder(ctx, d)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got := orders[0]
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, d.TableNumber, got.TableNumber)
	assert.Equal(t, d.Note, got.Note)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.True(t, d.Total.Equal(got.Total))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Masala Dosa", got.Items[0].Name)
	assert.True(t, got.Items[1].Price.Equal(decimal.RequireFromString("25.5")))
}

func TestNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.CreateOrder(ctx, sampleDraft())
		require.NoError(t, err)
	}
	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Greater(t, orders[0].ID, orders[1].ID)
	assert.Greater(t, orders[1].ID, orders[2].ID)
}

func TestStatusWrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	o, err := s.CreateOrder(ctx, sampleDraft())
	require.NoError(t, err)

	o, err = s.AdvanceOrderStatus(ctx, o.ID, models.StatusPending, models.StatusPreparing, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, o.Status)

	_, err = s.AdvanceOrderStatus(ctx, o.ID, models.StatusPending, models.StatusPreparing, "kitchen")
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = s.MarkOrderPaid(ctx, o.ID, "admin")
	require.NoError(t, err)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	h, err := s.OrderHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusPreparing, models.StatusCompleted},
		[]models.Status{h[0].Status, h[1].Status, h[2].Status})

	_, err = s.UpdateOrderStatus(ctx, 999, models.StatusReady, "admin")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestMarkPaidRejectsTerminalOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := sampleDraft()
	d.PaymentMethod = models.PaymentCash
	d.PaymentStatus = models.PaymentPending
	o, err := s.CreateOrder(ctx, d)
	require.NoError(t, err)
	_, err = s.UpdateOrderStatus(ctx, o.ID, models.StatusCancelled, "admin")
	require.NoError(t, err)

	_, err = s.MarkOrderPaid(ctx, o.ID, "admin")
	require.ErrorIs(t, err, core.ErrConflict)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)

	h, err := s.OrderHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, h, 2)

	_, err = s.MarkOrderPaid(ctx, 999, "admin")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestDeleteCascadesHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	o, err := s.CreateOrder(ctx, sampleDraft())
	require.NoError(t, err)
	require.NoError(t, s.DeleteOrder(ctx, o.ID))

	_, err = s.OrderHistory(ctx, o.ID)
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
	assert.ErrorIs(t, s.DeleteOrder(ctx, o.ID), core.ErrOrderNotFound)
}

func TestMalformedRowsAreSkipped(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.CreateOrder(ctx, sampleDraft())
	require.NoError(t, err)
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO orders (table_number, items, total, payment_method, payment_status, status, note, created_at, updated_at)
VALUES (1, 'not json', '10', 'UPI', 'paid', 'pending', '', 0, 0),
       (2, '[]', '10', 'UPI', 'paid', 'lost', '', 0, 0)
`)
	require.NoError(t, err)

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestFeedPublishesCommittedWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := openTestStore(t)

	events := make(chan models.Change[models.Order], 4)
	unsub, err := s.SubscribeOrderChanges(ctx, func(c models.Change[models.Order]) { events <- c })
	require.NoError(t, err)
	defer unsub()

	o, err := s.CreateOrder(ctx, sampleDraft())
	require.NoError(t, err)
	_, err = s.UpdateOrderStatus(ctx, o.ID, models.StatusCancelled, "admin")
	require.NoError(t, err)

	for _, want := range []models.ChangeOp{models.OpInsert, models.OpUpdate} {
		select {
		case c := <-events:
			assert.Equal(t, want, c.Op)
			assert.Equal(t, o.ID, c.Item.ID)
		case <-time.After(time.Second):
			t.Fatalf("no %s event", want)
		}
	}
}

func TestMenu(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	m, err := s.CreateMenuItem(ctx, models.MenuItemDraft{
		Name:      "Paneer Roll",
		Category:  "Veg",
		Price:     decimal.RequireFromString("80.00"),
		Image:     models.DefaultMenuImage,
		Available: true,
	})
	require.NoError(t, err)
	assert.True(t, m.Available)

	m, err = s.SetMenuItemAvailability(ctx, m.ID, false)
	require.NoError(t, err)
	assert.False(t, m.Available)

	items, err := s.ListMenuItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(80)))

	require.NoError(t, s.DeleteMenuItem(ctx, m.ID))
	_, err = s.GetMenuItem(ctx, m.ID)
	assert.ErrorIs(t, err, core.ErrMenuItemNotFound)
}

func TestMenuListedByName(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, name := range []string{"Tea", "Coffee", "Samosa"} {
		_, err := s.CreateMenuItem(ctx, models.MenuItemDraft{
			Name:      name,
			Category:  "Snacks",
			Price:     decimal.NewFromInt(10),
			Image:     models.DefaultMenuImage,
			Available: true,
		})
		require.NoError(t, err)
	}

	items, err := s.ListMenuItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Coffee", "Samosa", "Tea"}, []string{items[0].Name, items[1].Name, items[2].Name})
}
