package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/projection"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideBypassesLifecycle(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))
	ctx := context.Background()

	_, err := f.admin.Override(ctx, o.ID, "completed")
	require.NoError(t, err)

	// completed back to pending is off the default path but allowed here
	got, err := f.admin.Override(ctx, o.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	e := f.publisher.last()
	assert.Equal(t, string(models.StatusCompleted), e.OldStatus)
	assert.Equal(t, core.ChangedByAdmin, e.ChangedBy)
}

func TestOverrideRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))

	_, err := f.admin.Override(context.Background(), o.ID, "burnt")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestMarkPaidCompletesOrder(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))
	ctx := context.Background()

	got, err := f.admin.MarkPaid(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	local, _ := f.adminOrders.Get(o.ID)
	assert.Equal(t, models.PaymentPaid, local.PaymentStatus)

	_, err = f.admin.MarkPaid(ctx, o.ID)
	assert.ErrorIs(t, err, lifecycle.ErrCannotMarkPaid)
}

func TestMarkPaidRestoresOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))
	require.NoError(t, f.store.Close())

	_, err := f.admin.MarkPaid(context.Background(), o.ID)
	var aerr *core.ActionError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Failed to mark as paid. Please try again.", aerr.Message)

	local, _ := f.adminOrders.Get(o.ID)
	assert.Equal(t, models.PaymentPending, local.PaymentStatus)
	assert.Equal(t, models.StatusPending, local.Status)
}

func TestMarkPaidOnStaleCopyOfCancelledOrder(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))
	ctx := context.Background()

	// cancelled elsewhere; the admin copy has not caught up yet
	_, err := f.store.UpdateOrderStatus(ctx, o.ID, models.StatusCancelled, core.ChangedByKitchen)
	require.NoError(t, err)
	local, _ := f.adminOrders.Get(o.ID)
	require.Equal(t, models.StatusPending, local.Status)
	published := f.publisher.count()

	_, err = f.admin.MarkPaid(ctx, o.ID)
	require.ErrorIs(t, err, storecore.ErrConflict)

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	local, _ = f.adminOrders.Get(o.ID)
	assert.Equal(t, models.StatusPending, local.Status)
	assert.Equal(t, models.PaymentPending, local.PaymentStatus)
	assert.Equal(t, published, f.publisher.count())
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))
	ctx := context.Background()

	require.NoError(t, f.admin.Delete(ctx, o.ID))
	_, ok := f.adminOrders.Get(o.ID)
	assert.False(t, ok)

	_, err := f.store.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, storecore.ErrOrderNotFound)

	assert.ErrorIs(t, f.admin.Delete(ctx, o.ID), storecore.ErrOrderNotFound)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Cash", line(f.tea, 1))
	ctx := context.Background()

	_, err := f.kitchen.Advance(ctx, o.ID, "")
	require.NoError(t, err)

	logs, err := f.admin.History(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.StatusPending, logs[0].Status)
	assert.Equal(t, models.StatusPreparing, logs[1].Status)
	assert.Equal(t, core.ChangedByKitchen, logs[1].ChangedBy)
}

func TestAdminOrdersFilter(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, "Cash", line(f.tea, 1))
	f.place(t, "Cash", line(f.coffee, 1))
	_, err := f.admin.Override(context.Background(), a.ID, "ready")
	require.NoError(t, err)

	rows := f.admin.Orders(projection.AdminFilter{Status: "ready"})
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].Order.ID)
	assert.True(t, rows[0].CanMarkPaid)

	assert.Len(t, f.admin.Orders(projection.AdminFilter{Status: projection.StatusAll}), 2)
}

func TestDashboardAndReport(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.admin.SetClock(func() time.Time { return now })

	a := f.place(t, "UPI", line(f.tea, 2))    // 40 -> 42
	b := f.place(t, "Cash", line(f.coffee, 1)) // 30 -> 32 (31.5 rounded)
	_, err := f.admin.Override(context.Background(), b.ID, "cancelled")
	require.NoError(t, err)

	d := f.admin.Dashboard()
	assert.Equal(t, 2, d.OrdersToday)
	assert.Equal(t, 1, d.PendingOrders, "only the open order is pending")
	assert.True(t, a.Total.Equal(d.Revenue), d.Revenue.String())
	assert.Equal(t, 3, d.MenuItems)
	require.Len(t, d.RevenueByDay, 7)
	assert.True(t, decimal.NewFromInt(42).Equal(d.RevenueByDay[6].Revenue))

	r := f.admin.Report()
	assert.Equal(t, 1, r.Orders)
	assert.True(t, decimal.NewFromInt(42).Equal(r.AvgOrderValue))
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	s := f.admin.Settings()
	assert.Equal(t, "Campus Canteen", s.Name)
	assert.InDelta(t, 5.0, s.TaxPercentage, 0.0001)
	assert.Equal(t, "UTC", s.Timezone)
	assert.Equal(t, 12, s.Tables)
}
