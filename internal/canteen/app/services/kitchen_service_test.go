package services

import (
	"context"
	"errors"
	"testing"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/replica"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/store/memory"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFollowsDefaultPath(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "UPI", line(f.tea, 1))
	ctx := context.Background()

	for _, want := range []models.Status{models.StatusPreparing, models.StatusReady, models.StatusCompleted} {
		got, err := f.kitchen.Advance(ctx, o.ID, "")
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)

		local, ok := f.kitchenOrders.Get(o.ID)
		require.True(t, ok)
		assert.Equal(t, want, local.Status)
	}

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	e := f.publisher.last()
	assert.Equal(t, string(models.StatusReady), e.OldStatus)
	assert.Equal(t, string(models.StatusCompleted), e.NewStatus)
	assert.Equal(t, core.ChangedByKitchen, e.ChangedBy)

	history, err := f.store.OrderHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAdvanceTerminalIsRejected(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "UPI", line(f.tea, 1))
	ctx := context.Background()

	_, err := f.admin.Override(ctx, o.ID, string(models.StatusCancelled))
	require.NoError(t, err)
	f.reload(t)

	_, err = f.kitchen.Advance(ctx, o.ID, "")
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, lifecycle.ErrTerminalState)
}

func TestRepeatedAdvanceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "UPI", line(f.tea, 1))
	ctx := context.Background()

	_, err := f.kitchen.Advance(ctx, o.ID, string(models.StatusPending))
	require.NoError(t, err)
	published := f.publisher.count()

	// a second click on the same stale card
	_, err = f.kitchen.Advance(ctx, o.ID, string(models.StatusPending))
	require.ErrorIs(t, err, storecore.ErrConflict)

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, stored.Status)

	local, _ := f.kitchenOrders.Get(o.ID)
	assert.Equal(t, models.StatusPreparing, local.Status)
	assert.Equal(t, published, f.publisher.count())
}

func TestAdvanceRestoresOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "UPI", line(f.tea, 1))
	require.NoError(t, f.store.Close())

	_, err := f.kitchen.Advance(context.Background(), o.ID, "")
	var aerr *core.ActionError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Failed to update status. Please try again.", aerr.Message)

	local, ok := f.kitchenOrders.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, local.Status)
}

// racingStore lets a second writer move the order on, and delivers that change
// to the replica, while the caller's advance is still in flight.
type racingStore struct {
	*memory.Store
	orders *replica.Replica[models.Order]
}

func (s *racingStore) AdvanceOrderStatus(ctx context.Context, id int64, from, to models.Status, changedBy string) (models.Order, error) {
	o, err := s.Store.AdvanceOrderStatus(ctx, id, from, to, changedBy)
	if err != nil {
		return models.Order{}, err
	}
	next, err := s.Store.AdvanceOrderStatus(ctx, id, to, models.StatusReady, core.ChangedByAdmin)
	if err != nil {
		return models.Order{}, err
	}
	s.orders.ApplyChange(models.Change[models.Order]{Op: models.OpUpdate, ID: id, Item: next})
	return o, nil
}

func TestAdvanceKeepsNewerFeedEvent(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "UPI", line(f.tea, 1))
	ctx := context.Background()

	kitchen := NewKitchenService(ctx, &racingStore{Store: f.store, orders: f.kitchenOrders}, f.kitchenOrders, f.publisher, logger.Nop())

	got, err := kitchen.Advance(ctx, o.ID, string(models.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, got.Status)

	stored, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, stored.Status)

	local, ok := f.kitchenOrders.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusReady, local.Status)

	// the card sits in the ready column and its next step succeeds
	got, err = f.kitchen.Advance(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestAdvanceUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.kitchen.Advance(context.Background(), 404, "")
	assert.ErrorIs(t, err, storecore.ErrOrderNotFound)
}

func TestKitchenBoard(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, "UPI", line(f.tea, 1))
	b := f.place(t, "UPI", line(f.coffee, 1))
	_, err := f.kitchen.Advance(context.Background(), b.ID, "")
	require.NoError(t, err)

	board := f.kitchen.Board()
	pending, ok := board.Column(models.StatusPending)
	require.True(t, ok)
	require.Equal(t, 1, pending.Count)
	assert.Equal(t, a.ID, pending.Cards[0].Order.ID)
	assert.Equal(t, "Start Cooking", pending.Cards[0].Action)

	preparing, _ := board.Column(models.StatusPreparing)
	assert.Equal(t, 1, preparing.Count)
	assert.True(t, f.kitchen.Ready())
}
