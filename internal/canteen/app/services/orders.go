package services

import (
	"context"
	"errors"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/replica"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

// orderWriter runs a status mutation for one surface: the surface's replica
// is patched first, the store write follows, and the patch is rolled back if
// the store refuses it. The store's answer replaces the patch only if nothing
// newer reached the replica while the write was in flight.
type orderWriter struct {
	store     storecore.IOrderStore
	orders    *replica.Replica[models.Order]
	publisher core.IPublisher
	mylog     logger.Logger
}

type writeFunc func(ctx context.Context) (models.Order, error)

func (w *orderWriter) apply(ctx context.Context, id int64, changedBy string, patch func(*models.Order), write writeFunc) (models.Order, error) {
	prev, known := w.orders.Get(id)

	edit, err := w.orders.Patch(id, patch)
	if err != nil && !errors.Is(err, replica.ErrNotFound) {
		return models.Order{}, err
	}

	updated, err := write(ctx)
	if err != nil {
		edit.Restore()
		return models.Order{}, err
	}
	edit.Commit(updated)

	oldStatus := ""
	if known {
		oldStatus = string(prev.Status)
	}
	w.publish(ctx, updated, oldStatus, changedBy)
	return updated, nil
}

// publish is best effort: the order is already stored and every surface will
// see it through the change feed.
func (w *orderWriter) publish(ctx context.Context, o models.Order, oldStatus, changedBy string) {
	event := dto.OrderEvent{
		OrderID:     o.ID,
		TableNumber: o.TableNumber,
		OldStatus:   oldStatus,
		NewStatus:   string(o.Status),
		ChangedBy:   changedBy,
		Timestamp:   time.Now().UTC(),
	}
	if err := w.publisher.PushMessage(ctx, event); err != nil {
		w.mylog.Action("event_publish_failed").Error("Failed to publish order event", err, "order_id", o.ID)
	}
}

// current returns the surface's copy of the order, falling back to the store.
func (w *orderWriter) current(ctx context.Context, id int64) (models.Order, error) {
	if o, ok := w.orders.Get(id); ok {
		return o, nil
	}
	return w.store.GetOrder(ctx, id)
}
