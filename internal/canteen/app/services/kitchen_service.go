package services

import (
	"context"
	"errors"
	"fmt"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/projection"
	"campus-canteen/internal/replica"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

type KitchenService struct {
	ctx    context.Context
	writer *orderWriter
	mylog  logger.Logger
}

func NewKitchenService(
	ctx context.Context,
	store storecore.IOrderStore,
	orders *replica.Replica[models.Order],
	publisher core.IPublisher,
	mylog logger.Logger,
) *KitchenService {
	return &KitchenService{
		ctx:   ctx,
		mylog: mylog,
		writer: &orderWriter{
			store:     store,
			orders:    orders,
			publisher: publisher,
			mylog:     mylog,
		},
	}
}

func (ks *KitchenService) Board() projection.Board {
	return projection.KitchenBoard(ks.writer.orders.Snapshot())
}

func (ks *KitchenService) Ready() bool {
	return ks.writer.orders.IsReady()
}

// Advance moves an order one step along the default path. from is the status
// the kitchen acted on; empty means the status this surface currently holds.
// The store only applies the step while the order is still in from, so a
// repeated click or a click on a stale card changes nothing.
func (ks *KitchenService) Advance(ctx context.Context, id int64, from string) (models.Order, error) {
	mylog := ks.mylog.Action("advance_order")

	cur, err := ks.writer.current(ctx, id)
	if err != nil {
		if errors.Is(err, storecore.ErrOrderNotFound) {
			return models.Order{}, err
		}
		return models.Order{}, core.Failed(core.ActionUpdateStatus, err)
	}

	fromStatus := cur.Status
	if from != "" {
		fromStatus, err = models.ParseStatus(from)
		if err != nil {
			return models.Order{}, core.Invalid("from", core.ErrInvalidStatus)
		}
	}

	to, ok := lifecycle.Next(fromStatus)
	if !ok {
		return models.Order{}, core.Invalid("status", fmt.Errorf("%w: %s", lifecycle.ErrTerminalState, fromStatus))
	}

	updated, err := ks.writer.apply(ctx, id, core.ChangedByKitchen,
		func(o *models.Order) {
			if o.Status == fromStatus {
				o.Status = to
			}
		},
		func(ctx context.Context) (models.Order, error) {
			return ks.writer.store.AdvanceOrderStatus(ctx, id, fromStatus, to, core.ChangedByKitchen)
		},
	)
	if err != nil {
		if errors.Is(err, storecore.ErrConflict) || errors.Is(err, storecore.ErrOrderNotFound) {
			mylog.Warn("Order changed before the kitchen step was stored", "order_id", id, "from", fromStatus, "to", to)
			return models.Order{}, err
		}
		mylog.Error("Failed to advance order", err, "order_id", id, "from", fromStatus, "to", to)
		return models.Order{}, core.Failed(core.ActionUpdateStatus, err)
	}

	mylog.Info("Order advanced", "order_id", id, "from", fromStatus, "to", updated.Status)
	return updated, nil
}
