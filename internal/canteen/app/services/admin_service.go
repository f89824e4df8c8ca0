package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/projection"
	"campus-canteen/internal/replica"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

type AdminService struct {
	ctx     context.Context
	writer  *orderWriter
	menu    *replica.Replica[models.MenuItem]
	canteen config.Canteen
	now     func() time.Time
	mylog   logger.Logger
}

func NewAdminService(
	ctx context.Context,
	store storecore.IOrderStore,
	orders *replica.Replica[models.Order],
	menu *replica.Replica[models.MenuItem],
	publisher core.IPublisher,
	canteen config.Canteen,
	mylog logger.Logger,
) *AdminService {
	return &AdminService{
		ctx:     ctx,
		menu:    menu,
		canteen: canteen,
		now:     time.Now,
		mylog:   mylog,
		writer: &orderWriter{
			store:     store,
			orders:    orders,
			publisher: publisher,
			mylog:     mylog,
		},
	}
}

// SetClock replaces the clock used for day bucketing.
func (as *AdminService) SetClock(now func() time.Time) {
	as.now = now
}

func (as *AdminService) Orders(f projection.AdminFilter) []projection.AdminRow {
	return projection.AdminOrders(as.writer.orders.Snapshot(), f)
}

// Override sets any status on any order. Lifecycle validation is skipped on
// purpose; a move off the default path is logged as a warning.
func (as *AdminService) Override(ctx context.Context, id int64, status string) (models.Order, error) {
	mylog := as.mylog.Action("override_status")

	to, err := models.ParseStatus(status)
	if err != nil {
		return models.Order{}, core.Invalid("status", fmt.Errorf("%w: %q", core.ErrInvalidStatus, status))
	}

	cur, err := as.writer.current(ctx, id)
	if err != nil {
		return models.Order{}, as.fail(core.ActionUpdateStatus, err)
	}

	override := lifecycle.Override{From: cur.Status, To: to}
	if override.Deviates() {
		mylog.Warn("Manual status change leaves the default path", "order_id", id, "from", cur.Status, "to", to)
	}

	updated, err := as.writer.apply(ctx, id, core.ChangedByAdmin,
		func(o *models.Order) { o.Status = to },
		func(ctx context.Context) (models.Order, error) {
			return as.writer.store.UpdateOrderStatus(ctx, id, to, core.ChangedByAdmin)
		},
	)
	if err != nil {
		mylog.Error("Failed to update status", err, "order_id", id, "to", to)
		return models.Order{}, as.fail(core.ActionUpdateStatus, err)
	}
	mylog.Info("Order status set", "order_id", id, "from", cur.Status, "to", to)
	return updated, nil
}

// MarkPaid settles payment and completes the order in one write.
func (as *AdminService) MarkPaid(ctx context.Context, id int64) (models.Order, error) {
	mylog := as.mylog.Action("mark_paid")

	cur, err := as.writer.current(ctx, id)
	if err != nil {
		return models.Order{}, as.fail(core.ActionMarkPaid, err)
	}
	if !lifecycle.CanMarkPaid(cur.Status) {
		return models.Order{}, core.Invalid("status", fmt.Errorf("%w: %s", lifecycle.ErrCannotMarkPaid, cur.Status))
	}

	updated, err := as.writer.apply(ctx, id, core.ChangedByAdmin,
		func(o *models.Order) {
			o.PaymentStatus = models.PaymentPaid
			o.Status = models.StatusCompleted
		},
		func(ctx context.Context) (models.Order, error) {
			return as.writer.store.MarkOrderPaid(ctx, id, core.ChangedByAdmin)
		},
	)
	if err != nil {
		if errors.Is(err, storecore.ErrConflict) {
			mylog.Warn("Order left the payable states before it was marked paid", "order_id", id)
			return models.Order{}, err
		}
		mylog.Error("Failed to mark order as paid", err, "order_id", id)
		return models.Order{}, as.fail(core.ActionMarkPaid, err)
	}
	mylog.Info("Order paid and completed", "order_id", id)
	return updated, nil
}

func (as *AdminService) Delete(ctx context.Context, id int64) error {
	mylog := as.mylog.Action("delete_order")

	if err := as.writer.store.DeleteOrder(ctx, id); err != nil {
		mylog.Error("Failed to delete order", err, "order_id", id)
		return as.fail(core.ActionDeleteOrder, err)
	}
	as.writer.orders.ApplyChange(models.Change[models.Order]{Op: models.OpDelete, ID: id})
	mylog.Info("Order deleted", "order_id", id)
	return nil
}

func (as *AdminService) History(ctx context.Context, id int64) ([]models.StatusLog, error) {
	logs, err := as.writer.store.OrderHistory(ctx, id)
	if err != nil {
		return nil, as.fail(core.ActionLoad, err)
	}
	return logs, nil
}

func (as *AdminService) Dashboard() projection.Dashboard {
	return projection.BuildDashboard(as.writer.orders.Snapshot(), as.menu.Len(), as.now(), as.canteen.Location())
}

func (as *AdminService) Report() projection.Report {
	return projection.BuildReport(as.writer.orders.Snapshot(), as.now(), as.canteen.Location())
}

func (as *AdminService) Settings() dto.Settings {
	return dto.Settings{
		Name:          as.canteen.Name,
		TaxPercentage: as.canteen.TaxPercentage,
		Timezone:      as.canteen.Location().String(),
		Tables:        as.canteen.Tables,
	}
}

// fail keeps not-found and conflict errors as they are and turns any other store failure
// into a user-facing action error.
func (as *AdminService) fail(action string, err error) error {
	if errors.Is(err, storecore.ErrOrderNotFound) || errors.Is(err, storecore.ErrConflict) {
		return err
	}
	return core.Failed(action, err)
}
