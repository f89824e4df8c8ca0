package services

import (
	"context"
	"fmt"
	"io"

	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/notify"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

// OrderService turns order events into console lines and, for orders that
// reach ready, the kitchen-ready notification.
type OrderService struct {
	ctx   context.Context
	toast *notify.Toast
	out   io.Writer
	mylog logger.Logger
}

func NewOrderService(ctx context.Context, toast *notify.Toast, out io.Writer, mylog logger.Logger) *OrderService {
	return &OrderService{
		ctx:   ctx,
		toast: toast,
		out:   out,
		mylog: mylog,
	}
}

func (os *OrderService) Handle(event dto.OrderEvent) {
	mylog := os.mylog.WithGroup("details").With("order_id", event.OrderID, "new_status", event.NewStatus)
	mylog.Action("notification_received").Info("Received status update for order")

	if event.OldStatus == "" {
		fmt.Fprintf(os.out, "Notification for order #%d: placed at table %d.\n", event.OrderID, event.TableNumber)
	} else {
		fmt.Fprintf(os.out, "Notification for order #%d: Status changed from '%s' to '%s' by %s.\n", event.OrderID, event.OldStatus, event.NewStatus, event.ChangedBy)
	}

	if models.Status(event.NewStatus) == models.StatusReady && event.OldStatus != event.NewStatus {
		os.toast.Show(notify.Notification{
			Title:   "Kitchen Ready",
			Message: fmt.Sprintf("Order #%d for table %d is ready to serve!", event.OrderID, event.TableNumber),
			OrderID: event.OrderID,
		})
		mylog.Action("kitchen_ready_notified").Info("Order is ready")
	}
}

func (os *OrderService) Current() (notify.Notification, bool) {
	return os.toast.Current()
}
