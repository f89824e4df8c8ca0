package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/notify"
	"campus-canteen/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleReadyShowsNotification(t *testing.T) {
	toast := notify.NewToast(time.Minute)
	defer toast.Stop()
	var out bytes.Buffer
	svc := NewOrderService(context.Background(), toast, &out, logger.Nop())

	svc.Handle(dto.OrderEvent{OrderID: 9, TableNumber: 4, OldStatus: "pending", NewStatus: "preparing", ChangedBy: "kitchen"})
	_, ok := svc.Current()
	assert.False(t, ok)

	svc.Handle(dto.OrderEvent{OrderID: 9, TableNumber: 4, OldStatus: "preparing", NewStatus: "ready", ChangedBy: "kitchen"})
	n, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "Kitchen Ready", n.Title)
	assert.Equal(t, int64(9), n.OrderID)
	assert.Contains(t, n.Message, "table 4")

	assert.Contains(t, out.String(), "Status changed from 'preparing' to 'ready' by kitchen")
}

func TestHandleNewOrderLine(t *testing.T) {
	toast := notify.NewToast(time.Minute)
	defer toast.Stop()
	var out bytes.Buffer
	svc := NewOrderService(context.Background(), toast, &out, logger.Nop())

	svc.Handle(dto.OrderEvent{OrderID: 1, TableNumber: 3, NewStatus: "pending", ChangedBy: "customer"})
	assert.Equal(t, "Notification for order #1: placed at table 3.\n", out.String())
}
