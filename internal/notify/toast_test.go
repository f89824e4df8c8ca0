package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastAutoDismiss(t *testing.T) {
	toast := NewToast(30 * time.Millisecond)
	defer toast.Stop()

	toast.Show(Notification{Title: "Kitchen Ready", OrderID: 1})
	n, ok := toast.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), n.OrderID)
	assert.False(t, n.ShownAt.IsZero())

	require.Eventually(t, func() bool {
		_, ok := toast.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestToastSupersedesAndRestartsCountdown(t *testing.T) {
	toast := NewToast(80 * time.Millisecond)
	defer toast.Stop()

	toast.Show(Notification{Title: "Kitchen Ready", OrderID: 1})
	time.Sleep(50 * time.Millisecond)
	toast.Show(Notification{Title: "Kitchen Ready", OrderID: 2})

	// past the first countdown, the second notification is still shown
	time.Sleep(50 * time.Millisecond)
	n, ok := toast.Current()
	require.True(t, ok)
	assert.Equal(t, int64(2), n.OrderID)

	require.Eventually(t, func() bool {
		_, ok := toast.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestToastDismiss(t *testing.T) {
	toast := NewToast(time.Hour)
	toast.Show(Notification{Title: "Kitchen Ready"})
	toast.Dismiss()

	_, ok := toast.Current()
	assert.False(t, ok)
	toast.Stop()
}

func TestToastDefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultDismissAfter, NewToast(0).after)
}
