package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/notify"
	"campus-canteen/internal/replica"
	"campus-canteen/internal/store/memory"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.OrderEvent
}

func (p *recordingPublisher) PushMessage(_ context.Context, e dto.OrderEvent) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last() dto.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return dto.OrderEvent{}
	}
	return p.events[len(p.events)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	toast     *notify.Toast

	customerMenu   *replica.Replica[models.MenuItem]
	customerOrders *replica.Replica[models.Order]
	kitchenOrders  *replica.Replica[models.Order]
	adminOrders    *replica.Replica[models.Order]
	adminMenu      *replica.Replica[models.MenuItem]

	customer *CustomerService
	kitchen  *KitchenService
	admin    *AdminService
	menu     *MenuService

	tea, coffee, samosa models.MenuItem
}

var testCanteen = config.Canteen{
	Name:          "Campus Canteen",
	TaxPercentage: 5,
	Timezone:      "UTC",
	Tables:        12,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mylog := logger.Nop()

	f := &fixture{
		store:     memory.New(mylog),
		publisher: &recordingPublisher{},
		toast:     notify.NewToast(time.Minute),
	}
	t.Cleanup(func() {
		f.toast.Stop()
		f.store.Close()
	})

	var err error
	f.tea, err = f.store.CreateMenuItem(ctx, models.MenuItemDraft{Name: "Tea", Category: "Drinks", Price: decimal.NewFromInt(20), Available: true})
	require.NoError(t, err)
	f.coffee, err = f.store.CreateMenuItem(ctx, models.MenuItemDraft{Name: "Coffee", Category: "Drinks", Price: decimal.NewFromInt(30), Available: true})
	require.NoError(t, err)
	f.samosa, err = f.store.CreateMenuItem(ctx, models.MenuItemDraft{Name: "Samosa", Category: "Snacks", Price: decimal.NewFromInt(15), Available: false})
	require.NoError(t, err)

	orders := replica.OrderSource(f.store)
	menu := replica.MenuSource(f.store)
	f.customerMenu = replica.New("customer_menu", menu, replica.Append, time.Hour, mylog)
	f.customerOrders = replica.New("customer_orders", orders, replica.Prepend, time.Hour, mylog)
	f.kitchenOrders = replica.New("kitchen_orders", orders, replica.Prepend, time.Hour, mylog)
	f.adminOrders = replica.New("admin_orders", orders, replica.Prepend, time.Hour, mylog)
	f.adminMenu = replica.New("admin_menu", menu, replica.Append, time.Hour, mylog)

	f.customer = NewCustomerService(ctx, f.store, f.customerMenu, f.customerOrders, f.publisher, f.toast, testCanteen, mylog)
	f.kitchen = NewKitchenService(ctx, f.store, f.kitchenOrders, f.publisher, mylog)
	f.admin = NewAdminService(ctx, f.store, f.adminOrders, f.adminMenu, f.publisher, testCanteen, mylog)
	f.menu = NewMenuService(ctx, f.store, f.adminMenu, mylog)

	f.reload(t)
	return f
}

// reload makes every replica reflect the store.
func (f *fixture) reload(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.customerMenu.Load(ctx))
	require.NoError(t, f.customerOrders.Load(ctx))
	require.NoError(t, f.kitchenOrders.Load(ctx))
	require.NoError(t, f.adminOrders.Load(ctx))
	require.NoError(t, f.adminMenu.Load(ctx))
}

func (f *fixture) place(t *testing.T, method string, lines ...dto.CartItem) models.Order {
	t.Helper()
	o, err := f.customer.Checkout(context.Background(), dto.CheckoutRequest{
		TableNumber:   4,
		PaymentMethod: method,
		Items:         lines,
	})
	require.NoError(t, err)
	f.reload(t)
	return o
}

func line(m models.MenuItem, qty int) dto.CartItem {
	return dto.CartItem{MenuItemID: m.ID, Quantity: qty}
}
