package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/notify"
	"campus-canteen/internal/projection"
	"campus-canteen/internal/replica"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
)

const readyTitle = "Kitchen Ready"

type CustomerService struct {
	ctx     context.Context
	store   storecore.IStore
	menu    *replica.Replica[models.MenuItem]
	writer  *orderWriter
	toast   *notify.Toast
	canteen config.Canteen
	mylog   logger.Logger
}

func NewCustomerService(
	ctx context.Context,
	store storecore.IStore,
	menu *replica.Replica[models.MenuItem],
	orders *replica.Replica[models.Order],
	publisher core.IPublisher,
	toast *notify.Toast,
	canteen config.Canteen,
	mylog logger.Logger,
) *CustomerService {
	cs := &CustomerService{
		ctx:     ctx,
		store:   store,
		menu:    menu,
		toast:   toast,
		canteen: canteen,
		mylog:   mylog,
		writer: &orderWriter{
			store:     store,
			orders:    orders,
			publisher: publisher,
			mylog:     mylog,
		},
	}
	orders.OnEvent(cs.onOrderEvent)
	return cs
}

// onOrderEvent raises the kitchen-ready notification when an order this
// surface knows about moves into ready.
func (cs *CustomerService) onOrderEvent(c models.Change[models.Order], prev *models.Order) {
	if c.Op == models.OpDelete || c.Item.Status != models.StatusReady {
		return
	}
	if prev != nil && prev.Status == models.StatusReady {
		return
	}
	cs.toast.Show(notify.Notification{
		Title:   readyTitle,
		Message: fmt.Sprintf("Order #%d for table %d is ready to serve!", c.Item.ID, c.Item.TableNumber),
		OrderID: c.Item.ID,
	})
	cs.mylog.Action("kitchen_ready_notified").Info("Order is ready", "order_id", c.Item.ID, "table_number", c.Item.TableNumber)
}

// Menu returns the items a customer may order.
func (cs *CustomerService) Menu(search, category string) []models.MenuItem {
	return projection.Menu(cs.menu.Snapshot(), projection.MenuFilter{
		Search:        search,
		Category:      category,
		OnlyAvailable: true,
	})
}

func (cs *CustomerService) Tables() []int {
	tables := make([]int, 0, cs.canteen.Tables)
	for i := core.MinTableNumber; i <= cs.canteen.Tables; i++ {
		tables = append(tables, i)
	}
	return tables
}

// ValidateCheckout checks the request shape before any store call.
func (cs *CustomerService) ValidateCheckout(req dto.CheckoutRequest) error {
	if len(req.Items) == 0 {
		return core.Invalid("items", core.ErrEmptyCart)
	}
	if len(req.Items) > core.MaxItemLines {
		return core.Invalid("items", fmt.Errorf("at most %d lines", core.MaxItemLines))
	}
	if req.TableNumber < core.MinTableNumber || req.TableNumber > cs.canteen.Tables {
		return core.Invalid("table_number", fmt.Errorf("%w: %d, must be in range [%d, %d]", core.ErrInvalidTable, req.TableNumber, core.MinTableNumber, cs.canteen.Tables))
	}
	if _, err := models.ParsePaymentMethod(req.PaymentMethod); err != nil {
		return core.Invalid("payment_method", fmt.Errorf("%w: %q", core.ErrUnknownPayment, req.PaymentMethod))
	}
	if utf8.RuneCountInString(req.Note) > core.MaxNoteLen {
		return core.Invalid("note", core.ErrNoteTooLong)
	}
	for i, item := range req.Items {
		if item.MenuItemID <= 0 {
			return core.Invalid(fmt.Sprintf("items[%d]", i), core.ErrUnknownMenuItem)
		}
		if item.Quantity < 1 || item.Quantity > core.MaxQuantity {
			return core.Invalid(fmt.Sprintf("items[%d]", i), fmt.Errorf("%w: %d, must be in range [1, %d]", core.ErrInvalidQuantity, item.Quantity, core.MaxQuantity))
		}
	}
	return nil
}

// Checkout places an order. Prices come from the menu store, never from the
// request. The total adds the canteen tax and is rounded to whole units.
func (cs *CustomerService) Checkout(ctx context.Context, req dto.CheckoutRequest) (models.Order, error) {
	mylog := cs.mylog.Action("checkout")

	if err := cs.ValidateCheckout(req); err != nil {
		return models.Order{}, err
	}
	method, _ := models.ParsePaymentMethod(req.PaymentMethod)

	items, err := cs.resolveItems(ctx, req.Items)
	if err != nil {
		return models.Order{}, err
	}

	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Subtotal())
	}

	draft := models.OrderDraft{
		TableNumber:   req.TableNumber,
		Items:         items,
		Total:         Total(subtotal, cs.canteen.TaxPercentage),
		PaymentMethod: method,
		PaymentStatus: models.InitialPaymentStatus(method),
		Note:          strings.TrimSpace(req.Note),
	}

	order, err := cs.store.CreateOrder(ctx, draft)
	if err != nil {
		mylog.Error("Failed to create order", err, "table_number", req.TableNumber)
		return models.Order{}, core.Failed(core.ActionPlaceOrder, err)
	}
	cs.writer.orders.Adopt(order)
	cs.writer.publish(ctx, order, "", core.ChangedByCustomer)

	mylog.Info("Order placed", "order_id", order.ID, "table_number", order.TableNumber, "total", order.Total.String(), "payment_method", order.PaymentMethod)
	return order, nil
}

// Total applies taxPercentage to subtotal and rounds to whole units.
func Total(subtotal decimal.Decimal, taxPercentage float64) decimal.Decimal {
	rate := decimal.NewFromFloat(taxPercentage).Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
	return subtotal.Mul(rate).Round(0)
}

// resolveItems merges repeated menu items and prices every line from the
// store.
func (cs *CustomerService) resolveItems(ctx context.Context, cart []dto.CartItem) ([]models.LineItem, error) {
	qty := make(map[int64]int, len(cart))
	var ids []int64
	for _, c := range cart {
		if _, ok := qty[c.MenuItemID]; !ok {
			ids = append(ids, c.MenuItemID)
		}
		qty[c.MenuItemID] += c.Quantity
	}

	items := make([]models.LineItem, 0, len(ids))
	for _, id := range ids {
		m, err := cs.store.GetMenuItem(ctx, id)
		if err != nil {
			if errors.Is(err, storecore.ErrMenuItemNotFound) {
				return nil, core.Invalid("items", fmt.Errorf("%w: %d", core.ErrUnknownMenuItem, id))
			}
			return nil, core.Failed(core.ActionPlaceOrder, err)
		}
		if !m.Available {
			return nil, core.Invalid("items", fmt.Errorf("%w: %s", core.ErrUnavailableItem, m.Name))
		}
		if qty[id] > core.MaxQuantity {
			return nil, core.Invalid("items", fmt.Errorf("%w: %d of %s", core.ErrInvalidQuantity, qty[id], m.Name))
		}
		items = append(items, models.LineItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   qty[id],
			Price:      m.Price,
			Category:   m.Category,
		})
	}
	return items, nil
}

// Status returns the customer's open orders and the progress of the selected
// one.
func (cs *CustomerService) Status(selectedID int64) projection.CustomerView {
	return projection.CustomerStatus(cs.writer.orders.Snapshot(), selectedID)
}

func (cs *CustomerService) Notification() (notify.Notification, bool) {
	return cs.toast.Current()
}

func (cs *CustomerService) DismissNotification() {
	cs.toast.Dismiss()
}
