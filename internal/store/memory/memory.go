// Package memory is an in-process store used for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/store/core"
	"campus-canteen/internal/store/feed"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

type Store struct {
	mu      sync.RWMutex
	orders  map[int64]models.Order
	menu    map[int64]models.MenuItem
	history map[int64][]models.StatusLog
	orderID int64
	menuID  int64
	closed  bool
	now     func() time.Time

	orderFeed *feed.Hub[models.Order]
	menuFeed  *feed.Hub[models.MenuItem]
}

func New(mylog logger.Logger) *Store {
	return &Store{
		orders:    make(map[int64]models.Order),
		menu:      make(map[int64]models.MenuItem),
		history:   make(map[int64][]models.StatusLog),
		now:       time.Now,
		orderFeed: feed.NewHub[models.Order](mylog),
		menuFeed:  feed.NewHub[models.MenuItem](mylog),
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.orderFeed.Close()
	s.menuFeed.Close()
	return nil
}

func (s *Store) check(op string) error {
	if s.closed {
		return core.Wrap(op, core.ErrClosed)
	}
	return nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list orders"); err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	slices.SortFunc(out, func(a, b models.Order) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get order"); err != nil {
		return models.Order{}, err
	}

	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, core.Wrap("get order", fmt.Errorf("%w: %d", core.ErrOrderNotFound, id))
	}
	return cloneOrder(o), nil
}

func (s *Store) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error) {
	s.mu.Lock()
	if err := s.check("create order"); err != nil {
		s.mu.Unlock()
		return models.Order{}, err
	}

	s.orderID++
	now := s.now()
	o := models.Order{
		ID:            s.orderID,
		TableNumber:   draft.TableNumber,
		Items:         slices.Clone(draft.Items),
		Total:         draft.Total,
		PaymentMethod: draft.PaymentMethod,
		PaymentStatus: draft.PaymentStatus,
		Status:        models.StatusPending,
		Note:          draft.Note,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentPending
	}
	s.orders[o.ID] = o
	s.history[o.ID] = append(s.history[o.ID], models.StatusLog{
		OrderID:   o.ID,
		Status:    o.Status,
		ChangedBy: "customer",
		ChangedAt: now,
	})
	s.orderFeed.Publish(models.Change[models.Order]{Op: models.OpInsert, ID: o.ID, Item: cloneOrder(o)})
	s.mu.Unlock()
	return cloneOrder(o), nil
}

// mutate applies fn to the order under the write lock, records the status
// log entry and publishes the update.
func (s *Store) mutate(op string, id int64, changedBy string, fn func(o *models.Order) error) (models.Order, error) {
	s.mu.Lock()
	if err := s.check(op); err != nil {
		s.mu.Unlock()
		return models.Order{}, err
	}
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return models.Order{}, core.Wrap(op, fmt.Errorf("%w: %d", core.ErrOrderNotFound, id))
	}
	if err := fn(&o); err != nil {
		s.mu.Unlock()
		return models.Order{}, core.Wrap(op, err)
	}
	now := s.now()
	o.UpdatedAt = now
	s.orders[id] = o
	s.history[id] = append(s.history[id], models.StatusLog{
		OrderID:   id,
		Status:    o.Status,
		ChangedBy: changedBy,
		ChangedAt: now,
	})
	s.orderFeed.Publish(models.Change[models.Order]{Op: models.OpUpdate, ID: id, Item: cloneOrder(o)})
	s.mu.Unlock()
	return cloneOrder(o), nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.Status, changedBy string) (models.Order, error) {
	return s.mutate("update order status", id, changedBy, func(o *models.Order) error {
		o.Status = status
		return nil
	})
}

func (s *Store) AdvanceOrderStatus(ctx context.Context, id int64, from, to models.Status, changedBy string) (models.Order, error) {
	return s.mutate("advance order status", id, changedBy, func(o *models.Order) error {
		if o.Status != from {
			return fmt.Errorf("%w: order %d is %s, expected %s", core.ErrConflict, id, o.Status, from)
		}
		o.Status = to
		return nil
	})
}

func (s *Store) MarkOrderPaid(ctx context.Context, id int64, changedBy string) (models.Order, error) {
	return s.mutate("mark order paid", id, changedBy, func(o *models.Order) error {
		if !lifecycle.CanMarkPaid(o.Status) {
			return fmt.Errorf("%w: order %d is %s", core.ErrConflict, id, o.Status)
		}
		o.Status = models.StatusCompleted
		o.PaymentStatus = models.PaymentPaid
		return nil
	})
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	s.mu.Lock()
	if err := s.check("delete order"); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.orders[id]; !ok {
		s.mu.Unlock()
		return core.Wrap("delete order", fmt.Errorf("%w: %d", core.ErrOrderNotFound, id))
	}
	delete(s.orders, id)
	delete(s.history, id)
	s.orderFeed.Publish(models.Change[models.Order]{Op: models.OpDelete, ID: id})
	s.mu.Unlock()
	return nil
}

func (s *Store) OrderHistory(ctx context.Context, id int64) ([]models.StatusLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("order history"); err != nil {
		return nil, err
	}
	if _, ok := s.orders[id]; !ok {
		return nil, core.Wrap("order history", fmt.Errorf("%w: %d", core.ErrOrderNotFound, id))
	}
	return slices.Clone(s.history[id]), nil
}

func (s *Store) SubscribeOrderChanges(ctx context.Context, cb core.OrderCallback) (core.Unsubscribe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("subscribe orders"); err != nil {
		return nil, err
	}
	return core.Unsubscribe(s.orderFeed.Subscribe(ctx, cb)), nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list menu"); err != nil {
		return nil, err
	}

	out := make([]models.MenuItem, 0, len(s.menu))
	for _, m := range s.menu {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b models.MenuItem) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get menu item"); err != nil {
		return models.MenuItem{}, err
	}
	m, ok := s.menu[id]
	if !ok {
		return models.MenuItem{}, core.Wrap("get menu item", fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	return m, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, draft models.MenuItemDraft) (models.MenuItem, error) {
	s.mu.Lock()
	if err := s.check("create menu item"); err != nil {
		s.mu.Unlock()
		return models.MenuItem{}, err
	}
	s.menuID++
	now := s.now()
	m := models.MenuItem{
		ID:          s.menuID,
		Name:        draft.Name,
		Category:    draft.Category,
		Price:       draft.Price,
		Image:       draft.Image,
		Description: draft.Description,
		Available:   draft.Available,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.menu[m.ID] = m
	s.menuFeed.Publish(models.Change[models.MenuItem]{Op: models.OpInsert, ID: m.ID, Item: m})
	s.mu.Unlock()
	return m, nil
}

func (s *Store) mutateMenu(op string, id int64, fn func(m *models.MenuItem)) (models.MenuItem, error) {
	s.mu.Lock()
	if err := s.check(op); err != nil {
		s.mu.Unlock()
		return models.MenuItem{}, err
	}
	m, ok := s.menu[id]
	if !ok {
		s.mu.Unlock()
		return models.MenuItem{}, core.Wrap(op, fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	fn(&m)
	m.UpdatedAt = s.now()
	s.menu[id] = m
	s.menuFeed.Publish(models.Change[models.MenuItem]{Op: models.OpUpdate, ID: id, Item: m})
	s.mu.Unlock()
	return m, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, id int64, draft models.MenuItemDraft) (models.MenuItem, error) {
	return s.mutateMenu("update menu item", id, func(m *models.MenuItem) {
		m.Name = draft.Name
		m.Category = draft.Category
		m.Price = draft.Price
		m.Image = draft.Image
		m.Description = draft.Description
		m.Available = draft.Available
	})
}

func (s *Store) SetMenuItemAvailability(ctx context.Context, id int64, available bool) (models.MenuItem, error) {
	return s.mutateMenu("set menu item availability", id, func(m *models.MenuItem) {
		m.Available = available
	})
}

func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	if err := s.check("delete menu item"); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.menu[id]; !ok {
		s.mu.Unlock()
		return core.Wrap("delete menu item", fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	delete(s.menu, id)
	s.menuFeed.Publish(models.Change[models.MenuItem]{Op: models.OpDelete, ID: id})
	s.mu.Unlock()
	return nil
}

func (s *Store) SubscribeMenuChanges(ctx context.Context, cb core.MenuCallback) (core.Unsubscribe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("subscribe menu"); err != nil {
		return nil, err
	}
	return core.Unsubscribe(s.menuFeed.Subscribe(ctx, cb)), nil
}
