// Package sqlite is the embedded store backend. Change events are published
// in-process after each committed write.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"campus-canteen/internal/store/core"
	"campus-canteen/internal/store/feed"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

type Store struct {
	sqlDB *sql.DB
	mylog logger.Logger
	now   func() time.Time

	// writeMu keeps feed events in commit order.
	writeMu sync.Mutex

	orderFeed *feed.Hub[models.Order]
	menuFeed  *feed.Hub[models.MenuItem]
}

// Open opens the database at path and applies the schema.
func Open(path string, mylog logger.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		sqlDB:     sqlDB,
		mylog:     mylog,
		now:       time.Now,
		orderFeed: feed.NewHub[models.Order](mylog),
		menuFeed:  feed.NewHub[models.MenuItem](mylog),
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	s.orderFeed.Close()
	s.menuFeed.Close()
	return s.sqlDB.Close()
}

const orderColumns = `id, table_number, items, total, payment_method, payment_status, status, note, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (models.Order, error) {
	var (
		o                       models.Order
		items                   string
		method, payment, status string
		createdAt, updatedAt    int64
	)
	if err := row.Scan(&o.ID, &o.TableNumber, &items, &o.Total, &method, &payment, &status, &o.Note, &createdAt, &updatedAt); err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return models.Order{}, fmt.Errorf("%w: order %d items: %v", xerrors.ErrMalformedData, o.ID, err)
	}
	var err error
	if o.PaymentMethod, err = models.ParsePaymentMethod(method); err != nil {
		return models.Order{}, err
	}
	if o.PaymentStatus, err = models.ParsePaymentStatus(payment); err != nil {
		return models.Order{}, err
	}
	if o.Status, err = models.ParseStatus(status); err != nil {
		return models.Order{}, err
	}
	o.CreatedAt = time.UnixMilli(createdAt).UTC()
	o.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id DESC`)
	if err != nil {
		return nil, core.Wrap("list orders", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if errors.Is(err, xerrors.ErrMalformedData) {
			s.mylog.Action("malformed_order_skipped").Warn("Skipping malformed order row", "error", err.Error())
			continue
		}
		if err != nil {
			return nil, core.Wrap("list orders", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Wrap("list orders", err)
	}
	return orders, nil
}

func (s *Store) getOrder(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id int64) (models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: %d", core.ErrOrderNotFound, id)
	}
	return o, err
}

func (s *Store) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	o, err := s.getOrder(ctx, s.sqlDB, id)
	if err != nil {
		return models.Order{}, core.Wrap("get order", err)
	}
	return o, nil
}

func insertLog(ctx context.Context, tx *sql.Tx, id int64, status models.Status, changedBy string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO order_status_log (order_id, status, changed_by, changed_at, note)
VALUES (?, ?, ?, ?, '')
`, id, string(status), changedBy, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error) {
	items, err := json.Marshal(draft.Items)
	if err != nil {
		return models.Order{}, core.Wrap("create order", err)
	}
	payment := draft.PaymentStatus
	if payment == "" {
		payment = models.PaymentPending
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	now := s.now()
	res, err := tx.ExecContext(ctx, `
INSERT INTO orders (table_number, items, total, payment_method, payment_status, status, note, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		draft.TableNumber,
		string(items),
		draft.Total.String(),
		string(draft.PaymentMethod),
		string(payment),
		string(models.StatusPending),
		draft.Note,
		now.UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to insert order: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Order{}, core.Wrap("create order", err)
	}
	if err := insertLog(ctx, tx, id, models.StatusPending, "customer", now); err != nil {
		return models.Order{}, core.Wrap("create order", err)
	}
	o, err := s.getOrder(ctx, tx, id)
	if err != nil {
		return models.Order{}, core.Wrap("create order", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to commit transaction: %w", err))
	}

	s.orderFeed.Publish(models.Change[models.Order]{Op: models.OpInsert, ID: o.ID, Item: o})
	return o, nil
}

// updateOrder runs stmt (which must update at most the row with the given id)
// and reports ErrOrderNotFound or, when the row exists but was not touched,
// ErrConflict.
func (s *Store) updateOrder(ctx context.Context, op string, id int64, status models.Status, changedBy, stmt string, args ...any) (models.Order, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, core.Wrap(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	if n == 0 {
		cur, err := s.getOrder(ctx, tx, id)
		if err != nil {
			return models.Order{}, core.Wrap(op, err)
		}
		return models.Order{}, core.Wrap(op, fmt.Errorf("%w: order %d is %s", core.ErrConflict, id, cur.Status))
	}
	if err := insertLog(ctx, tx, id, status, changedBy, s.now()); err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	o, err := s.getOrder(ctx, tx, id)
	if err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Order{}, core.Wrap(op, fmt.Errorf("failed to commit transaction: %w", err))
	}

	s.orderFeed.Publish(models.Change[models.Order]{Op: models.OpUpdate, ID: id, Item: o})
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.Status, changedBy string) (models.Order, error) {
	return s.updateOrder(ctx, "update order status", id, status, changedBy,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.now().UnixMilli(), id)
}

func (s *Store) AdvanceOrderStatus(ctx context.Context, id int64, from, to models.Status, changedBy string) (models.Order, error) {
	return s.updateOrder(ctx, "advance order status", id, to, changedBy,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), s.now().UnixMilli(), id, string(from))
}

func (s *Store) MarkOrderPaid(ctx context.Context, id int64, changedBy string) (models.Order, error) {
	return s.updateOrder(ctx, "mark order paid", id, models.StatusCompleted, changedBy,
		`UPDATE orders SET status = ?, payment_status = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'preparing', 'ready')`,
		string(models.StatusCompleted), string(models.PaymentPaid), s.now().UnixMilli(), id)
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return core.Wrap("delete order", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Wrap("delete order", fmt.Errorf("%w: %d", core.ErrOrderNotFound, id))
	}

	s.orderFeed.Publish(models.Change[models.Order]{Op: models.OpDelete, ID: id})
	return nil
}

func (s *Store) OrderHistory(ctx context.Context, id int64) ([]models.StatusLog, error) {
	if _, err := s.getOrder(ctx, s.sqlDB, id); err != nil {
		return nil, core.Wrap("order history", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT order_id, status, changed_by, changed_at, note
FROM order_status_log
WHERE order_id = ?
ORDER BY id ASC
`, id)
	if err != nil {
		return nil, core.Wrap("order history", err)
	}
	defer rows.Close()

	logs := make([]models.StatusLog, 0)
	for rows.Next() {
		var (
			l         models.StatusLog
			status    string
			changedAt int64
		)
		if err := rows.Scan(&l.OrderID, &status, &l.ChangedBy, &changedAt, &l.Note); err != nil {
			return nil, core.Wrap("order history", err)
		}
		if l.Status, err = models.ParseStatus(status); err != nil {
			s.mylog.Action("malformed_status_log_skipped").Warn("Skipping malformed status log row", "error", err.Error())
			continue
		}
		l.ChangedAt = time.UnixMilli(changedAt).UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Wrap("order history", err)
	}
	return logs, nil
}

func (s *Store) SubscribeOrderChanges(ctx context.Context, cb core.OrderCallback) (core.Unsubscribe, error) {
	return core.Unsubscribe(s.orderFeed.Subscribe(ctx, cb)), nil
}

const menuColumns = `id, name, category, price, image, description, available, created_at, updated_at`

func scanMenuItem(row scanner) (models.MenuItem, error) {
	var (
		m                    models.MenuItem
		price                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &price, &m.Image, &m.Description, &m.Available, &createdAt, &updatedAt); err != nil {
		return models.MenuItem{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("%w: menu item %d price: %v", xerrors.ErrMalformedData, m.ID, err)
	}
	m.Price = p
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return m, nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, core.Wrap("list menu", err)
	}
	defer rows.Close()

	items := make([]models.MenuItem, 0)
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if errors.Is(err, xerrors.ErrMalformedData) {
			s.mylog.Action("malformed_menu_item_skipped").Warn("Skipping malformed menu row", "error", err.Error())
			continue
		}
		if err != nil {
			return nil, core.Wrap("list menu", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Wrap("list menu", err)
	}
	return items, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error) {
	m, err := scanMenuItem(s.sqlDB.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MenuItem{}, core.Wrap("get menu item", fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	if err != nil {
		return models.MenuItem{}, core.Wrap("get menu item", err)
	}
	return m, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, draft models.MenuItemDraft) (models.MenuItem, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now().UnixMilli()
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO menu_items (name, category, price, image, description, available, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, draft.Name, draft.Category, draft.Price.String(), draft.Image, draft.Description, draft.Available, now, now)
	if err != nil {
		return models.MenuItem{}, core.Wrap("create menu item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.MenuItem{}, core.Wrap("create menu item", err)
	}
	m, err := s.GetMenuItem(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}

	s.menuFeed.Publish(models.Change[models.MenuItem]{Op: models.OpInsert, ID: id, Item: m})
	return m, nil
}

func (s *Store) updateMenuItem(ctx context.Context, op string, id int64, stmt string, args ...any) (models.MenuItem, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.sqlDB.ExecContext(ctx, stmt, args...)
	if err != nil {
		return models.MenuItem{}, core.Wrap(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.MenuItem{}, core.Wrap(op, fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	m, err := s.GetMenuItem(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}

	s.menuFeed.Publish(models.Change[models.MenuItem]{Op: models.OpUpdate, ID: id, Item: m})
	return m, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, id int64, draft models.MenuItemDraft) (models.MenuItem, error) {
	return s.updateMenuItem(ctx, "update menu item", id, `
UPDATE menu_items
SET name = ?, category = ?, price = ?, image = ?, description = ?, available = ?, updated_at = ?
WHERE id = ?
`, draft.Name, draft.Category, draft.Price.String(), draft.Image, draft.Description, draft.Available, s.now().UnixMilli(), id)
}

func (s *Store) SetMenuItemAvailability(ctx context.Context, id int64, available bool) (models.MenuItem, error) {
	return s.updateMenuItem(ctx, "set menu item availability", id,
		`UPDATE menu_items SET available = ?, updated_at = ? WHERE id = ?`,
		available, s.now().UnixMilli(), id)
}

func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return core.Wrap("delete menu item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Wrap("delete menu item", fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}

	s.menuFeed.Publish(models.Change[models.MenuItem]{Op: models.OpDelete, ID: id})
	return nil
}

func (s *Store) SubscribeMenuChanges(ctx context.Context, cb core.MenuCallback) (core.Unsubscribe, error) {
	return core.Unsubscribe(s.menuFeed.Subscribe(ctx, cb)), nil
}
