// Package postgres is the production store backend. Triggers on orders and
// menu_items publish row changes through LISTEN/NOTIFY.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-canteen/internal/store/core"
	"campus-canteen/internal/store/feed"
	"campus-canteen/internal/xpkg/db"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

const (
	orderChannel = "order_changes"
	menuChannel  = "menu_changes"

	listenReconnInterval = 5 * time.Second
)

type Store struct {
	db     *db.DB
	mylog  logger.Logger
	cancel context.CancelFunc
	done   chan struct{}

	orderFeed *feed.Hub[models.Order]
	menuFeed  *feed.Hub[models.MenuItem]
}

// Open applies the schema on an already started pool and begins listening
// for row changes.
func Open(ctx context.Context, database *db.DB, mylog logger.Logger) (*Store, error) {
	if _, err := database.GetPool().Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:        database,
		mylog:     mylog,
		cancel:    cancel,
		done:      make(chan struct{}),
		orderFeed: feed.NewHub[models.Order](mylog),
		menuFeed:  feed.NewHub[models.MenuItem](mylog),
	}
	go s.listen(listenCtx)
	return s, nil
}

func (s *Store) Close() error {
	s.cancel()
	<-s.done
	s.orderFeed.Close()
	s.menuFeed.Close()
	return s.db.Close()
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectOrder = `
SELECT
	o.id,
	o.table_number,
	o.total::text,
	o.payment_method,
	o.payment_status,
	o.status,
	o.note,
	o.created_at,
	o.updated_at,
	COALESCE((
		SELECT json_agg(json_build_object(
			'menu_item_id', i.menu_item_id,
			'name', i.name,
			'quantity', i.quantity,
			'price', i.unit_price::text,
			'category', i.category
		) ORDER BY i.id)
		FROM order_items i
		WHERE i.order_id = o.id
	), '[]')::text
FROM orders o
`

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o                       models.Order
		total, items            string
		method, payment, status string
	)
	if err := row.Scan(&o.ID, &o.TableNumber, &total, &method, &payment, &status, &o.Note, &o.CreatedAt, &o.UpdatedAt, &items); err != nil {
		return models.Order{}, err
	}

	var err error
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return models.Order{}, fmt.Errorf("%w: order %d total: %v", xerrors.ErrMalformedData, o.ID, err)
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return models.Order{}, fmt.Errorf("%w: order %d items: %v", xerrors.ErrMalformedData, o.ID, err)
	}
	if o.PaymentMethod, err = models.ParsePaymentMethod(method); err != nil {
		return models.Order{}, err
	}
	if o.PaymentStatus, err = models.ParsePaymentStatus(payment); err != nil {
		return models.Order{}, err
	}
	if o.Status, err = models.ParseStatus(status); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func getOrder(ctx context.Context, q queryRower, id int64) (models.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, selectOrder+`WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: %d", core.ErrOrderNotFound, id)
	}
	return o, err
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.db.GetPool().Query(ctx, selectOrder+`ORDER BY o.id DESC`)
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

func (s *Store) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	o, err := getOrder(ctx, s.db.GetPool(), id)
	if err != nil {
		return models.Order{}, core.Wrap("get order", err)
	}
	return o, nil
}

func insertLog(ctx context.Context, tx pgx.Tx, id int64, status models.Status, changedBy string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (
			order_id,
			status,
			changed_by,
			changed_at,
			note
		)
		VALUES ($1, $2, $3, now(), '')
	`, id, string(status), changedBy)
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error) {
	if err := s.db.IsAlive(); err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("%w: %v", xerrors.ErrDBConn, err))
	}
	payment := draft.PaymentStatus
	if payment == "" {
		payment = models.PaymentPending
	}

	tx, err := s.db.GetPool().Begin(ctx)
	if err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			table_number,
			total,
			payment_method,
			payment_status,
			status,
			note
		)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)
		RETURNING id
	`,
		draft.TableNumber,
		draft.Total.String(),
		string(draft.PaymentMethod),
		string(payment),
		string(models.StatusPending),
		draft.Note,
	).Scan(&id)
	if err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to insert order: %w", err))
	}

	for _, item := range draft.Items {
		var menuItemID *int64
		if item.MenuItemID != 0 {
			menuItemID = &item.MenuItemID
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				order_id,
				menu_item_id,
				name,
				quantity,
				unit_price,
				category
			)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
		`, id, menuItemID, item.Name, item.Quantity, item.Price.String(), item.Category)
		if err != nil {
			return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to insert item: %w", err))
		}
	}

	if err := insertLog(ctx, tx, id, models.StatusPending, "customer"); err != nil {
		return models.Order{}, core.Wrap("create order", err)
	}

	o, err := getOrder(ctx, tx, id)
	if err != nil {
		return models.Order{}, core.Wrap("create order", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, core.Wrap("create order", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return o, nil
}

func (s *Store) updateOrder(ctx context.Context, op string, id int64, status models.Status, changedBy, stmt string, args ...any) (models.Order, error) {
	tx, err := s.db.GetPool().Begin(ctx)
	if err != nil {
		return models.Order{}, core.Wrap(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		cur, err := getOrder(ctx, tx, id)
		if err != nil {
			return models.Order{}, core.Wrap(op, err)
		}
		return models.Order{}, core.Wrap(op, fmt.Errorf("%w: order %d is %s", core.ErrConflict, id, cur.Status))
	}
	if err := insertLog(ctx, tx, id, status, changedBy); err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	o, err := getOrder(ctx, tx, id)
	if err != nil {
		return models.Order{}, core.Wrap(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, core.Wrap(op, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.Status, changedBy string) (models.Order, error) {
	return s.updateOrder(ctx, "update order status", id, status, changedBy,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
}

func (s *Store) AdvanceOrderStatus(ctx context.Context, id int64, from, to models.Status, changedBy string) (models.Order, error) {
	return s.updateOrder(ctx, "advance order status", id, to, changedBy,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
}

func (s *Store) MarkOrderPaid(ctx context.Context, id int64, changedBy string) (models.Order, error) {
	return s.updateOrder(ctx, "mark order paid", id, models.StatusCompleted, changedBy,
		`UPDATE orders SET status = $1, payment_status = $2, updated_at = now()
		WHERE id = $3 AND status IN ('pending', 'preparing', 'ready')`,
		string(models.StatusCompleted), string(models.PaymentPaid), id)
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := s.db.GetPool().Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return core.Wrap("delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Wrap("delete order", fmt.Errorf("%w: %d", core.ErrOrderNotFound, id))
	}
	return nil
}

func (s *Store) OrderHistory(ctx context.Context, id int64) ([]models.StatusLog, error) {
	if _, err := getOrder(ctx, s.db.GetPool(), id); err != nil {
		return nil, core.Wrap("order history", err)
	}

	rows, err := s.db.GetPool().Query(ctx, `
		SELECT order_id, status, changed_by, changed_at, note
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, core.Wrap("order history", err)
	}
	defer rows.Close()

	logs := make([]models.StatusLog, 0)
	for rows.Next() {
		var (
			l      models.StatusLog
			status string
		)
		if err := rows.Scan(&l.OrderID, &status, &l.ChangedBy, &l.ChangedAt, &l.Note); err != nil {
			return nil, core.Wrap("order history", err)
		}
		if l.Status, err = models.ParseStatus(status); err != nil {
			s.mylog.Action("malformed_status_log_skipped").Warn("Skipping malformed status log row", "error", err.Error())
			continue
		}
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

const selectMenuItem = `
SELECT id, name, category, price::text, image, description, available, created_at, updated_at
FROM menu_items
`

func scanMenuItem(row pgx.Row) (models.MenuItem, error) {
	var (
		m     models.MenuItem
		price string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &price, &m.Image, &m.Description, &m.Available, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return models.MenuItem{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("%w: menu item %d price: %v", xerrors.ErrMalformedData, m.ID, err)
	}
	m.Price = p
	return m, nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.GetPool().Query(ctx, selectMenuItem+`ORDER BY name ASC, id ASC`)
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
	m, err := scanMenuItem(s.db.GetPool().QueryRow(ctx, selectMenuItem+`WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.MenuItem{}, core.Wrap("get menu item", fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	if err != nil {
		return models.MenuItem{}, core.Wrap("get menu item", err)
	}
	return m, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, draft models.MenuItemDraft) (models.MenuItem, error) {
	m, err := scanMenuItem(s.db.GetPool().QueryRow(ctx, `
		INSERT INTO menu_items (name, category, price, image, description, available)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING id, name, category, price::text, image, description, available, created_at, updated_at
	`, draft.Name, draft.Category, draft.Price.String(), draft.Image, draft.Description, draft.Available))
	if err != nil {
		return models.MenuItem{}, core.Wrap("create menu item", err)
	}
	return m, nil
}

func (s *Store) updateMenuItem(ctx context.Context, op string, id int64, stmt string, args ...any) (models.MenuItem, error) {
	m, err := scanMenuItem(s.db.GetPool().QueryRow(ctx, stmt+`
		RETURNING id, name, category, price::text, image, description, available, created_at, updated_at`, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.MenuItem{}, core.Wrap(op, fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	if err != nil {
		return models.MenuItem{}, core.Wrap(op, err)
	}
	return m, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, id int64, draft models.MenuItemDraft) (models.MenuItem, error) {
	return s.updateMenuItem(ctx, "update menu item", id, `
		UPDATE menu_items
		SET name = $1, category = $2, price = $3::numeric, image = $4, description = $5, available = $6, updated_at = now()
		WHERE id = $7`,
		draft.Name, draft.Category, draft.Price.String(), draft.Image, draft.Description, draft.Available, id)
}

func (s *Store) SetMenuItemAvailability(ctx context.Context, id int64, available bool) (models.MenuItem, error) {
	return s.updateMenuItem(ctx, "set menu item availability", id,
		`UPDATE menu_items SET available = $1, updated_at = now() WHERE id = $2`,
		available, id)
}

func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := s.db.GetPool().Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return core.Wrap("delete menu item", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Wrap("delete menu item", fmt.Errorf("%w: %d", core.ErrMenuItemNotFound, id))
	}
	return nil
}

func (s *Store) SubscribeMenuChanges(ctx context.Context, cb core.MenuCallback) (core.Unsubscribe, error) {
	return core.Unsubscribe(s.menuFeed.Subscribe(ctx, cb)), nil
}
