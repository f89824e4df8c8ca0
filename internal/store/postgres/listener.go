package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-canteen/internal/store/core"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// notification is the payload written by the notify_row_change trigger.
type notification struct {
	Op string `json:"op"`
	ID int64  `json:"id"`
}

func parseNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return notification{}, fmt.Errorf("%w: notification %q: %v", xerrors.ErrMalformedData, payload, err)
	}
	switch models.ChangeOp(n.Op) {
	case models.OpInsert, models.OpUpdate, models.OpDelete:
	default:
		return notification{}, fmt.Errorf("%w: notification op %q", xerrors.ErrMalformedData, n.Op)
	}
	if n.ID <= 0 {
		return notification{}, fmt.Errorf("%w: notification id %d", xerrors.ErrMalformedData, n.ID)
	}
	return n, nil
}

// listen holds a dedicated connection with LISTEN on both channels and
// reconnects until ctx is done.
func (s *Store) listen(ctx context.Context) {
	defer close(s.done)
	mylog := s.mylog.Action("store_listener")

	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		mylog.Error("Change listener stopped, reconnecting", err)

		t := time.NewTimer(listenReconnInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, s.db.DSN())
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrDBConn, err)
	}
	defer conn.Close(context.Background())

	for _, ch := range []string{orderChannel, menuChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	s.mylog.Action("store_listener_started").Info("Listening for row changes")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.dispatch(ctx, n)
	}
}

func (s *Store) dispatch(ctx context.Context, pn *pgconn.Notification) {
	n, err := parseNotification(pn.Payload)
	if err != nil {
		s.mylog.Action("notification_skipped").Warn("Skipping malformed notification", "channel", pn.Channel, "error", err.Error())
		return
	}
	op := models.ChangeOp(n.Op)

	switch pn.Channel {
	case orderChannel:
		c := models.Change[models.Order]{Op: op, ID: n.ID}
		if op != models.OpDelete {
			o, err := getOrder(ctx, s.db.GetPool(), n.ID)
			if errors.Is(err, core.ErrOrderNotFound) {
				// deleted before we could read it, a delete event follows
				return
			}
			if err != nil {
				s.mylog.Action("notification_fetch_failed").Error("Failed to fetch changed order", err, "id", n.ID)
				return
			}
			c.Item = o
		}
		s.orderFeed.Publish(c)

	case menuChannel:
		c := models.Change[models.MenuItem]{Op: op, ID: n.ID}
		if op != models.OpDelete {
			m, err := s.GetMenuItem(ctx, n.ID)
			if errors.Is(err, core.ErrMenuItemNotFound) {
				return
			}
			if err != nil {
				s.mylog.Action("notification_fetch_failed").Error("Failed to fetch changed menu item", err, "id", n.ID)
				return
			}
			c.Item = m
		}
		s.menuFeed.Publish(c)
	}
}
