package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/xpkg/config"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "order_notifications"

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMQ
	conn         *amqp.Connection
	ch           *amqp.Channel
	mylog        logger.Logger
	reconnecting bool
	mu           *sync.Mutex
}

// New connects to RabbitMQ and declares the order notifications exchange.
func New(ctx context.Context, rabbitmqCfg config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
		mu:    &sync.Mutex{},
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrMBConn, err)
	}
	return r, nil
}

func URL(cfg config.RabbitMQ) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.VHost,
	)
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(URL(r.cfg))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) IsAlive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return xerrors.ErrMBConn
	}
	if r.ch == nil || r.ch.IsClosed() {
		return xerrors.ErrMBCh
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %v", err)
		}
	}

	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %v", err)
		}
	}
	return nil
}

func (r *RabbitMQ) PushMessage(ctx context.Context, message dto.OrderEvent) error {
	mylog := r.mylog.Action("push_message")

	if err := r.IsAlive(); err != nil {
		mylog.Error("Connection to rabbitmq is closed", err)
		go r.reconnect(r.ctx)
		return fmt.Errorf("rabbitmq: %w", err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	routingKey := "order." + strconv.FormatInt(message.OrderID, 10)
	return ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    message.Timestamp,
		Body:         body,
	})
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(core.MBReconnInterval)
	defer t.Stop()
	mylog := r.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				mylog.Info("rabbitmq reconnected")
				return
			}
			mylog.Warn("rabbitmq failed to reconnect")
		case <-ctx.Done():
			return
		}
	}
}

// Nop drops every message. It stands in when no broker is configured.
type Nop struct {
	mylog logger.Logger
}

func NewNop(mylog logger.Logger) *Nop {
	return &Nop{mylog: mylog}
}

func (n *Nop) PushMessage(_ context.Context, message dto.OrderEvent) error {
	n.mylog.Action("push_message_skipped").Debug("No broker configured", "order_id", message.OrderID, "new_status", message.NewStatus)
	return nil
}

func (n *Nop) Close() error { return nil }
