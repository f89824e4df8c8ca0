package brokermessage

import (
	"context"
	"fmt"
	"sync"

	"campus-canteen/internal/notsub/app/core"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	ctx   context.Context
	cfg   *config.RabbitMQ
	conn  *amqp.Connection
	ch    *amqp.Channel
	mylog logger.Logger
	mu    *sync.Mutex

	queue    string
	prefetch int
}

// New connects to RabbitMQ and binds queue to the order notifications
// exchange.
func New(ctx context.Context, rabbitmqCfg *config.RabbitMQ, queue string, prefetch int, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:      ctx,
		cfg:      rabbitmqCfg,
		mylog:    mylog,
		mu:       &sync.Mutex{},
		queue:    queue,
		prefetch: prefetch,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRMQConn, err)
	}
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.cfg.User,
		r.cfg.Password,
		r.cfg.Host,
		r.cfg.Port,
		r.cfg.VHost,
	))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.Qos(r.prefetch, 0, false); err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(core.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(r.queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}
	if err := ch.QueueBind(r.queue, "", core.Exchange, false, nil); err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	return r.ch != nil && !r.ch.IsClosed()
}

// Reconnect dials again; the caller owns the retry schedule.
func (r *RabbitMQ) Reconnect() error {
	if err := r.connect(); err != nil {
		return err
	}
	r.mylog.Action("rabbitmq_reconnected").Info("rabbitmq reconnected")
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

func (r *RabbitMQ) ConsumeMessage(ctx context.Context, consumerTag string) (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()
	if ch == nil {
		return nil, core.ErrNotReady
	}
	return ch.ConsumeWithContext(ctx, r.queue, consumerTag, false, false, false, false, nil)
}
