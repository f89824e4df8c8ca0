package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/notsub/app/core"
	"campus-canteen/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// Broker is the part of the RabbitMQ adapter the consumer needs.
type Broker interface {
	core.IRabbitMQ
	Reconnect() error
}

// Handler receives every decoded order event.
type Handler interface {
	Handle(event dto.OrderEvent)
}

type Notification struct {
	ctx         context.Context
	mb          Broker
	handler     Handler
	params      *core.SubscriberParams
	consumerTag string
	mylog       logger.Logger

	mu sync.Mutex
}

func NewNotification(ctx context.Context, mb Broker, handler Handler, params *core.SubscriberParams, consumerTag string, mylog logger.Logger) *Notification {
	return &Notification{
		ctx:         ctx,
		mb:          mb,
		handler:     handler,
		params:      params,
		consumerTag: consumerTag,
		mylog:       mylog,
	}
}

// Run consumes until ctx is done, reconnecting whenever the delivery channel
// closes underneath it.
func (n *Notification) Run() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	mylog := n.mylog.Action("run_notifications")
	for {
		deliveries, err := n.mb.ConsumeMessage(n.ctx, n.consumerTag)
		if err == nil {
			mylog.Info("Consuming order notifications", "queue", n.params.Queue, "consumer_tag", n.consumerTag)
			if err := n.work(deliveries); err != nil {
				return err
			}
		} else {
			mylog.Error("Failed to consume from rabbitmq", err)
		}

		if n.ctx.Err() != nil {
			return nil
		}
		if !n.waitReconnect() {
			return nil
		}
	}
}

func (n *Notification) waitReconnect() bool {
	mylog := n.mylog.Action("rabbitmq_reconnecting")
	t := time.NewTicker(core.MBReconnInterval)
	defer t.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return false
		case <-t.C:
			if n.mb.IsAlive() {
				return true
			}
			if err := n.mb.Reconnect(); err != nil {
				mylog.Warn("rabbitmq failed to reconnect", "error", err.Error())
				continue
			}
			return true
		}
	}
}

// work processes deliveries with at most Prefetch handlers in flight and
// returns once the channel closes or ctx is done.
func (n *Notification) work(deliveries <-chan amqp.Delivery) error {
	g := new(errgroup.Group)
	g.SetLimit(max(n.params.Prefetch, 1))

	defer func() {
		_ = g.Wait()
	}()

	for {
		select {
		case <-n.ctx.Done():
			n.mylog.Action("work_shutdown").Info("Stopping message consumption due to context cancel")
			return nil

		case msg, ok := <-deliveries:
			if !ok {
				n.mylog.Action("deliveries_closed").Warn("Delivery channel closed")
				return nil
			}
			g.Go(func() error {
				n.process(msg)
				return nil
			})
		}
	}
}

// process acks a handled event. A body that cannot be decoded is rejected
// without requeue so it lands in the dead letter queue, if one is set up.
func (n *Notification) process(msg amqp.Delivery) {
	mylog := n.mylog.Action("process_message")

	event, err := decodeEvent(msg.Body)
	if err != nil {
		mylog.Error("Failed to decode order event", err)
		if err := msg.Nack(false, false); err != nil {
			mylog.Error("Failed to nack", err)
		}
		return
	}

	n.handler.Handle(event)

	if err := msg.Ack(false); err != nil {
		mylog.Error("Failed to acknowledge message", err, "order_id", event.OrderID)
		return
	}
	mylog.Debug("Ack message", "order_id", event.OrderID)
}

func decodeEvent(body []byte) (dto.OrderEvent, error) {
	var event dto.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return dto.OrderEvent{}, fmt.Errorf("%w: %v", core.ErrBadEvent, err)
	}
	if event.OrderID <= 0 || event.NewStatus == "" {
		return dto.OrderEvent{}, fmt.Errorf("%w: missing order id or status", core.ErrBadEvent)
	}
	return event, nil
}
