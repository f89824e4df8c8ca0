package core

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type SubscriberParams struct {
	// Prefetch bounds unacknowledged deliveries and concurrent handlers.
	Prefetch int
	Queue    string
}

const (
	Exchange         = "order_notifications"
	DefaultQueue     = "canteen_notifications"
	MBReconnInterval = 5 * time.Second
)

type IRabbitMQ interface {
	ConsumeMessage(ctx context.Context, consumerTag string) (<-chan amqp.Delivery, error)
	IsAlive() bool
	Close() error
}
