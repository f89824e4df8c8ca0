package core

import (
	"context"

	"campus-canteen/internal/canteen/domain/dto"
)

// IPublisher fans order events out to other services.
type IPublisher interface {
	Close() error
	PushMessage(ctx context.Context, message dto.OrderEvent) error
}
