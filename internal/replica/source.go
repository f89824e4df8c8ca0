package replica

import (
	"context"

	"campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/models"
)

// Source is the slice of a store a replica reads from.
type Source[T models.Keyed] struct {
	Fetch     func(ctx context.Context) ([]T, error)
	Subscribe func(ctx context.Context, cb func(models.Change[T])) (core.Unsubscribe, error)
}

func OrderSource(s core.IOrderStore) Source[models.Order] {
	return Source[models.Order]{
		Fetch: s.ListOrders,
		Subscribe: func(ctx context.Context, cb func(models.Change[models.Order])) (core.Unsubscribe, error) {
			return s.SubscribeOrderChanges(ctx, cb)
		},
	}
}

func MenuSource(s core.IMenuStore) Source[models.MenuItem] {
	return Source[models.MenuItem]{
		Fetch: s.ListMenuItems,
		Subscribe: func(ctx context.Context, cb func(models.Change[models.MenuItem])) (core.Unsubscribe, error) {
			return s.SubscribeMenuChanges(ctx, cb)
		},
	}
}
