package services

import (
	"context"
	"errors"
	"testing"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/domain/dto"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMenuItemDefaults(t *testing.T) {
	f := newFixture(t)

	item, err := f.menu.Create(context.Background(), dto.MenuItemRequest{
		Name:     "  Masala Dosa ",
		Category: "Veg",
		Price:    decimal.NewFromInt(60),
	})
	require.NoError(t, err)
	assert.Equal(t, "Masala Dosa", item.Name)
	assert.Equal(t, models.DefaultMenuImage, item.Image)
	assert.True(t, item.Available)

	local, ok := f.adminMenu.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, item.Name, local.Name)
}

func TestMenuItemValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]struct {
		req  dto.MenuItemRequest
		want error
	}{
		"empty name":     {dto.MenuItemRequest{Category: "Veg", Price: decimal.NewFromInt(10)}, core.ErrInvalidName},
		"empty category": {dto.MenuItemRequest{Name: "Idli", Price: decimal.NewFromInt(10)}, core.ErrInvalidCategory},
		"zero price":     {dto.MenuItemRequest{Name: "Idli", Category: "Veg"}, core.ErrInvalidPrice},
		"negative price": {dto.MenuItemRequest{Name: "Idli", Category: "Veg", Price: decimal.NewFromInt(-5)}, core.ErrInvalidPrice},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.menu.Create(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateMenuItem(t *testing.T) {
	f := newFixture(t)
	off := false

	item, err := f.menu.Update(context.Background(), f.tea.ID, dto.MenuItemRequest{
		Name:      "Masala Tea",
		Category:  "Drinks",
		Price:     decimal.NewFromInt(25),
		Available: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, "Masala Tea", item.Name)
	assert.False(t, item.Available)

	_, err = f.menu.Update(context.Background(), 999, dto.MenuItemRequest{Name: "X", Category: "Veg", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, storecore.ErrMenuItemNotFound)
}

func TestSetAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.menu.SetAvailability(ctx, f.samosa.ID, true)
	require.NoError(t, err)
	assert.True(t, item.Available)

	stored, err := f.store.GetMenuItem(ctx, f.samosa.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)
}

func TestSetAvailabilityRestoresOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.menu.SetAvailability(context.Background(), f.tea.ID, false)
	var aerr *core.ActionError
	require.True(t, errors.As(err, &aerr))

	local, _ := f.adminMenu.Get(f.tea.ID)
	assert.True(t, local.Available)
}

func TestDeleteMenuItem(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.menu.Delete(context.Background(), f.coffee.ID))

	names := make([]string, 0)
	for _, m := range f.menu.List("", "") {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Tea", "Samosa"}, names)
}
