package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/projection"
	"campus-canteen/internal/replica"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

// MenuService manages the menu for the admin surface.
type MenuService struct {
	ctx   context.Context
	store storecore.IMenuStore
	menu  *replica.Replica[models.MenuItem]
	mylog logger.Logger
}

func NewMenuService(ctx context.Context, store storecore.IMenuStore, menu *replica.Replica[models.MenuItem], mylog logger.Logger) *MenuService {
	return &MenuService{
		ctx:   ctx,
		store: store,
		menu:  menu,
		mylog: mylog,
	}
}

func (ms *MenuService) List(search, category string) []models.MenuItem {
	return projection.Menu(ms.menu.Snapshot(), projection.MenuFilter{Search: search, Category: category})
}

// ValidateMenuItem checks a create or update request and builds the draft.
func (ms *MenuService) ValidateMenuItem(req dto.MenuItemRequest) (models.MenuItemDraft, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.MenuItemDraft{}, core.Invalid("name", core.ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n < core.MinNameLen || n > core.MaxNameLen {
		return models.MenuItemDraft{}, core.Invalid("name", fmt.Errorf("%w: length must be in range [%d, %d]", core.ErrInvalidName, core.MinNameLen, core.MaxNameLen))
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return models.MenuItemDraft{}, core.Invalid("category", core.ErrInvalidCategory)
	}
	if !req.Price.IsPositive() {
		return models.MenuItemDraft{}, core.Invalid("price", fmt.Errorf("%w: %s", core.ErrInvalidPrice, req.Price))
	}

	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = models.DefaultMenuImage
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return models.MenuItemDraft{
		Name:        name,
		Category:    category,
		Price:       req.Price,
		Image:       image,
		Description: strings.TrimSpace(req.Description),
		Available:   available,
	}, nil
}

func (ms *MenuService) Create(ctx context.Context, req dto.MenuItemRequest) (models.MenuItem, error) {
	mylog := ms.mylog.Action("create_menu_item")

	draft, err := ms.ValidateMenuItem(req)
	if err != nil {
		return models.MenuItem{}, err
	}
	item, err := ms.store.CreateMenuItem(ctx, draft)
	if err != nil {
		mylog.Error("Failed to create menu item", err, "name", draft.Name)
		return models.MenuItem{}, core.Failed(core.ActionSaveMenuItem, err)
	}
	ms.menu.Adopt(item)
	mylog.Info("Menu item created", "menu_item_id", item.ID, "name", item.Name)
	return item, nil
}

func (ms *MenuService) Update(ctx context.Context, id int64, req dto.MenuItemRequest) (models.MenuItem, error) {
	mylog := ms.mylog.Action("update_menu_item")

	draft, err := ms.ValidateMenuItem(req)
	if err != nil {
		return models.MenuItem{}, err
	}
	item, err := ms.store.UpdateMenuItem(ctx, id, draft)
	if err != nil {
		mylog.Error("Failed to update menu item", err, "menu_item_id", id)
		return models.MenuItem{}, ms.fail(core.ActionSaveMenuItem, err)
	}
	ms.menu.Adopt(item)
	mylog.Info("Menu item updated", "menu_item_id", item.ID)
	return item, nil
}

// SetAvailability toggles an item optimistically and restores it when the
// store refuses the change.
func (ms *MenuService) SetAvailability(ctx context.Context, id int64, available bool) (models.MenuItem, error) {
	mylog := ms.mylog.Action("set_menu_item_availability")

	edit, err := ms.menu.Patch(id, func(m *models.MenuItem) { m.Available = available })
	if err != nil && !errors.Is(err, replica.ErrNotFound) {
		return models.MenuItem{}, err
	}
	item, err := ms.store.SetMenuItemAvailability(ctx, id, available)
	if err != nil {
		edit.Restore()
		mylog.Error("Failed to toggle menu item", err, "menu_item_id", id)
		return models.MenuItem{}, ms.fail(core.ActionSaveMenuItem, err)
	}
	edit.Commit(item)
	mylog.Info("Menu item availability changed", "menu_item_id", id, "available", available)
	return item, nil
}

func (ms *MenuService) Delete(ctx context.Context, id int64) error {
	mylog := ms.mylog.Action("delete_menu_item")

	if err := ms.store.DeleteMenuItem(ctx, id); err != nil {
		mylog.Error("Failed to delete menu item", err, "menu_item_id", id)
		return ms.fail(core.ActionDeleteMenu, err)
	}
	ms.menu.ApplyChange(models.Change[models.MenuItem]{Op: models.OpDelete, ID: id})
	mylog.Info("Menu item deleted", "menu_item_id", id)
	return nil
}

func (ms *MenuService) fail(action string, err error) error {
	if errors.Is(err, storecore.ErrMenuItemNotFound) {
		return err
	}
	return core.Failed(action, err)
}
