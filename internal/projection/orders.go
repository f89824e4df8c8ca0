package projection

import (
	"strconv"
	"strings"

	"campus-canteen/internal/lifecycle"
	"campus-canteen/internal/xpkg/models"
)

// StatusAll disables the admin status filter.
const StatusAll = "All"

type AdminFilter struct {
	Search string
	Status string
}

type AdminRow struct {
	Order       models.Order   `json:"order"`
	View        lifecycle.View `json:"view"`
	Payment     lifecycle.View `json:"payment"`
	CanMarkPaid bool           `json:"can_mark_paid"`
	// Overrides lists every status the admin may set manually. The override
	// bypasses lifecycle validation, so it includes terminal and backward
	// statuses.
	Overrides []models.Status `json:"overrides"`
}

// matchesSearch matches the order id by suffix or the table number by
// substring. A leading '#' in the term is ignored.
func matchesSearch(o models.Order, term string) bool {
	term = strings.TrimPrefix(strings.TrimSpace(term), "#")
	if term == "" {
		return true
	}
	if strings.HasSuffix(strconv.FormatInt(o.ID, 10), term) {
		return true
	}
	return strings.Contains(strconv.Itoa(o.TableNumber), term)
}

func matchesStatus(o models.Order, status string) bool {
	status = strings.TrimSpace(status)
	if status == "" || strings.EqualFold(status, StatusAll) {
		return true
	}
	return string(o.Status) == strings.ToLower(status)
}

// AdminOrders filters orders for the admin table, preserving store order.
func AdminOrders(orders []models.Order, f AdminFilter) []AdminRow {
	rows := make([]AdminRow, 0, len(orders))
	for _, o := range orders {
		if !matchesSearch(o, f.Search) || !matchesStatus(o, f.Status) {
			continue
		}
		overrides := make([]models.Status, 0, len(models.Statuses))
		for _, s := range models.Statuses {
			if s != o.Status {
				overrides = append(overrides, s)
			}
		}
		rows = append(rows, AdminRow{
			Order:       o,
			View:        lifecycle.Presentation(o.Status),
			Payment:     lifecycle.PaymentPresentation(o.PaymentStatus),
			CanMarkPaid: lifecycle.CanMarkPaid(o.Status),
			Overrides:   overrides,
		})
	}
	return rows
}

type CustomerOrder struct {
	Order models.Order   `json:"order"`
	View  lifecycle.View `json:"view"`
}

type CustomerView struct {
	Orders   []CustomerOrder  `json:"orders"`
	Selected *CustomerOrder   `json:"selected,omitempty"`
	Steps    []lifecycle.Step `json:"steps"`
}

// CustomerStatus lists the open orders, meaning neither completed nor
// cancelled. Without customer identity this stands in for "my orders".
// The selected order, or the newest open one when selectedID is not open,
// carries the step progress.
func CustomerStatus(orders []models.Order, selectedID int64) CustomerView {
	view := CustomerView{
		Orders: make([]CustomerOrder, 0),
		Steps:  make([]lifecycle.Step, 0),
	}
	for _, o := range orders {
		if !lifecycle.IsActive(o.Status) {
			continue
		}
		view.Orders = append(view.Orders, CustomerOrder{Order: o, View: lifecycle.Presentation(o.Status)})
	}
	if len(view.Orders) == 0 {
		return view
	}

	sel := &view.Orders[0]
	for i := range view.Orders {
		if view.Orders[i].Order.ID == selectedID {
			sel = &view.Orders[i]
			break
		}
	}
	selected := *sel
	view.Selected = &selected
	view.Steps = lifecycle.Progress(selected.Order.Status)
	return view
}
