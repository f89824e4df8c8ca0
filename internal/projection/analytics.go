package projection

import (
	"slices"
	"strings"
	"time"

	"campus-canteen/internal/xpkg/models"

	"github.com/shopspring/decimal"
)

const (
	revenueDays      = 7
	bestSellerLimit  = 4
	recentOrderLimit = 5
	otherCategory    = "Other"
)

var profitMargin = decimal.RequireFromString("0.4")

type DayRevenue struct {
	Date    string          `json:"date"`
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// RevenueByDay sums the totals of non-cancelled orders per calendar day in
// loc for the `days` days ending on now's day, oldest first.
func RevenueByDay(orders []models.Order, now time.Time, loc *time.Location, days int) []DayRevenue {
	if loc == nil {
		loc = time.Local
	}
	if days <= 0 {
		return make([]DayRevenue, 0)
	}

	sums := make(map[string]decimal.Decimal)
	for _, o := range orders {
		if o.Status == models.StatusCancelled || o.CreatedAt.IsZero() {
			continue
		}
		d := o.Date(loc)
		sums[d] = sums[d].Add(o.Total)
	}

	today := now.In(loc)
	out := make([]DayRevenue, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format(time.DateOnly)
		rev := sums[key]
		out = append(out, DayRevenue{
			Date:    key,
			Day:     day.Format("Mon"),
			Revenue: rev,
			Profit:  rev.Mul(profitMargin),
		})
	}
	return out
}

type BestSeller struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	// Share is the percentage of all items sold, rounded.
	Share int `json:"share"`
}

// BestSellers tallies item quantities across non-cancelled orders and ranks
// them by count descending. Equal counts keep the order in which the items
// were first encountered. A quantity below one counts as one. limit <= 0
// returns every item.
func BestSellers(orders []models.Order, limit int) []BestSeller {
	counts := make(map[string]int)
	var names []string
	total := 0
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		for _, li := range o.Items {
			if li.Name == "" {
				continue
			}
			q := li.Quantity
			if q < 1 {
				q = 1
			}
			if _, ok := counts[li.Name]; !ok {
				names = append(names, li.Name)
			}
			counts[li.Name] += q
			total += q
		}
	}

	out := make([]BestSeller, 0, len(names))
	for _, n := range names {
		share := 0
		if total > 0 {
			share = int(decimal.NewFromInt(int64(counts[n]*100)).Div(decimal.NewFromInt(int64(total))).Round(0).IntPart())
		}
		out = append(out, BestSeller{Name: n, Count: counts[n], Share: share})
	}
	slices.SortStableFunc(out, func(a, b BestSeller) int { return b.Count - a.Count })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sumTotals(orders []models.Order) (decimal.Decimal, int) {
	sum := decimal.Zero
	n := 0
	for _, o := range orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		sum = sum.Add(o.Total)
		n++
	}
	return sum, n
}

type Dashboard struct {
	OrdersToday   int             `json:"orders_today"`
	Revenue       decimal.Decimal `json:"revenue"`
	PendingOrders int             `json:"pending_orders"`
	MenuItems     int             `json:"menu_items"`
	RevenueByDay  []DayRevenue    `json:"revenue_by_day"`
	BestSellers   []BestSeller    `json:"best_sellers"`
	RecentOrders  []models.Order  `json:"recent_orders"`
}

// BuildDashboard computes the admin overview. Revenue excludes cancelled
// orders; pending counts orders still waiting for the kitchen to finish.
func BuildDashboard(orders []models.Order, menuCount int, now time.Time, loc *time.Location) Dashboard {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(time.DateOnly)

	d := Dashboard{MenuItems: menuCount}
	d.Revenue, _ = sumTotals(orders)
	for _, o := range orders {
		if !o.CreatedAt.IsZero() && o.Date(loc) == today {
			d.OrdersToday++
		}
		if o.Status == models.StatusPending || o.Status == models.StatusPreparing {
			d.PendingOrders++
		}
	}
	d.RevenueByDay = RevenueByDay(orders, now, loc, revenueDays)
	d.BestSellers = BestSellers(orders, bestSellerLimit)

	recent := min(len(orders), recentOrderLimit)
	d.RecentOrders = make([]models.Order, recent)
	copy(d.RecentOrders, orders[:recent])
	return d
}

type CategoryCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Report struct {
	Revenue       decimal.Decimal `json:"revenue"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	Orders        int             `json:"orders"`
	Sales         []DayRevenue    `json:"sales"`
	Categories    []CategoryCount `json:"categories"`
}

// CategoryTally counts items sold per category over every order, cancelled
// ones included. Items without a category count as "Other".
func CategoryTally(orders []models.Order) []CategoryCount {
	counts := make(map[string]int)
	var names []string
	for _, o := range orders {
		for _, li := range o.Items {
			cat := strings.TrimSpace(li.Category)
			if cat == "" {
				cat = otherCategory
			}
			q := li.Quantity
			if q < 1 {
				q = 1
			}
			if _, ok := counts[cat]; !ok {
				names = append(names, cat)
			}
			counts[cat] += q
		}
	}

	out := make([]CategoryCount, 0, len(names))
	for _, n := range names {
		out = append(out, CategoryCount{Name: n, Value: counts[n]})
	}
	return out
}

// BuildReport computes the reports page over non-cancelled orders.
func BuildReport(orders []models.Order, now time.Time, loc *time.Location) Report {
	revenue, n := sumTotals(orders)
	avg := revenue.Div(decimal.NewFromInt(int64(max(n, 1)))).Round(2)
	return Report{
		Revenue:       revenue,
		AvgOrderValue: avg,
		Orders:        n,
		Sales:         RevenueByDay(orders, now, loc, revenueDays),
		Categories:    CategoryTally(orders),
	}
}
