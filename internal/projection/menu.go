package projection

import (
	"strings"

	"campus-canteen/internal/xpkg/models"
)

type MenuFilter struct {
	Search   string
	Category string
	// OnlyAvailable hides items switched off by the admin.
	OnlyAvailable bool
}

// Menu filters items by case-insensitive name substring and exact category.
// An empty category or "All" matches every item.
func Menu(items []models.MenuItem, f MenuFilter) []models.MenuItem {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.TrimSpace(f.Category)
	anyCategory := category == "" || strings.EqualFold(category, StatusAll)

	out := make([]models.MenuItem, 0, len(items))
	for _, m := range items {
		if f.OnlyAvailable && !m.Available {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Name), search) {
			continue
		}
		if !anyCategory && m.Category != category {
			continue
		}
		out = append(out, m)
	}
	return out
}
