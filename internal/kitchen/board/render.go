// Package board renders the kitchen board for a terminal.
package board

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"campus-canteen/internal/projection"
	"campus-canteen/internal/xpkg/models"
)

const clearScreen = "\033[H\033[2J"

type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	loc   *time.Location
	clear bool
}

// NewRenderer writes to out; clear redraws from the top of the terminal.
func NewRenderer(out io.Writer, loc *time.Location, clear bool) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{out: out, loc: loc, clear: clear}
}

func (r *Renderer) Render(b projection.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clear {
		if _, err := io.WriteString(r.out, clearScreen); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, col := range b.Columns {
		fmt.Fprintf(tw, "== %s (%d) ==\n", col.Title, col.Count)
		for _, c := range col.Cards {
			fmt.Fprintf(tw, "#%d\tTable %d\t%s\t%s\t%s\t%s\n",
				c.Order.ID,
				c.Order.TableNumber,
				itemsLine(c.Order.Items),
				c.Order.Time(r.loc),
				c.Order.Total.StringFixed(2),
				c.Action,
			)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func itemsLine(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, li := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", li.Quantity, li.Name))
	}
	return strings.Join(parts, ", ")
}
