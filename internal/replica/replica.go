package replica

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval = 10 * time.Second

	loadAttempts = 3
)

var ErrNotFound = errors.New("record not found in replica")

type EventHook[T models.Keyed] func(c models.Change[T], prev *T)

// Replica is one surface's cached copy of a store collection.
//
// Every applied feed event or local patch bumps a generation counter. A poll
// is applied only when no generation bump happened while it was in flight and
// no later poll was applied already, so the collection never regresses to a
// state older than the last applied event or poll.
type Replica[T models.Keyed] struct {
	name     string
	src      Source[T]
	mode     InsertMode
	interval time.Duration
	mylog    logger.Logger

	mu          sync.RWMutex
	items       []T
	gen         uint64
	pollSeq     uint64
	appliedPoll uint64
	readyOnce   sync.Once
	ready       chan struct{}

	hooksMu  sync.RWMutex
	onEvent  []EventHook[T]
	onChange []func()
}

func New[T models.Keyed](name string, src Source[T], mode InsertMode, interval time.Duration, mylog logger.Logger) *Replica[T] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Replica[T]{
		name:     name,
		src:      src,
		mode:     mode,
		interval: interval,
		mylog:    mylog.With("replica", name),
		items:    make([]T, 0),
		ready:    make(chan struct{}),
	}
}

// OnEvent registers fn for every change feed event and local change.
// prev is the record held before the change, nil when there was none.
func (r *Replica[T]) OnEvent(fn EventHook[T]) {
	r.hooksMu.Lock()
	r.onEvent = append(r.onEvent, fn)
	r.hooksMu.Unlock()
}

// OnChange registers fn for any change of the collection, polls included.
func (r *Replica[T]) OnChange(fn func()) {
	r.hooksMu.Lock()
	r.onChange = append(r.onChange, fn)
	r.hooksMu.Unlock()
}

func (r *Replica[T]) notify(c *models.Change[T], prev *T) {
	r.hooksMu.RLock()
	events := r.onEvent
	changes := r.onChange
	r.hooksMu.RUnlock()

	if c != nil {
		for _, fn := range events {
			fn(*c, prev)
		}
	}
	for _, fn := range changes {
		fn()
	}
}

// Snapshot returns a copy of the collection in its current order.
func (r *Replica[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.items)
}

func (r *Replica[T]) Get(id int64) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOf(r.items, id); i >= 0 {
		return r.items[i], true
	}
	var zero T
	return zero, false
}

func (r *Replica[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Generation is bumped on every event or local patch.
func (r *Replica[T]) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// Ready is closed after the first successful load.
func (r *Replica[T]) Ready() <-chan struct{} {
	return r.ready
}

func (r *Replica[T]) IsReady() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

func (r *Replica[T]) beginPoll() (seq, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pollSeq++
	return r.pollSeq, r.gen
}

// applyPoll replaces the collection wholesale with a fetch that started at
// (seq, gen). It reports whether the fetch was applied.
func (r *Replica[T]) applyPoll(seq, gen uint64, items []T, force bool) bool {
	if items == nil {
		items = make([]T, 0)
	}

	r.mu.Lock()
	if seq < r.appliedPoll || (!force && gen != r.gen) {
		r.mu.Unlock()
		return false
	}
	r.items = clone(items)
	r.appliedPoll = seq
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
	r.notify(nil, nil)
	return true
}

// Refresh re-reads the whole collection. A result that raced with a newer
// event is discarded and reported as not applied.
func (r *Replica[T]) Refresh(ctx context.Context) (bool, error) {
	seq, gen := r.beginPoll()
	items, err := r.src.Fetch(ctx)
	if err != nil {
		return false, err
	}
	applied := r.applyPoll(seq, gen, items, false)
	if !applied {
		r.mylog.Action("stale_poll_discarded").Debug("Discarding poll that raced with a newer change")
	}
	return applied, nil
}

// Load performs the initial wholesale load. If events keep racing with the
// fetch, the last attempt is applied regardless.
func (r *Replica[T]) Load(ctx context.Context) error {
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		seq, gen := r.beginPoll()
		items, err := r.src.Fetch(ctx)
		if err != nil {
			return err
		}
		if r.applyPoll(seq, gen, items, attempt == loadAttempts) {
			r.mylog.Action("replica_loaded").Debug("Initial load completed", "count", len(items))
			return nil
		}
	}
	return nil
}

// ApplyChange applies one change event and runs the hooks.
func (r *Replica[T]) ApplyChange(c models.Change[T]) {
	id := c.ID
	if c.Op != models.OpDelete && id == 0 {
		id = c.Item.Key()
	}

	r.mu.Lock()
	var prev *T
	if i := indexOf(r.items, id); i >= 0 {
		p := r.items[i]
		prev = &p
	}
	r.items = Apply(r.items, c, r.mode)
	r.gen++
	r.mu.Unlock()

	r.notify(&c, prev)
}

// Adopt makes a record returned by the store canonical locally, as after a
// successful create.
func (r *Replica[T]) Adopt(item T) {
	r.ApplyChange(models.Change[T]{Op: models.OpInsert, ID: item.Key(), Item: item})
}

// Edit is an optimistic local change waiting for the store's answer.
type Edit[T models.Keyed] struct {
	r       *Replica[T]
	id      int64
	found   bool
	old     T
	patched T
	gen     uint64
}

// Patch applies fn to a copy of the record with the given id and stores the
// result. An id missing from the replica yields ErrNotFound together with an
// Edit whose Restore is a no-op and whose Commit still works.
func (r *Replica[T]) Patch(id int64, fn func(*T)) (*Edit[T], error) {
	r.mu.Lock()
	i := indexOf(r.items, id)
	if i < 0 {
		e := &Edit[T]{r: r, id: id, gen: r.gen}
		r.mu.Unlock()
		return e, ErrNotFound
	}
	old := r.items[i]
	updated := old
	fn(&updated)

	items := clone(r.items)
	items[i] = updated
	r.items = items
	r.gen++
	e := &Edit[T]{r: r, id: id, found: true, old: old, patched: updated, gen: r.gen}
	r.mu.Unlock()

	c := models.Change[T]{Op: models.OpUpdate, ID: id, Item: updated}
	r.notify(&c, &old)
	return e, nil
}

// Restore puts the previous record back, unless the replica changed again in
// the meantime.
func (e *Edit[T]) Restore() {
	if !e.found {
		return
	}
	r := e.r
	r.mu.Lock()
	if r.gen != e.gen {
		r.mu.Unlock()
		return
	}
	r.items = Apply(r.items, models.Change[T]{Op: models.OpUpdate, ID: e.id, Item: e.old}, r.mode)
	r.gen++
	r.mu.Unlock()

	c := models.Change[T]{Op: models.OpUpdate, ID: e.id, Item: e.old}
	r.notify(&c, &e.patched)
}

// Commit makes the store's copy canonical. It is skipped, and reports false,
// when a change applied after the edit may be newer than item; the change
// feed then carries the write's own echo.
func (e *Edit[T]) Commit(item T) bool {
	r := e.r
	r.mu.Lock()
	if r.gen != e.gen {
		r.mu.Unlock()
		r.mylog.Action("stale_write_result_skipped").Debug("Keeping newer change over write result", "id", e.id)
		return false
	}
	var prev *T
	if i := indexOf(r.items, e.id); i >= 0 {
		p := r.items[i]
		prev = &p
	}
	c := models.Change[T]{Op: models.OpInsert, ID: e.id, Item: item}
	r.items = Apply(r.items, c, r.mode)
	r.gen++
	r.mu.Unlock()

	r.notify(&c, prev)
	return true
}

// Run subscribes to the change feed and polls until ctx is done. The two
// tasks feed the same reconciliation path; both stop with ctx.
func (r *Replica[T]) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.follow(ctx)
	})
	g.Go(func() error {
		return r.poll(ctx)
	})
	return g.Wait()
}

// follow keeps a feed subscription open, retrying at the poll interval when
// the store refuses it.
func (r *Replica[T]) follow(ctx context.Context) error {
	mylog := r.mylog.Action("replica_follow")
	for {
		unsub, err := r.src.Subscribe(ctx, r.ApplyChange)
		if err == nil {
			mylog.Info("Subscribed to change feed")
			<-ctx.Done()
			unsub()
			mylog.Info("Unsubscribed from change feed")
			return nil
		}
		mylog.Error("Failed to subscribe to change feed", core.Wrap("subscribe", err))

		t := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (r *Replica[T]) poll(ctx context.Context) error {
	mylog := r.mylog.Action("replica_poll")
	if err := r.Load(ctx); err != nil && ctx.Err() == nil {
		mylog.Error("Initial load failed, retrying on next poll", err)
	}

	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			var err error
			if r.IsReady() {
				_, err = r.Refresh(ctx)
			} else {
				err = r.Load(ctx)
			}
			if err != nil && ctx.Err() == nil {
				mylog.Error("Poll failed", err)
			}
		}
	}
}
