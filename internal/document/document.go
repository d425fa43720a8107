package document

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// State is the load state of a Document. Loaded is terminal.
type State int

const (
	StateLoading State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "loading"
}

// Document holds the in-memory effective value of a single document.
// Until loaded it serves defaults. The value is replaced only after a
// successful write.
type Document[T any] struct {
	coll *Collection[T]
	id   string

	mu        sync.RWMutex
	state     State
	value     T
	listeners []func(T)

	updateMu sync.Mutex
	synced   bool // last load reflected the store; guarded by updateMu
}

func New[T any](coll *Collection[T], id string) *Document[T] {
	return &Document[T]{
		coll:  coll,
		id:    id,
		state: StateLoading,
		value: coll.cfg.Defaults(),
	}
}

// Load reads the document and publishes the effective value.
func (d *Document[T]) Load(ctx context.Context) T {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	value, outcome := d.coll.Load(ctx, d.id)
	d.coll.logger.Debug("document loaded", "id", d.id, "outcome", outcome)
	d.synced = outcome != OutcomeFallback
	d.publish(value)
	return Clone(value)
}

// Update applies patch over the in-memory value and persists the result.
// On failure the in-memory value is unchanged and the error is returned.
// When the in-memory value did not come from the store, the document is
// read again first and the update is refused with ErrUnavailable if the
// read still fails.
func (d *Document[T]) Update(ctx context.Context, patch map[string]any) (T, error) {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	d.coll.mu.Lock()
	if !d.synced {
		value, outcome := d.coll.load(ctx, d.id)
		if outcome == OutcomeFallback {
			d.coll.mu.Unlock()
			d.coll.logger.Warn("document update refused, store unreadable", "id", d.id)
			return d.Current(), fmt.Errorf("update %s/%s: %w", d.coll.cfg.Collection, d.id, ErrUnavailable)
		}
		d.synced = true
		d.publish(value)
	}
	next, err := d.coll.apply(ctx, d.id, d.Current(), patch)
	d.coll.mu.Unlock()
	if err != nil {
		d.coll.logger.Warn("document update failed", "id", d.id, "error", err)
		return d.Current(), err
	}
	d.publish(next)
	return Clone(next), nil
}

// Current returns a copy of the effective value.
func (d *Document[T]) Current() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Clone(d.value)
}

func (d *Document[T]) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// OnChange registers fn to receive every newly published value.
func (d *Document[T]) OnChange(fn func(T)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Document[T]) publish(value T) {
	d.mu.Lock()
	d.value = value
	d.state = StateLoaded
	listeners := slices.Clone(d.listeners)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(Clone(value))
	}
}
