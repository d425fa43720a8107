package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/diewo77/go-church/internal/metrics"
	"github.com/diewo77/go-church/internal/store"
)

// Load outcomes, also used as metric labels.
const (
	OutcomeFound    = "found"
	OutcomeCreated  = "created"
	OutcomeFallback = "fallback"
)

// Config describes a family of documents sharing defaults and validation.
type Config[T any] struct {
	Collection string
	// Defaults returns a fresh, fully populated value.
	Defaults func() T
	// Validate is optional and runs before every write.
	Validate func(T) error
}

// Collection loads and updates effective documents of one collection.
type Collection[T any] struct {
	store  store.Store
	cfg    Config[T]
	logger *slog.Logger

	mu sync.Mutex // serializes read-modify-write cycles
}

func NewCollection[T any](s store.Store, cfg Config[T], logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{
		store:  s,
		cfg:    cfg,
		logger: logger.With("collection", cfg.Collection),
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.cfg.Collection }

// Load returns the effective document for id. A missing document is
// created from defaults with a single write. A read failure falls back to
// defaults without writing. Load never fails.
func (c *Collection[T]) Load(ctx context.Context, id string) (T, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, id)
}

func (c *Collection[T]) load(ctx context.Context, id string) (T, string) {
	defaults := c.cfg.Defaults()

	raw, err := c.store.Get(ctx, c.cfg.Collection, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if werr := c.write(ctx, id, defaults); werr != nil {
			c.logger.Warn("failed to create default document", "id", id, "error", werr)
		} else {
			c.logger.Info("created default document", "id", id)
		}
		metrics.DocumentLoads.WithLabelValues(c.cfg.Collection, OutcomeCreated).Inc()
		return defaults, OutcomeCreated
	case err != nil:
		c.logger.Warn("failed to read document, using defaults", "id", id, "error", err)
		metrics.DocumentLoads.WithLabelValues(c.cfg.Collection, OutcomeFallback).Inc()
		return defaults, OutcomeFallback
	}

	value, conflicts, err := Merge(defaults, raw)
	if err != nil {
		c.logger.Warn("failed to merge document, using defaults", "id", id, "error", err)
		metrics.DocumentLoads.WithLabelValues(c.cfg.Collection, OutcomeFallback).Inc()
		return c.cfg.Defaults(), OutcomeFallback
	}
	for _, conflict := range conflicts {
		c.logger.Warn("ignored remote field", "id", id, "error", conflict)
	}
	metrics.DocumentLoads.WithLabelValues(c.cfg.Collection, OutcomeFound).Inc()
	return value, OutcomeFound
}

// Update merges patch over the current effective document for id,
// validates the result and writes it in full.
func (c *Collection[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, outcome := c.load(ctx, id)
	if outcome == OutcomeFallback {
		var zero T
		return zero, fmt.Errorf("update %s/%s: %w", c.cfg.Collection, id, ErrUnavailable)
	}
	return c.apply(ctx, id, current, patch)
}

// apply is the shared update step: merge, validate, write.
func (c *Collection[T]) apply(ctx context.Context, id string, current T, patch map[string]any) (T, error) {
	next, conflicts, err := Apply(current, patch)
	if err != nil {
		return current, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if len(conflicts) > 0 {
		return current, fmt.Errorf("%w: %v", ErrInvalidPatch, errors.Join(conflicts...))
	}
	if c.cfg.Validate != nil {
		if err := c.cfg.Validate(next); err != nil {
			return current, err
		}
	}
	if err := c.write(ctx, id, next); err != nil {
		return current, err
	}
	return next, nil
}

func (c *Collection[T]) write(ctx context.Context, id string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.cfg.Collection, id, err)
	}
	err = c.store.Set(ctx, c.cfg.Collection, id, raw)
	metrics.DocumentWrites.WithLabelValues(c.cfg.Collection, metrics.Outcome(err)).Inc()
	return err
}

var (
	// ErrInvalidPatch reports a patch that does not fit the document shape.
	ErrInvalidPatch = errors.New("document: invalid patch")
	// ErrUnavailable reports that the stored document could not be read,
	// so an update would overwrite it with defaults.
	ErrUnavailable = errors.New("document: stored document unavailable")
)
