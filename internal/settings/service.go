package settings

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/diewo77/go-church/internal/document"
	"github.com/diewo77/go-church/internal/store"
	"github.com/diewo77/go-church/internal/theme"
)

var (
	// ErrInvalid wraps validation failures of a settings update.
	ErrInvalid = errors.New("settings: invalid")
	// ErrDisposed is returned by Update after Dispose.
	ErrDisposed = errors.New("settings: service disposed")
)

// Service exposes the effective settings of one tenant and keeps the
// theme palette in sync with its colors.
type Service struct {
	doc      *document.Document[Settings]
	palette  *theme.Palette
	logger   *slog.Logger
	disposed atomic.Bool
}

func NewService(s store.Store, tenant string, palette *theme.Palette, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", "settings", "tenant", tenant)
	coll := document.NewCollection(s, document.Config[Settings]{
		Collection: Collection,
		Defaults:   Defaults,
		Validate:   Validate,
	}, logger)
	return &Service{
		doc:     document.New(coll, tenant),
		palette: palette,
		logger:  logger,
	}
}

// Init starts theme propagation and loads the settings.
func (s *Service) Init(ctx context.Context) Settings {
	if s.palette != nil {
		last := s.Current()
		s.palette.Apply(last.PrimaryColor, last.SecondaryColor)
		s.doc.OnChange(func(next Settings) {
			if s.disposed.Load() {
				return
			}
			if next.PrimaryColor == last.PrimaryColor && next.SecondaryColor == last.SecondaryColor {
				return
			}
			last = next
			s.palette.Apply(next.PrimaryColor, next.SecondaryColor)
			s.logger.Info("theme updated", "primary", next.PrimaryColor, "secondary", next.SecondaryColor)
		})
	}
	return s.Load(ctx)
}

// Dispose stops theme propagation and rejects further updates.
func (s *Service) Dispose() {
	s.disposed.Store(true)
}

// Load reads the settings document, creating it from defaults when absent.
func (s *Service) Load(ctx context.Context) Settings {
	return s.doc.Load(ctx)
}

// Update persists a partial update. The effective settings change only
// when the write succeeds.
func (s *Service) Update(ctx context.Context, patch map[string]any) (Settings, error) {
	if s.disposed.Load() {
		return s.Current(), ErrDisposed
	}
	return s.doc.Update(ctx, patch)
}

// Current returns the effective settings.
func (s *Service) Current() Settings {
	return s.doc.Current()
}

// Loaded reports whether the initial load has completed.
func (s *Service) Loaded() bool {
	return s.doc.State() == document.StateLoaded
}
