package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/diewo77/go-church/internal/document"
	"github.com/diewo77/go-church/internal/store"
	"github.com/diewo77/go-church/internal/validation"
)

// PreferencesCollection is the document store collection for preferences.
const PreferencesCollection = "notification_preferences"

// Notification types.
const (
	TypeEvent        = "event"
	TypeForum        = "forum"
	TypeDonation     = "donation"
	TypeAssistance   = "assistance"
	TypeAnnouncement = "announcement"
	TypeSystem       = "system"
	TypeCustom       = "custom"
)

var Types = []string{TypeEvent, TypeForum, TypeDonation, TypeAssistance, TypeAnnouncement, TypeSystem, TypeCustom}

// Channel names recorded on delivered notifications.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
	ChannelSMS   = "sms"
)

type Channels struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Preferences is a user's effective notification preferences.
type Preferences struct {
	Channels Channels        `json:"channels"`
	Types    map[string]bool `json:"types"`
}

// DefaultPreferences enables every type on email and push.
func DefaultPreferences() Preferences {
	types := make(map[string]bool, len(Types))
	for _, t := range Types {
		types[t] = true
	}
	return Preferences{
		Channels: Channels{Email: true, Push: true, SMS: false},
		Types:    types,
	}
}

// Wants reports whether the user accepts notifications of type t.
// System notifications are always delivered.
func (p Preferences) Wants(t string) bool {
	if t == TypeSystem {
		return true
	}
	enabled, ok := p.Types[t]
	return !ok || enabled
}

// EnabledChannels lists the channels switched on.
func (p Preferences) EnabledChannels() []string {
	var out []string
	if p.Channels.Email {
		out = append(out, ChannelEmail)
	}
	if p.Channels.Push {
		out = append(out, ChannelPush)
	}
	if p.Channels.SMS {
		out = append(out, ChannelSMS)
	}
	return out
}

func validatePreferences(p Preferences) error {
	v := validation.Violations{}
	for t := range p.Types {
		validation.OneOf("types."+t, t, Types, v)
	}
	if !v.Empty() {
		return fmt.Errorf("%w: %w", ErrInvalid, v)
	}
	return nil
}

// PreferencesService loads and updates per-user preference documents.
// Documents are created from defaults on first access.
type PreferencesService struct {
	coll *document.Collection[Preferences]
}

func NewPreferencesService(s store.Store, logger *slog.Logger) *PreferencesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesService{
		coll: document.NewCollection(s, document.Config[Preferences]{
			Collection: PreferencesCollection,
			Defaults:   DefaultPreferences,
			Validate:   validatePreferences,
		}, logger.With("service", "notification_preferences")),
	}
}

// Get returns the effective preferences of userID. It never fails.
func (s *PreferencesService) Get(ctx context.Context, userID uint) Preferences {
	p, _ := s.coll.Load(ctx, docID(userID))
	return p
}

// Update merges patch into the user's preferences and persists them.
func (s *PreferencesService) Update(ctx context.Context, userID uint, patch map[string]any) (Preferences, error) {
	return s.coll.Update(ctx, docID(userID), patch)
}

func docID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
