// Package notification stores user notifications, applies recipient
// preferences on delivery and tracks unread counters for open sessions.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/go-church/internal/models"
	"github.com/diewo77/go-church/internal/validation"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("notification not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalid           = errors.New("invalid notification")
	ErrNoRecipients      = errors.New("no recipients")
)

const maxPageSize = 200

// Input describes a notification to deliver.
type Input struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	ActionURL string         `json:"action_url"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CustomInput targets explicit users, every active user of a role, or both.
type CustomInput struct {
	Input
	UserIDs []uint `json:"user_ids"`
	Role    string `json:"role"`
}

// Delivery summarizes a fan-out.
type Delivery struct {
	Created    int         `json:"created"`
	Suppressed int         `json:"suppressed"`
	IDs        []uuid.UUID `json:"ids"`
}

// Validate checks required fields and normalizes the priority.
func (in *Input) Validate() error {
	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	validation.MaxLen("title", in.Title, 255, v)
	validation.MaxLen("action_url", in.ActionURL, 500, v)
	if in.Type == "" {
		in.Type = TypeCustom
	}
	validation.OneOf("type", in.Type, Types, v)
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	validation.OneOf("priority", in.Priority, []string{models.PriorityLow, models.PriorityNormal, models.PriorityHigh}, v)
	if !v.Empty() {
		return fmt.Errorf("%w: %w", ErrInvalid, v)
	}
	return nil
}

// Service reads and mutates notifications. Mutations are mirrored on the
// owner's open inbox.
type Service struct {
	db      *gorm.DB
	prefs   *PreferencesService
	inboxes *Inboxes
	logger  *slog.Logger
}

func NewService(db *gorm.DB, prefs *PreferencesService, inboxes *Inboxes, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, prefs: prefs, inboxes: inboxes, logger: logger.With("service", "notification")}
}

// NewTracked builds a Service together with the Inboxes that read their
// unread counts from it. Inboxes idle longer than idle are closed.
func NewTracked(db *gorm.DB, prefs *PreferencesService, interval, idle time.Duration, logger *slog.Logger) (*Service, *Inboxes) {
	svc := NewService(db, prefs, nil, logger)
	svc.inboxes = NewInboxes(svc, interval, idle, logger)
	return svc, svc.inboxes
}

// List returns the newest notifications of userID, optionally filtered by
// status. Archived notifications are only returned when asked for.
func (s *Service) List(ctx context.Context, userID uint, status string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status <> ?", models.StatusArchived)
	}
	var out []models.Notification
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// UnreadCount is the authoritative unread count.
func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.StatusUnread).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkAsRead moves an unread notification to read. Reading a read
// notification is a no-op; an archived one is rejected.
func (s *Service) MarkAsRead(ctx context.Context, userID uint, id uuid.UUID) (*models.Notification, error) {
	n, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !n.CanTransition(models.StatusRead) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.Status, models.StatusRead)
	}
	if n.Status == models.StatusRead {
		return n, nil
	}
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", n.ID, models.StatusUnread).
		Updates(map[string]any{"status": models.StatusRead, "read_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("mark read: %w", res.Error)
	}
	n.Status = models.StatusRead
	n.ReadAt = &now
	if res.RowsAffected > 0 {
		if inbox, ok := s.inboxes.Get(userID); ok {
			inbox.MarkedRead()
		}
	}
	return n, nil
}

// MarkAllAsRead marks every unread notification of userID as read.
func (s *Service) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.StatusUnread).
		Updates(map[string]any{"status": models.StatusRead, "read_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	if inbox, ok := s.inboxes.Get(userID); ok {
		inbox.MarkedAllRead()
	}
	return res.RowsAffected, nil
}

// Archive moves a notification to archived from any status.
func (s *Service) Archive(ctx context.Context, userID uint, id uuid.UUID) (*models.Notification, error) {
	n, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.Status == models.StatusArchived {
		return n, nil
	}
	wasUnread := n.Status == models.StatusUnread
	now := time.Now()
	err = s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Updates(map[string]any{"status": models.StatusArchived, "archived_at": now}).Error
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	n.Status = models.StatusArchived
	n.ArchivedAt = &now
	if wasUnread {
		if inbox, ok := s.inboxes.Get(userID); ok {
			inbox.MarkedRead()
		}
	}
	return n, nil
}

// Create delivers a system-triggered notification to a single user,
// subject to the user's preferences.
func (s *Service) Create(ctx context.Context, userID uint, in Input) (Delivery, error) {
	if err := in.Validate(); err != nil {
		return Delivery{}, err
	}
	return s.deliver(ctx, nil, []uint{userID}, in)
}

// CreateCustom delivers an admin-authored notification to the listed users
// and to every active user holding Role.
func (s *Service) CreateCustom(ctx context.Context, sender uint, in CustomInput) (Delivery, error) {
	if err := in.Input.Validate(); err != nil {
		return Delivery{}, err
	}
	recipients, err := s.recipients(ctx, in.UserIDs, in.Role)
	if err != nil {
		return Delivery{}, err
	}
	if len(recipients) == 0 {
		return Delivery{}, ErrNoRecipients
	}
	return s.deliver(ctx, &sender, recipients, in.Input)
}

func (s *Service) recipients(ctx context.Context, userIDs []uint, role string) ([]uint, error) {
	seen := make(map[uint]bool, len(userIDs))
	var out []uint
	add := func(id uint) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(userIDs) > 0 {
		var found []uint
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id IN ?", userIDs).
			Pluck("id", &found).Error
		if err != nil {
			return nil, fmt.Errorf("resolve users: %w", err)
		}
		for _, id := range found {
			add(id)
		}
	}
	if role != "" {
		var found []uint
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("role = ? AND status = ?", role, models.UserStatusActive).
			Pluck("id", &found).Error
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", role, err)
		}
		for _, id := range found {
			add(id)
		}
	}
	return out, nil
}

func (s *Service) deliver(ctx context.Context, sender *uint, recipients []uint, in Input) (Delivery, error) {
	var d Delivery
	batch := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		prefs := s.prefs.Get(ctx, uid)
		if !prefs.Wants(in.Type) {
			d.Suppressed++
			continue
		}
		meta, err := metadata(in.Metadata, prefs.EnabledChannels())
		if err != nil {
			return Delivery{}, err
		}
		batch = append(batch, models.Notification{
			ID:        uuid.New(),
			UserID:    uid,
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			Priority:  in.Priority,
			Status:    models.StatusUnread,
			ActionURL: in.ActionURL,
			Metadata:  meta,
			CreatedBy: sender,
		})
	}
	if len(batch) > 0 {
		if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
			return Delivery{}, fmt.Errorf("create notifications: %w", err)
		}
	}
	for _, n := range batch {
		d.IDs = append(d.IDs, n.ID)
	}
	d.Created = len(batch)
	s.logger.Info("notifications delivered", "type", in.Type, "created", d.Created, "suppressed", d.Suppressed)
	return d, nil
}

// metadata merges caller metadata with the channels chosen for delivery.
func metadata(extra map[string]any, channels []string) (datatypes.JSON, error) {
	m := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		m[k] = v
	}
	if channels == nil {
		channels = []string{}
	}
	m["channels"] = channels
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalid, err)
	}
	return datatypes.JSON(raw), nil
}

func (s *Service) find(ctx context.Context, userID uint, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}
