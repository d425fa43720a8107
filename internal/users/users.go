// Package users manages member accounts and their role assignments.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/models"
	"github.com/diewo77/go-church/internal/permission"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
)

const (
	maxCachedIdentities = 4096
	identityTTL         = 30 * time.Second
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUnknownRole  = errors.New("unknown role")
	ErrInvalidState = errors.New("invalid user status")
)

// Filter narrows a user listing. Empty fields match everything.
type Filter struct {
	Role   string
	Status string
	Limit  int
	Offset int
}

// Service reads users and changes their role or status. Write failures
// are returned to the caller unchanged in meaning.
type Service struct {
	db         *gorm.DB
	resolver   *permission.Resolver
	logger     *slog.Logger
	identities *expirable.LRU[uint, auth.Identity]
}

func NewService(db *gorm.DB, resolver *permission.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:         db,
		resolver:   resolver,
		logger:     logger.With("service", "users"),
		identities: expirable.NewLRU[uint, auth.Identity](maxCachedIdentities, nil, identityTTL),
	}
}

// Identity returns the current role and status of the account a token
// claims. Lookups are cached briefly; role and status changes made through
// this service take effect on the next request. A deleted account yields
// auth.ErrRevoked.
func (s *Service) Identity(ctx context.Context, claimed auth.Identity) (auth.Identity, error) {
	if id, ok := s.identities.Get(claimed.UserID); ok {
		return id, nil
	}
	u, err := s.Get(ctx, claimed.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return auth.Identity{}, fmt.Errorf("%w: %w", auth.ErrRevoked, err)
	}
	if err != nil {
		return claimed, err
	}
	id := auth.Identity{UserID: u.ID, Name: u.Name, Role: u.Role, Status: u.Status}
	s.identities.Add(u.ID, id)
	return id, nil
}

// List returns users ordered by name.
func (s *Service) List(ctx context.Context, f Filter) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var out []models.User
	if err := q.Order("name, id").Limit(f.Limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Get finds a user by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// ChangeRole assigns role to a user. The role must be built-in or stored.
func (s *Service) ChangeRole(ctx context.Context, id uint, role string) (*models.User, error) {
	if !s.roleExists(ctx, role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := u.Role
	if err := s.db.WithContext(ctx).Model(u).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("change role of user %d: %w", id, err)
	}
	u.Role = role
	s.identities.Remove(id)
	s.logger.Info("user role changed", "user_id", id, "from", previous, "to", role)
	return u, nil
}

// ChangeStatus activates, suspends or resets a user to pending.
func (s *Service) ChangeStatus(ctx context.Context, id uint, status string) (*models.User, error) {
	switch status {
	case models.UserStatusActive, models.UserStatusPending, models.UserStatusInactive:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, status)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("change status of user %d: %w", id, err)
	}
	u.Status = status
	s.identities.Remove(id)
	s.logger.Info("user status changed", "user_id", id, "status", status)
	return u, nil
}

func (s *Service) roleExists(ctx context.Context, role string) bool {
	if permission.IsBuiltin(role) {
		return true
	}
	for _, info := range s.resolver.AllRoles(ctx, "") {
		if info.Key == role {
			return true
		}
	}
	return false
}
