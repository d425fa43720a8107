package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/models"
	"gorm.io/gorm"
)

// RoleSource lists stored roles with their permissions.
type RoleSource interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
}

// GormRoleRepository reads and writes roles in the relational store.
type GormRoleRepository struct {
	DB *gorm.DB
}

func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{DB: db}
}

// ListRoles returns every stored role, preloading permissions.
func (r *GormRoleRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Preload("Permissions").Order("key").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetRole finds a role by key.
func (r *GormRoleRepository) GetRole(ctx context.Context, key string) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Preload("Permissions").Where("key = ?", key).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get role %s: %w", key, err)
	}
	return &role, nil
}

// SaveRole creates or updates role and replaces its permission set.
func (r *GormRoleRepository) SaveRole(ctx context.Context, role *models.Role, codes []gate.Permission) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms, err := ensurePermissions(tx, codes)
		if err != nil {
			return err
		}
		if err := tx.Omit("Permissions").Save(role).Error; err != nil {
			return fmt.Errorf("save role %s: %w", role.Key, err)
		}
		if err := tx.Model(role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("replace permissions of %s: %w", role.Key, err)
		}
		role.Permissions = perms
		return nil
	})
}

// DeleteRole removes a role and its permission links.
func (r *GormRoleRepository) DeleteRole(ctx context.Context, role *models.Role) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("clear permissions of %s: %w", role.Key, err)
		}
		if err := tx.Unscoped().Delete(role).Error; err != nil {
			return fmt.Errorf("delete role %s: %w", role.Key, err)
		}
		return nil
	})
}

// CountUsersWithRole reports how many users are assigned role.
func (r *GormRoleRepository) CountUsersWithRole(ctx context.Context, key string) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("role = ?", key).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users with role %s: %w", key, err)
	}
	return n, nil
}

// ensurePermissions returns permission rows for codes, creating missing ones.
func ensurePermissions(tx *gorm.DB, codes []gate.Permission) ([]models.Permission, error) {
	perms := make([]models.Permission, 0, len(codes))
	for _, code := range codes {
		mod, act := code.Parse()
		perm := models.Permission{Module: string(mod), Action: string(act)}
		if err := tx.Where("module = ? AND action = ?", perm.Module, perm.Action).FirstOrCreate(&perm).Error; err != nil {
			return nil, fmt.Errorf("permission %s: %w", code, err)
		}
		perms = append(perms, perm)
	}
	return perms, nil
}
