package db

import (
	"fmt"

	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/models"
	"github.com/diewo77/go-church/internal/permission"
	"gorm.io/gorm"
)

// SeedPermissions creates one permission row per module/action pair, the
// per-module wildcards and the superadmin wildcard.
func SeedPermissions(db *gorm.DB) error {
	codes := []gate.Permission{gate.PermissionSuperAdmin}
	for _, mod := range gate.Modules {
		codes = append(codes, gate.NewPermission(mod, gate.WildcardAll))
		for _, act := range gate.Actions {
			codes = append(codes, gate.NewPermission(mod, act))
		}
	}
	for _, code := range codes {
		if _, err := firstOrCreatePermission(db, code); err != nil {
			return err
		}
	}
	return nil
}

// SeedRoles stores the built-in roles with their default permissions.
// Existing roles are left untouched so administrator edits survive restarts.
func SeedRoles(db *gorm.DB) error {
	// First ensure permissions exist
	if err := SeedPermissions(db); err != nil {
		return err
	}

	for _, key := range permission.BuiltinRoles {
		var count int64
		if err := db.Model(&models.Role{}).Where("key = ?", key).Count(&count).Error; err != nil {
			return fmt.Errorf("check role %s: %w", key, err)
		}
		if count > 0 {
			continue
		}

		table, _ := permission.BuiltinTable(key)
		var perms []models.Permission
		for _, code := range table.Permissions() {
			perm, err := firstOrCreatePermission(db, code)
			if err != nil {
				return err
			}
			perms = append(perms, perm)
		}
		role := models.Role{
			Key:         key,
			DisplayName: i18n.T(i18n.DefaultLang, "role."+key),
			IsSystem:    true,
			Permissions: perms,
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", key, err)
		}
	}
	return nil
}

func firstOrCreatePermission(db *gorm.DB, code gate.Permission) (models.Permission, error) {
	mod, act := code.Parse()
	perm := models.Permission{
		Module:      string(mod),
		Action:      string(act),
		Description: describe(mod, act),
	}
	// Use FirstOrCreate to avoid duplicates
	err := db.Where("module = ? AND action = ?", perm.Module, perm.Action).FirstOrCreate(&perm).Error
	if err != nil {
		return perm, fmt.Errorf("seed permission %s: %w", code, err)
	}
	return perm, nil
}

func describe(mod gate.Module, act gate.Action) string {
	switch {
	case string(mod) == gate.WildcardAll:
		return "Full system access"
	case string(act) == gate.WildcardAll:
		return "All actions on " + i18n.T("en", "module."+string(mod))
	default:
		return i18n.T("en", "action."+string(act)) + " " + i18n.T("en", "module."+string(mod))
	}
}
