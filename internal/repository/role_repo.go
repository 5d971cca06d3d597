package repository

import (
	"context"
	"errors"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"

	"gorm.io/gorm"
)

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Privileges").Find(&roles).Error
	return roles, translateError(err)
}

func (r *roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Preload("Privileges").Where("code = ?", code).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("role %s not found", code)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &role, nil
}

// SeedDefaults creates default privileges and roles, then grants each role
// its default privileges when it has none yet
func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	for _, p := range model.DefaultPrivileges {
		var existing model.Privilege
		err := db.Where("code = ?", p.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p := p
			if err := db.Create(&p).Error; err != nil {
				return translateError(err)
			}
		} else if err != nil {
			return translateError(err)
		}
	}

	var allPrivileges []model.Privilege
	if err := db.Find(&allPrivileges).Error; err != nil {
		return translateError(err)
	}

	for _, defaultRole := range model.DefaultRoles {
		var role model.Role
		err := db.Preload("Privileges").Where("code = ?", defaultRole.Code).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role = defaultRole
			if err := db.Create(&role).Error; err != nil {
				return translateError(err)
			}
		} else if err != nil {
			return translateError(err)
		}

		if len(role.Privileges) > 0 {
			continue
		}
		granted := privilegesFor(role.Code, allPrivileges)
		if err := db.Model(&role).Association("Privileges").Replace(granted); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// privilegesFor picks the default privileges of a role out of all known ones
func privilegesFor(roleCode string, all []model.Privilege) []model.Privilege {
	codes, ok := model.DefaultRolePrivileges[roleCode]
	if !ok {
		return nil
	}
	if codes == nil {
		return all
	}
	var granted []model.Privilege
	for _, p := range all {
		for _, c := range codes {
			if p.Code == c {
				granted = append(granted, p)
			}
		}
	}
	return granted
}
