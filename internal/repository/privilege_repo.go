package repository

import (
	"context"

	"go-scan-pos/internal/model"

	"gorm.io/gorm"
)

type privilegeRepo struct {
	db *gorm.DB
}

func NewPrivilegeRepo(db *gorm.DB) PrivilegeRepository {
	return &privilegeRepo{db}
}

func (r *privilegeRepo) FindAll(ctx context.Context) ([]model.Privilege, error) {
	var privileges []model.Privilege
	err := r.db.WithContext(ctx).Order("code ASC").Find(&privileges).Error
	return privileges, translateError(err)
}
