package repository

import (
	"context"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return &user, err
}

// UpdatePIN 修改PIN并清除首次登录标记
func (r *UserRepository) UpdatePIN(ctx context.Context, username, pin string) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{"pin": pin, "must_change_pin": false}).Error
}

// ListOperators 获取所有操作员
func (r *UserRepository) ListOperators(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Where("role = ?", entity.RoleOperator).
		Order("username ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&total).Error
	return total, err
}
