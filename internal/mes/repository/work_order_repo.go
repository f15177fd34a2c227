package repository

import (
	"context"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"gorm.io/gorm"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

func (r *WorkOrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).Where("work_order_no = ?", orderNo).First(&wo).Error
	return &wo, err
}

func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

// Exists 判断工单号是否已存在
func (r *WorkOrderRepository) Exists(ctx context.Context, orderNo string) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Where("work_order_no = ?", orderNo).Count(&total).Error
	return total > 0, err
}

type WOListParams struct {
	Status   string
	Operator string
	Keyword  string
	Page     int
	Size     int
}

func (r *WorkOrderRepository) List(ctx context.Context, params WOListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Operator != "" {
		query = query.Where("current_operator = ?", params.Operator)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where(
			"work_order_no ILIKE ? OR client_name ILIKE ? OR po_number ILIKE ? OR current_operator ILIKE ?",
			kw, kw, kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var wos []entity.WorkOrder
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&wos).Error
	return wos, total, err
}

// ListActive 获取未完成的工单
func (r *WorkOrderRepository) ListActive(ctx context.Context) ([]entity.WorkOrder, error) {
	var wos []entity.WorkOrder
	err := r.db.WithContext(ctx).Where("status <> ?", entity.WOStatusCompleted).
		Order("created_at DESC").Find(&wos).Error
	return wos, err
}

// ListByOperator 获取某操作员名下指定状态的工单
func (r *WorkOrderRepository) ListByOperator(ctx context.Context, operator, status string) ([]entity.WorkOrder, error) {
	var wos []entity.WorkOrder
	query := r.db.WithContext(ctx).Where("current_operator = ?", operator)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&wos).Error
	return wos, err
}

// DB 返回底层db用于事务
func (r *WorkOrderRepository) DB() *gorm.DB {
	return r.db
}
