package repository

import (
	"context"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RejectionLogRepository 不良品记录仓库。
// 只暴露追加与查询，记录一旦写入不再变更。
type RejectionLogRepository struct {
	db *gorm.DB
}

func NewRejectionLogRepository(db *gorm.DB) *RejectionLogRepository {
	return &RejectionLogRepository{db: db}
}

// Create 追加一条不良品记录
func (r *RejectionLogRepository) Create(ctx context.Context, log *entity.RejectionLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByOrder 查询某工单的不良品记录，按时间升序
func (r *RejectionLogRepository) ListByOrder(ctx context.Context, workOrderID string) ([]entity.RejectionLog, error) {
	var logs []entity.RejectionLog
	err := r.db.WithContext(ctx).Where("work_order_id = ?", workOrderID).
		Order("timestamp ASC").Find(&logs).Error
	return logs, err
}

// ListByOperator 查询某操作员的不良品记录
func (r *RejectionLogRepository) ListByOperator(ctx context.Context, operator string) ([]entity.RejectionLog, error) {
	var logs []entity.RejectionLog
	err := r.db.WithContext(ctx).Where("operator = ?", operator).Find(&logs).Error
	return logs, err
}
