package repository

import "gorm.io/gorm"

// Repositories MES 仓库集合
type Repositories struct {
	User         *UserRepository
	WorkOrder    *WorkOrderRepository
	RejectionLog *RejectionLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		WorkOrder:    NewWorkOrderRepository(db),
		RejectionLog: NewRejectionLogRepository(db),
	}
}
