package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 报工操作类型
const (
	ActionComplete   = "complete"
	ActionPartial    = "partial"
	ActionReject     = "reject"
	ActionCloseOrder = "close_order"
)

// 扫码结果
const (
	ScanOutcomeAssigned         = "assigned"
	ScanOutcomeHandoverComplete = "handover_completed"
	ScanOutcomeAlreadyComplete  = "already_completed"
)

// OrderService 工单生命周期服务
type OrderService struct {
	woRepo  *repository.WorkOrderRepository
	rejRepo *repository.RejectionLogRepository
	qrSvc   *QRCodeService
	db      *gorm.DB
	logger  *zap.Logger
}

func NewOrderService(woRepo *repository.WorkOrderRepository, rejRepo *repository.RejectionLogRepository, qrSvc *QRCodeService, db *gorm.DB, logger *zap.Logger) *OrderService {
	return &OrderService{woRepo: woRepo, rejRepo: rejRepo, qrSvc: qrSvc, db: db, logger: logger}
}

type CreateWorkOrderRequest struct {
	WorkOrderNo   string  `json:"work_order_no" binding:"required"`
	ClientName    string  `json:"client_name"`
	PONumber      string  `json:"po_number"`
	PartName      string  `json:"part_name"`
	Quantity      int     `json:"quantity" binding:"required,gt=0"`
	Diameter      float64 `json:"diameter"`
	FluteLength   float64 `json:"flute_length"`
	OverallLength float64 `json:"overall_length"`
	DueDate       string  `json:"due_date"`
}

// Create 创建工单
func (s *OrderService) Create(ctx context.Context, req CreateWorkOrderRequest, createdBy string) (*entity.WorkOrder, error) {
	exists, err := s.woRepo.Exists(ctx, req.WorkOrderNo)
	if err != nil {
		return nil, fmt.Errorf("查询工单号失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrderNo, req.WorkOrderNo)
	}

	wo := &entity.WorkOrder{
		ID:            uuid.New().String(),
		WorkOrderNo:   req.WorkOrderNo,
		ClientName:    req.ClientName,
		PONumber:      req.PONumber,
		PartName:      req.PartName,
		Quantity:      req.Quantity,
		Diameter:      req.Diameter,
		FluteLength:   req.FluteLength,
		OverallLength: req.OverallLength,
		DueDate:       req.DueDate,
		Status:        entity.WOStatusNotStarted,
		CreatedBy:     createdBy,
	}
	if err := s.woRepo.Create(ctx, wo); err != nil {
		return nil, fmt.Errorf("创建工单失败: %w", err)
	}

	// 二维码生成为尽力而为的副作用，失败只记日志
	s.generateQRAsync(wo.WorkOrderNo)
	return wo, nil
}

// ScanResult 扫码/分配结果
type ScanResult struct {
	Order   *entity.WorkOrder `json:"order"`
	Outcome string            `json:"outcome"`
}

// Scan 扫码领单。待交接的工单扫码即视为交接确认：
// 重新指派给新操作员并直接标记为Completed（沿用现场现行流程）。
func (s *OrderService) Scan(ctx context.Context, orderNo, operator, machine string) (*ScanResult, error) {
	result := &ScanResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo entity.WorkOrder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("work_order_no = ?", orderNo).First(&wo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, orderNo)
			}
			return err
		}

		now := time.Now().UTC()
		switch wo.Status {
		case entity.WOStatusWaitingHandover:
			wo.PreviousOperator = wo.CurrentOperator
			wo.CurrentOperator = operator
			wo.CurrentMachine = machine
			wo.Status = entity.WOStatusCompleted
			wo.EndTime = &now
			result.Outcome = ScanOutcomeHandoverComplete

		case entity.WOStatusCompleted:
			// 已完成的工单不再变更
			result.Outcome = ScanOutcomeAlreadyComplete
			result.Order = &wo
			return nil

		default:
			wo.PreviousOperator = wo.CurrentOperator
			wo.CurrentOperator = operator
			wo.CurrentMachine = machine
			wo.Status = entity.WOStatusInProgress
			if wo.StartTime == nil {
				wo.StartTime = &now
			} else {
				wo.LastHandoverTime = &now
			}
			result.Outcome = ScanOutcomeAssigned
		}

		if err := tx.Save(&wo).Error; err != nil {
			return fmt.Errorf("更新工单失败: %w", err)
		}
		result.Order = &wo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type ReportRequest struct {
	Action    string `json:"action" binding:"required"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Complaint string `json:"complaint"`
}

// Report 报工。数量校验、字段更新、不良记录与返工单创建在同一事务内完成，
// 校验不通过时不产生任何变更。
func (s *OrderService) Report(ctx context.Context, orderNo, operator, role string, req ReportRequest) (*entity.WorkOrder, error) {
	var updated *entity.WorkOrder
	var reworkNo string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo entity.WorkOrder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("work_order_no = ?", orderNo).First(&wo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, orderNo)
			}
			return err
		}

		if req.Quantity <= 0 && req.Action != ActionCloseOrder {
			return ErrInvalidQuantity
		}
		if req.Quantity > wo.Remaining() {
			return fmt.Errorf("%w (%d)", ErrQuantityExceeded, wo.Quantity)
		}

		if req.Complaint != "" {
			wo.Complaint = req.Complaint
		}

		now := time.Now().UTC()
		action := req.Action

		// 管理员关闭工单；其余操作按操作员语义处理
		if role == entity.RoleManager || role == entity.RoleMaster {
			if action == ActionCloseOrder {
				wo.Status = entity.WOStatusCompleted
				wo.EndTime = &now
				if err := tx.Save(&wo).Error; err != nil {
					return fmt.Errorf("更新工单失败: %w", err)
				}
				updated = &wo
				return nil
			}
		} else if action == ActionCloseOrder {
			return fmt.Errorf("%w: 操作员不能关闭工单", ErrForbidden)
		}

		switch action {
		case ActionComplete, ActionPartial:
			wo.CompletedQty += req.Quantity
			wo.Status = entity.WOStatusWaitingHandover
			wo.EndTime = &now

		case ActionReject:
			reason := req.Reason
			if reason == "" {
				reason = "No reason"
			}
			wo.RejectedQty += req.Quantity
			rej := &entity.RejectionLog{
				ID:          uuid.New().String(),
				WorkOrderID: wo.ID,
				WorkOrderNo: wo.WorkOrderNo,
				Operator:    wo.CurrentOperator,
				Quantity:    req.Quantity,
				Reason:      reason,
				Timestamp:   now,
			}
			if err := tx.Create(rej).Error; err != nil {
				return fmt.Errorf("写入不良记录失败: %w", err)
			}
			wo.Status = entity.WOStatusWaitingHandover
			wo.EndTime = &now

			// 自动创建返工单：数量等于本次不良数，继承订单信息
			no, err := nextReworkNo(tx, wo.WorkOrderNo)
			if err != nil {
				return err
			}
			rework := &entity.WorkOrder{
				ID:            uuid.New().String(),
				WorkOrderNo:   no,
				ClientName:    wo.ClientName,
				PONumber:      wo.PONumber,
				PartName:      wo.PartName,
				Quantity:      req.Quantity,
				Diameter:      wo.Diameter,
				FluteLength:   wo.FluteLength,
				OverallLength: wo.OverallLength,
				DueDate:       wo.DueDate,
				Status:        entity.WOStatusNotStarted,
				Complaint:     req.Complaint,
				CreatedBy:     operator,
			}
			if err := tx.Create(rework).Error; err != nil {
				return fmt.Errorf("创建返工单失败: %w", err)
			}
			reworkNo = no

		default:
			return fmt.Errorf("不支持的操作: %s", action)
		}

		if err := tx.Save(&wo).Error; err != nil {
			return fmt.Errorf("更新工单失败: %w", err)
		}
		updated = &wo
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reworkNo != "" {
		s.generateQRAsync(reworkNo)
	}
	return updated, nil
}

// nextReworkNo 生成唯一返工单号。随机后缀冲突时重试，
// 多次冲突后退回uuid派生后缀。
func nextReworkNo(tx *gorm.DB, base string) (string, error) {
	for i := 0; i < 10; i++ {
		no := fmt.Sprintf("%s-R%04d", base, rand.Intn(9000)+1000)
		var total int64
		if err := tx.Model(&entity.WorkOrder{}).
			Where("work_order_no = ?", no).Count(&total).Error; err != nil {
			return "", fmt.Errorf("查询返工单号失败: %w", err)
		}
		if total == 0 {
			return no, nil
		}
	}
	return fmt.Sprintf("%s-R%s", base, uuid.New().String()[:8]), nil
}

func (s *OrderService) generateQRAsync(orderNo string) {
	if s.qrSvc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.qrSvc.Generate(ctx, orderNo); err != nil {
			s.logger.Error("生成二维码失败",
				zap.String("work_order_no", orderNo), zap.Error(err))
		}
	}()
}

func (s *OrderService) GetByOrderNo(ctx context.Context, orderNo string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderNo)
		}
		return nil, err
	}
	return wo, nil
}

func (s *OrderService) List(ctx context.Context, params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	return s.woRepo.List(ctx, params)
}

const logTimeLayout = "2006-01-02 15:04"

// OrderLogEntry 工单日志条目
type OrderLogEntry struct {
	Timestamp string `json:"timestamp"`
	Operator  string `json:"operator"`
	Action    string `json:"action"`
	Quantity  int    `json:"quantity,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// OrderLogs 拼装工单历史：开工、交接、终态与全部不良记录，按时间升序。
// 时间格式固定为 YYYY-MM-DD HH:MM，字典序即时间序。
func (s *OrderService) OrderLogs(ctx context.Context, orderNo string) (*entity.WorkOrder, []OrderLogEntry, error) {
	wo, err := s.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, nil, err
	}

	logs := []OrderLogEntry{}
	if wo.StartTime != nil {
		logs = append(logs, OrderLogEntry{
			Timestamp: wo.StartTime.Format(logTimeLayout),
			Operator:  wo.CurrentOperator,
			Action:    "Started",
		})
	}
	if wo.LastHandoverTime != nil {
		logs = append(logs, OrderLogEntry{
			Timestamp: wo.LastHandoverTime.Format(logTimeLayout),
			Operator:  wo.CurrentOperator,
			Action:    "Handed Over",
			Reason:    wo.Complaint,
		})
	}
	if wo.EndTime != nil {
		logs = append(logs, OrderLogEntry{
			Timestamp: wo.EndTime.Format(logTimeLayout),
			Operator:  wo.CurrentOperator,
			Action:    wo.Status,
			Quantity:  wo.CompletedQty,
			Reason:    wo.Complaint,
		})
	}

	rejections, err := s.rejRepo.ListByOrder(ctx, wo.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询不良记录失败: %w", err)
	}
	for _, rej := range rejections {
		logs = append(logs, OrderLogEntry{
			Timestamp: rej.Timestamp.Format(logTimeLayout),
			Operator:  rej.Operator,
			Action:    "Rejected",
			Quantity:  rej.Quantity,
			Reason:    rej.Reason,
		})
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp < logs[j].Timestamp
	})
	return wo, logs, nil
}
