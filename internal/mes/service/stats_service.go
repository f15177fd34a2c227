package service

import (
	"context"
	"math"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"gorm.io/gorm"
)

// StatsService 操作员绩效统计。只读，直接跑聚合SQL。
// 日界一律按UTC计算。
type StatsService struct {
	userRepo *repository.UserRepository
	db       *gorm.DB
}

func NewStatsService(userRepo *repository.UserRepository, db *gorm.DB) *StatsService {
	return &StatsService{userRepo: userRepo, db: db}
}

// OperatorEfficiency 操作员效率指标
type OperatorEfficiency struct {
	Operator       string  `json:"operator"`
	Completed      int     `json:"completed"`
	Partial        int     `json:"partial"`
	RejectedQty    int     `json:"rejected_qty"`
	TotalOrders    int     `json:"total_orders"`
	TotalQty       int     `json:"total_qty"`
	CompletionRate float64 `json:"completion_rate"`
	RejectionRate  float64 `json:"rejection_rate"`
	TimeEfficiency int     `json:"time_efficiency"`
	OverallScore   float64 `json:"overall_score"`
	DailyCompleted int     `json:"daily_completed"`
	DailyRejected  int     `json:"daily_rejected"`
}

// ListEfficiency 计算每个操作员的效率指标。
// total_orders/total_qty 按 current_operator 即时归属统计，
// 工单被转走后不再计入原操作员。
func (s *StatsService) ListEfficiency(ctx context.Context) ([]OperatorEfficiency, error) {
	operators, err := s.userRepo.ListOperators(ctx)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := utcDayBounds(time.Now().UTC())

	result := make([]OperatorEfficiency, 0, len(operators))
	for _, op := range operators {
		eff := OperatorEfficiency{
			Operator: op.Username,
			// 时间效率暂为占位值，尚无基于工时的计算
			TimeEfficiency: 100,
		}

		var completed, partial, totalOrders int64
		s.db.WithContext(ctx).Model(&entity.WorkOrder{}).
			Where("current_operator = ? AND status = ?", op.Username, entity.WOStatusCompleted).
			Count(&completed)
		s.db.WithContext(ctx).Model(&entity.WorkOrder{}).
			Where("current_operator = ? AND status = ?", op.Username, entity.WOStatusPartial).
			Count(&partial)
		s.db.WithContext(ctx).Model(&entity.WorkOrder{}).
			Where("current_operator = ?", op.Username).
			Count(&totalOrders)
		eff.Completed = int(completed)
		eff.Partial = int(partial)
		eff.TotalOrders = int(totalOrders)

		var totalQty int
		s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(quantity), 0) FROM mes_work_orders WHERE current_operator = ?`,
			op.Username).Scan(&totalQty)
		eff.TotalQty = totalQty

		var rejectedQty int
		s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(quantity), 0) FROM mes_rejection_logs WHERE operator = ?`,
			op.Username).Scan(&rejectedQty)
		eff.RejectedQty = rejectedQty

		if eff.TotalOrders > 0 {
			eff.CompletionRate = round1(float64(eff.Completed) / float64(eff.TotalOrders) * 100)
		}
		if eff.TotalQty > 0 {
			eff.RejectionRate = round1(float64(eff.RejectedQty) / float64(eff.TotalQty) * 100)
		}
		eff.OverallScore = round1((eff.CompletionRate + (100 - eff.RejectionRate) + float64(eff.TimeEfficiency)) / 3)

		s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(completed_qty), 0) FROM mes_work_orders
			 WHERE current_operator = ? AND status = ? AND end_time >= ? AND end_time < ?`,
			op.Username, entity.WOStatusCompleted, dayStart, dayEnd).Scan(&eff.DailyCompleted)

		s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(quantity), 0) FROM mes_rejection_logs
			 WHERE operator = ? AND timestamp >= ? AND timestamp < ?`,
			op.Username, dayStart, dayEnd).Scan(&eff.DailyRejected)

		result = append(result, eff)
	}
	return result, nil
}

// OperatorStats 操作员当日/本周数量统计
type OperatorStats struct {
	DailyCompleted  int `json:"daily_completed"`
	DailyRejected   int `json:"daily_rejected"`
	WeeklyCompleted int `json:"weekly_completed"`
	WeeklyRejected  int `json:"weekly_rejected"`
}

// GetOperatorStats 当日与本周（最近的周一起）的完成/不良数量。
// 只按 current_operator 和 end_time 过滤，不区分状态。
func (s *StatsService) GetOperatorStats(ctx context.Context, username string) (*OperatorStats, error) {
	now := time.Now().UTC()
	dayStart, dayEnd := utcDayBounds(now)
	weekStart := mondayOf(now)

	stats := &OperatorStats{}
	queries := []struct {
		dest  *int
		field string
		from  time.Time
		to    time.Time
	}{
		{&stats.DailyCompleted, "completed_qty", dayStart, dayEnd},
		{&stats.DailyRejected, "rejected_qty", dayStart, dayEnd},
		{&stats.WeeklyCompleted, "completed_qty", weekStart, dayEnd},
		{&stats.WeeklyRejected, "rejected_qty", weekStart, dayEnd},
	}
	for _, q := range queries {
		err := s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(`+q.field+`), 0) FROM mes_work_orders
			 WHERE current_operator = ? AND end_time >= ? AND end_time < ?`,
			username, q.from, q.to).Scan(q.dest).Error
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// EmployeeStat 管理看板按员工汇总
type EmployeeStat struct {
	Operator  string `json:"operator"`
	Completed int    `json:"completed"`
	Rejected  int    `json:"rejected"`
}

// DimensionStat 管理看板按尺寸汇总
type DimensionStat struct {
	Diameter      float64 `json:"diameter"`
	FluteLength   float64 `json:"flute_length"`
	OverallLength float64 `json:"overall_length"`
	Completed     int     `json:"completed"`
	Rejected      int     `json:"rejected"`
}

// Dashboard 管理看板数据
type Dashboard struct {
	ActiveOrders   []entity.WorkOrder `json:"active_orders"`
	TotalOrders    int64              `json:"total_orders"`
	EmployeeStats  []EmployeeStat     `json:"employee_stats"`
	DimensionStats []DimensionStat    `json:"dimension_stats"`
}

// GetDashboard 管理看板：在制工单、按员工与按尺寸的完成/不良汇总
func (s *StatsService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	dash := &Dashboard{}

	var active []entity.WorkOrder
	if err := s.db.WithContext(ctx).
		Where("status <> ?", entity.WOStatusCompleted).
		Order("created_at DESC").Find(&active).Error; err != nil {
		return nil, err
	}
	dash.ActiveOrders = active

	s.db.WithContext(ctx).Model(&entity.WorkOrder{}).Count(&dash.TotalOrders)

	if err := s.db.WithContext(ctx).Raw(`
		SELECT current_operator AS operator,
		       COALESCE(SUM(completed_qty), 0) AS completed,
		       COALESCE(SUM(rejected_qty), 0) AS rejected
		FROM mes_work_orders
		GROUP BY current_operator
	`).Scan(&dash.EmployeeStats).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Raw(`
		SELECT diameter, flute_length, overall_length,
		       COALESCE(SUM(completed_qty), 0) AS completed,
		       COALESCE(SUM(rejected_qty), 0) AS rejected
		FROM mes_work_orders
		GROUP BY diameter, flute_length, overall_length
	`).Scan(&dash.DimensionStats).Error; err != nil {
		return nil, err
	}

	return dash, nil
}

func utcDayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// mondayOf 最近的周一零点（UTC）
func mondayOf(now time.Time) time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(start.Weekday()) - 1
	if offset < 0 {
		offset = 6 // 周日视为周一之后6天
	}
	return start.AddDate(0, 0, -offset)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
