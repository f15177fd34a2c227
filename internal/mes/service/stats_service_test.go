package service

import (
	"context"
	"testing"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/testutil"
)

func TestListEfficiency(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedTestUser(t, db, "X", entity.RoleOperator)
	testutil.SeedTestUser(t, db, "Y", entity.RoleOperator)
	// 管理员不进入效率列表
	testutil.SeedTestUser(t, db, "GOVIND KHOSE", entity.RoleManager)

	now := time.Now().UTC()
	old := now.Add(-8 * 24 * time.Hour)

	// X: 4单共400件，2单完成，不良30件（今日20+历史10）
	testutil.SeedWorkOrder(t, db, "WO-X1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusCompleted
		wo.CurrentOperator = "X"
		wo.CompletedQty = 100
		wo.EndTime = &now
	})
	testutil.SeedWorkOrder(t, db, "WO-X2", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusCompleted
		wo.CurrentOperator = "X"
		wo.CompletedQty = 80
		wo.EndTime = &old
	})
	testutil.SeedWorkOrder(t, db, "WO-X3", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusInProgress
		wo.CurrentOperator = "X"
	})
	wo4 := testutil.SeedWorkOrder(t, db, "WO-X4", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusWaitingHandover
		wo.CurrentOperator = "X"
		wo.RejectedQty = 30
	})
	db.Create(&entity.RejectionLog{
		ID: "rej-x-1", WorkOrderID: wo4.ID, WorkOrderNo: "WO-X4", Operator: "X",
		Quantity: 20, Reason: "burr", Timestamp: now,
	})
	db.Create(&entity.RejectionLog{
		ID: "rej-x-2", WorkOrderID: wo4.ID, WorkOrderNo: "WO-X4", Operator: "X",
		Quantity: 10, Reason: "chipping", Timestamp: old,
	})

	svc := NewStatsService(repository.NewUserRepository(db), db)
	list, err := svc.ListEfficiency(context.Background())
	if err != nil {
		t.Fatalf("ListEfficiency failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 operators, got %d", len(list))
	}

	byOp := map[string]OperatorEfficiency{}
	for _, eff := range list {
		byOp[eff.Operator] = eff
	}

	x := byOp["X"]
	if x.Completed != 2 || x.TotalOrders != 4 || x.TotalQty != 400 {
		t.Errorf("X counts wrong: %+v", x)
	}
	if x.RejectedQty != 30 {
		t.Errorf("Expected rejected_qty 30, got %d", x.RejectedQty)
	}
	if x.CompletionRate != 50.0 {
		t.Errorf("Expected completion_rate 50.0, got %v", x.CompletionRate)
	}
	if x.RejectionRate != 7.5 {
		t.Errorf("Expected rejection_rate 7.5, got %v", x.RejectionRate)
	}
	if x.TimeEfficiency != 100 {
		t.Errorf("Expected time_efficiency 100, got %d", x.TimeEfficiency)
	}
	// (50 + 92.5 + 100) / 3 = 80.8
	if x.OverallScore != 80.8 {
		t.Errorf("Expected overall_score 80.8, got %v", x.OverallScore)
	}
	if x.DailyCompleted != 100 || x.DailyRejected != 20 {
		t.Errorf("Daily counts wrong: completed=%d rejected=%d", x.DailyCompleted, x.DailyRejected)
	}

	// Y: 无工单，分母为零时各率为0
	y := byOp["Y"]
	if y.TotalOrders != 0 || y.CompletionRate != 0 || y.RejectionRate != 0 {
		t.Errorf("Y should have zero stats: %+v", y)
	}
	// (0 + 100 + 100) / 3 = 66.7
	if y.OverallScore != 66.7 {
		t.Errorf("Expected overall_score 66.7, got %v", y.OverallScore)
	}
}

func TestGetOperatorStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	now := time.Now().UTC()
	old := now.Add(-8 * 24 * time.Hour)

	// 今日结单计入日与周
	testutil.SeedWorkOrder(t, db, "WO-S1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusWaitingHandover
		wo.CurrentOperator = "X"
		wo.CompletedQty = 40
		wo.RejectedQty = 5
		wo.EndTime = &now
	})
	// 上周结单不计入任一窗口
	testutil.SeedWorkOrder(t, db, "WO-S2", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusCompleted
		wo.CurrentOperator = "X"
		wo.CompletedQty = 100
		wo.EndTime = &old
	})
	// 其他操作员不计入
	testutil.SeedWorkOrder(t, db, "WO-S3", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusCompleted
		wo.CurrentOperator = "Y"
		wo.CompletedQty = 100
		wo.EndTime = &now
	})

	svc := NewStatsService(repository.NewUserRepository(db), db)
	stats, err := svc.GetOperatorStats(context.Background(), "X")
	if err != nil {
		t.Fatalf("GetOperatorStats failed: %v", err)
	}
	if stats.DailyCompleted != 40 || stats.DailyRejected != 5 {
		t.Errorf("Daily wrong: %+v", stats)
	}
	if stats.WeeklyCompleted != 40 || stats.WeeklyRejected != 5 {
		t.Errorf("Weekly wrong: %+v", stats)
	}
}

func TestGetDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	now := time.Now().UTC()

	testutil.SeedWorkOrder(t, db, "WO-D1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusInProgress
		wo.CurrentOperator = "X"
		wo.CompletedQty = 20
	})
	testutil.SeedWorkOrder(t, db, "WO-D2", 50, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusCompleted
		wo.CurrentOperator = "X"
		wo.CompletedQty = 50
		wo.RejectedQty = 3
		wo.EndTime = &now
	})
	testutil.SeedWorkOrder(t, db, "WO-D3", 30, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusWaitingHandover
		wo.CurrentOperator = "Y"
		wo.CompletedQty = 10
		wo.Diameter = 10.0
	})

	svc := NewStatsService(repository.NewUserRepository(db), db)
	dash, err := svc.GetDashboard(context.Background())
	if err != nil {
		t.Fatalf("GetDashboard failed: %v", err)
	}

	// 已完成的工单不在在制列表中
	if len(dash.ActiveOrders) != 2 {
		t.Errorf("Expected 2 active orders, got %d", len(dash.ActiveOrders))
	}
	if dash.TotalOrders != 3 {
		t.Errorf("Expected 3 total orders, got %d", dash.TotalOrders)
	}

	empByOp := map[string]EmployeeStat{}
	for _, st := range dash.EmployeeStats {
		empByOp[st.Operator] = st
	}
	if empByOp["X"].Completed != 70 || empByOp["X"].Rejected != 3 {
		t.Errorf("X employee stat wrong: %+v", empByOp["X"])
	}
	if empByOp["Y"].Completed != 10 {
		t.Errorf("Y employee stat wrong: %+v", empByOp["Y"])
	}

	if len(dash.DimensionStats) != 2 {
		t.Errorf("Expected 2 dimension groups, got %d", len(dash.DimensionStats))
	}
}

func TestMondayOf(t *testing.T) {
	cases := []struct {
		day  time.Time
		want time.Time
	}{
		// 周三
		{time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		// 周一当天
		{time.Date(2025, 3, 10, 0, 5, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		// 周日归属上周一
		{time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := mondayOf(tc.day); !got.Equal(tc.want) {
			t.Errorf("mondayOf(%v) = %v, want %v", tc.day, got, tc.want)
		}
	}
}

func TestRound1(t *testing.T) {
	if got := round1(7.45); got != 7.5 {
		t.Errorf("round1(7.45) = %v", got)
	}
	if got := round1(33.333); got != 33.3 {
		t.Errorf("round1(33.333) = %v", got)
	}
}
