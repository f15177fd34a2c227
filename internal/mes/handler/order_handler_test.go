package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/service"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/testutil"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrderTest(t *testing.T) (*testutil.TestEnv, *OrderHandler) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	qrSvc := service.NewQRCodeService(nil, "", t.TempDir())
	orderSvc := service.NewOrderService(repos.WorkOrder, repos.RejectionLog, qrSvc, db, zap.NewNop())
	h := NewOrderHandler(orderSvc, qrSvc)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/work-orders", h.List)
	api.POST("/work-orders", middleware.RequireRole(entity.RoleManager, entity.RoleMaster), h.Create)
	api.POST("/work-orders/scan", h.Scan)
	api.GET("/work-orders/:orderNo", h.Get)
	api.POST("/work-orders/:orderNo/report", h.Report)
	api.GET("/work-orders/:orderNo/logs", h.Logs)

	return &testutil.TestEnv{DB: db, Router: router, T: t}, h
}

func getOrder(t *testing.T, db *gorm.DB, orderNo string) *entity.WorkOrder {
	t.Helper()
	var wo entity.WorkOrder
	if err := db.Where("work_order_no = ?", orderNo).First(&wo).Error; err != nil {
		t.Fatalf("order %s not found: %v", orderNo, err)
	}
	return &wo
}

func TestScanAssignsOrder(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/scan",
		map[string]interface{}{"work_order_no": "WO-1", "machine": "CNC-3"},
		testutil.OperatorToken("SUSHIL BABAR"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["outcome"] != "assigned" {
		t.Errorf("Expected outcome assigned, got %v", data["outcome"])
	}

	wo := getOrder(t, env.DB, "WO-1")
	if wo.Status != entity.WOStatusInProgress {
		t.Errorf("Expected In Progress, got %s", wo.Status)
	}
	if wo.CurrentOperator != "SUSHIL BABAR" || wo.CurrentMachine != "CNC-3" {
		t.Errorf("Unexpected assignment: %s / %s", wo.CurrentOperator, wo.CurrentMachine)
	}
	if wo.StartTime == nil {
		t.Error("Expected start_time to be set on first scan")
	}
}

func TestScanUnknownOrder(t *testing.T) {
	env, _ := setupOrderTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/scan",
		map[string]interface{}{"work_order_no": "WO-MISSING"},
		testutil.OperatorToken("SUSHIL BABAR"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPartialThenHandoverAcceptance(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, nil)

	// 操作员A领单并报部分完成40
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/scan",
		map[string]interface{}{"work_order_no": "WO-1", "machine": "CNC-1"},
		testutil.OperatorToken("A"))
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "partial", "quantity": 40},
		testutil.OperatorToken("A"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	wo := getOrder(t, env.DB, "WO-1")
	if wo.CompletedQty != 40 {
		t.Errorf("Expected completed_qty 40, got %d", wo.CompletedQty)
	}
	if wo.Status != entity.WOStatusWaitingHandover {
		t.Errorf("Expected Waiting for Handover, got %s", wo.Status)
	}
	if wo.EndTime == nil {
		t.Error("Expected end_time to be set")
	}

	// 操作员B扫码确认交接：工单直接转为Completed并指派给B
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/scan",
		map[string]interface{}{"work_order_no": "WO-1", "machine": "CNC-2"},
		testutil.OperatorToken("B"))
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	resp2 := testutil.ParseResponse(w2)
	if resp2["data"].(map[string]interface{})["outcome"] != "handover_completed" {
		t.Errorf("Expected handover_completed, got %v", resp2["data"])
	}

	wo = getOrder(t, env.DB, "WO-1")
	if wo.Status != entity.WOStatusCompleted {
		t.Errorf("Expected Completed, got %s", wo.Status)
	}
	if wo.PreviousOperator != "A" || wo.CurrentOperator != "B" {
		t.Errorf("Unexpected operators: prev=%s cur=%s", wo.PreviousOperator, wo.CurrentOperator)
	}
}

func TestScanCompletedOrderIsNoop(t *testing.T) {
	env, _ := setupOrderTest(t)
	end := time.Now().UTC()
	testutil.SeedWorkOrder(t, env.DB, "WO-DONE", 10, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusCompleted
		wo.CurrentOperator = "A"
		wo.CurrentMachine = "CNC-1"
		wo.EndTime = &end
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/scan",
		map[string]interface{}{"work_order_no": "WO-DONE", "machine": "CNC-9"},
		testutil.OperatorToken("C"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["data"].(map[string]interface{})["outcome"] != "already_completed" {
		t.Errorf("Expected already_completed, got %v", resp["data"])
	}

	wo := getOrder(t, env.DB, "WO-DONE")
	if wo.CurrentOperator != "A" || wo.CurrentMachine != "CNC-1" {
		t.Errorf("Completed order must not be mutated: %s / %s", wo.CurrentOperator, wo.CurrentMachine)
	}
}

func TestRejectSpawnsReworkOrder(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-2", 50, nil)

	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/scan",
		map[string]interface{}{"work_order_no": "WO-2", "machine": "CNC-1"},
		testutil.OperatorToken("A"))

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-2/report",
		map[string]interface{}{"action": "reject", "quantity": 10, "reason": "burr"},
		testutil.OperatorToken("A"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	wo := getOrder(t, env.DB, "WO-2")
	if wo.RejectedQty != 10 {
		t.Errorf("Expected rejected_qty 10, got %d", wo.RejectedQty)
	}
	if wo.Status != entity.WOStatusWaitingHandover {
		t.Errorf("Expected Waiting for Handover, got %s", wo.Status)
	}

	// 返工单：数量等于不良数，状态Not Started，继承订单信息
	var rework entity.WorkOrder
	if err := env.DB.Where("work_order_no LIKE ?", "WO-2-R%").First(&rework).Error; err != nil {
		t.Fatalf("Expected rework order to exist: %v", err)
	}
	if rework.Quantity != 10 {
		t.Errorf("Expected rework quantity 10, got %d", rework.Quantity)
	}
	if rework.Status != entity.WOStatusNotStarted {
		t.Errorf("Expected rework Not Started, got %s", rework.Status)
	}
	if rework.ClientName != wo.ClientName || rework.Diameter != wo.Diameter {
		t.Error("Expected rework order to inherit order metadata")
	}

	var logs []entity.RejectionLog
	env.DB.Where("work_order_id = ?", wo.ID).Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("Expected 1 rejection log, got %d", len(logs))
	}
	if logs[0].Quantity != 10 || logs[0].Reason != "burr" || logs[0].Operator != "A" {
		t.Errorf("Unexpected rejection log: %+v", logs[0])
	}
}

func TestQuantityExceededLeavesStateUnchanged(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusInProgress
		wo.CurrentOperator = "A"
		wo.CompletedQty = 40
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "reject", "quantity": 200, "reason": "burr"},
		testutil.OperatorToken("A"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	wo := getOrder(t, env.DB, "WO-1")
	if wo.CompletedQty != 40 || wo.RejectedQty != 0 {
		t.Errorf("Order must be unchanged: completed=%d rejected=%d", wo.CompletedQty, wo.RejectedQty)
	}
	if wo.Status != entity.WOStatusInProgress {
		t.Errorf("Expected In Progress, got %s", wo.Status)
	}

	var logCount, orderCount int64
	env.DB.Model(&entity.RejectionLog{}).Count(&logCount)
	env.DB.Model(&entity.WorkOrder{}).Count(&orderCount)
	if logCount != 0 {
		t.Errorf("Expected no rejection logs, got %d", logCount)
	}
	if orderCount != 1 {
		t.Errorf("Expected no rework order, got %d orders", orderCount)
	}
}

func TestInvalidQuantity(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "complete", "quantity": 0},
		testutil.OperatorToken("A"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOperatorCannotCloseOrder(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusWaitingHandover
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "close_order"},
		testutil.OperatorToken("A"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}

	wo := getOrder(t, env.DB, "WO-1")
	if wo.Status != entity.WOStatusWaitingHandover {
		t.Errorf("Expected status unchanged, got %s", wo.Status)
	}
}

func TestManagerClosesOrder(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusWaitingHandover
		wo.CompletedQty = 60
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "close_order"},
		testutil.ManagerToken("GOVIND KHOSE"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	wo := getOrder(t, env.DB, "WO-1")
	if wo.Status != entity.WOStatusCompleted {
		t.Errorf("Expected Completed, got %s", wo.Status)
	}
	if wo.EndTime == nil {
		t.Error("Expected end_time to be set")
	}
}

func TestManagerReportsAsOperator(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusInProgress
		wo.CurrentOperator = "GOVIND KHOSE"
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "partial", "quantity": 25},
		testutil.ManagerToken("GOVIND KHOSE"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	wo := getOrder(t, env.DB, "WO-1")
	if wo.CompletedQty != 25 || wo.Status != entity.WOStatusWaitingHandover {
		t.Errorf("Expected operator semantics for manager: completed=%d status=%s", wo.CompletedQty, wo.Status)
	}
}

func TestComplaintOverwritten(t *testing.T) {
	env, _ := setupOrderTest(t)
	testutil.SeedWorkOrder(t, env.DB, "WO-1", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusInProgress
		wo.CurrentOperator = "A"
		wo.Complaint = "old complaint"
	})

	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/WO-1/report",
		map[string]interface{}{"action": "partial", "quantity": 10, "complaint": "edge chipping"},
		testutil.OperatorToken("A"))

	wo := getOrder(t, env.DB, "WO-1")
	if wo.Complaint != "edge chipping" {
		t.Errorf("Expected complaint to be overwritten, got %q", wo.Complaint)
	}
}

func TestCreateOrderAndDuplicate(t *testing.T) {
	env, _ := setupOrderTest(t)
	token := testutil.ManagerToken("GOVIND KHOSE")

	body := map[string]interface{}{
		"work_order_no":  "WO-100",
		"client_name":    "Acme Tools",
		"po_number":      "PO-9",
		"part_name":      "Drill 8mm",
		"quantity":       30,
		"diameter":       8.0,
		"flute_length":   30.0,
		"overall_length": 80.0,
		"due_date":       "2025-11-30",
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders", body, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on duplicate, got %d: %s", w2.Code, w2.Body.String())
	}

	// 操作员无权创建工单
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders",
		map[string]interface{}{"work_order_no": "WO-101", "quantity": 5},
		testutil.OperatorToken("A"))
	if w3.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for operator, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestOrderLogsChronological(t *testing.T) {
	env, _ := setupOrderTest(t)

	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	handover := start.Add(2 * time.Hour)
	end := start.Add(5 * time.Hour)
	wo := testutil.SeedWorkOrder(t, env.DB, "WO-LOG", 100, func(wo *entity.WorkOrder) {
		wo.Status = entity.WOStatusWaitingHandover
		wo.CurrentOperator = "A"
		wo.CompletedQty = 60
		wo.StartTime = &start
		wo.LastHandoverTime = &handover
		wo.EndTime = &end
	})

	rejAt := start.Add(3 * time.Hour)
	env.DB.Create(&entity.RejectionLog{
		ID: "rej-log-001", WorkOrderID: wo.ID, WorkOrderNo: wo.WorkOrderNo,
		Operator: "A", Quantity: 5, Reason: "burr", Timestamp: rejAt,
	})

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/work-orders/WO-LOG/logs", nil,
		testutil.OperatorToken("A"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	logs := resp["data"].(map[string]interface{})["logs"].([]interface{})
	if len(logs) != 4 {
		t.Fatalf("Expected 4 log entries, got %d", len(logs))
	}

	wantActions := []string{"Started", "Handed Over", "Rejected", entity.WOStatusWaitingHandover}
	for i, raw := range logs {
		entry := raw.(map[string]interface{})
		if entry["action"] != wantActions[i] {
			t.Errorf("Entry %d: expected action %q, got %v", i, wantActions[i], entry["action"])
		}
	}
}
