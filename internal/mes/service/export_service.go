package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportService 管理端xlsx导出
type ExportService struct {
	statsSvc *StatsService
	db       *gorm.DB
}

func NewExportService(statsSvc *StatsService, db *gorm.DB) *ExportService {
	return &ExportService{statsSvc: statsSvc, db: db}
}

var workOrderHeaders = []string{
	"工单号", "客户", "PO号", "零件名称", "数量", "完成数", "不良数",
	"直径", "刃长", "总长", "交期", "状态", "当前操作员", "机台",
}

// ExportWorkOrders 导出工单台账
func (s *ExportService) ExportWorkOrders(ctx context.Context) (*excelize.File, string, error) {
	var orders []entity.WorkOrder
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, "", fmt.Errorf("查询工单失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "WorkOrders"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, workOrderHeaders)

	for i, wo := range orders {
		row := i + 2
		values := []interface{}{
			wo.WorkOrderNo, wo.ClientName, wo.PONumber, wo.PartName,
			wo.Quantity, wo.CompletedQty, wo.RejectedQty,
			wo.Diameter, wo.FluteLength, wo.OverallLength,
			wo.DueDate, wo.Status, wo.CurrentOperator, wo.CurrentMachine,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("work_orders_%s.xlsx", time.Now().UTC().Format("20060102"))
	return f, filename, nil
}

var efficiencyHeaders = []string{
	"操作员", "完成单数", "部分完成单数", "不良总数", "总单数", "总数量",
	"完成率%", "不良率%", "时间效率", "综合得分", "今日完成", "今日不良",
}

// ExportEfficiency 导出操作员效率报表
func (s *ExportService) ExportEfficiency(ctx context.Context) (*excelize.File, string, error) {
	rows, err := s.statsSvc.ListEfficiency(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("计算效率指标失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Efficiency"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, efficiencyHeaders)

	for i, eff := range rows {
		row := i + 2
		values := []interface{}{
			eff.Operator, eff.Completed, eff.Partial, eff.RejectedQty,
			eff.TotalOrders, eff.TotalQty, eff.CompletionRate, eff.RejectionRate,
			eff.TimeEfficiency, eff.OverallScore, eff.DailyCompleted, eff.DailyRejected,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("operator_efficiency_%s.xlsx", time.Now().UTC().Format("20060102"))
	return f, filename, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
}
