package handler

import (
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type ExportHandler struct {
	svc *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// WorkOrders 导出工单台账xlsx
func (h *ExportHandler) WorkOrders(c *gin.Context) {
	f, filename, err := h.svc.ExportWorkOrders(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	writeExcel(c, f, filename)
}

// Efficiency 导出操作员效率报表xlsx
func (h *ExportHandler) Efficiency(c *gin.Context) {
	f, filename, err := h.svc.ExportEfficiency(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	writeExcel(c, f, filename)
}

func writeExcel(c *gin.Context, f *excelize.File, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
