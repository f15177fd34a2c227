package handler

import (
	"net/http"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc   *service.OrderService
	qrSvc *service.QRCodeService
}

func NewOrderHandler(svc *service.OrderService, qrSvc *service.QRCodeService) *OrderHandler {
	return &OrderHandler{svc: svc, qrSvc: qrSvc}
}

// Create 创建工单（仅管理员）
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	wo, err := h.svc.Create(c.Request.Context(), req, GetUsername(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, wo)
}

// Get 查询工单
func (h *OrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.GetByOrderNo(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}

// List 工单列表，支持状态过滤与关键词搜索
func (h *OrderHandler) List(c *gin.Context) {
	page, size := GetPagination(c)
	params := repository.WOListParams{
		Status:   c.Query("status"),
		Operator: c.Query("operator"),
		Keyword:  c.Query("q"),
		Page:     page,
		Size:     size,
	}
	wos, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": wos, "total": total, "page": page, "size": size})
}

type scanRequest struct {
	WorkOrderNo string `json:"work_order_no" binding:"required"`
	Machine     string `json:"machine"`
}

// Scan 扫码领单/交接确认
func (h *OrderHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Scan(c.Request.Context(), req.WorkOrderNo, GetUsername(c), req.Machine)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// Report 报工
func (h *OrderHandler) Report(c *gin.Context) {
	var req service.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	wo, err := h.svc.Report(c.Request.Context(), c.Param("orderNo"), GetUsername(c), GetRole(c), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, wo)
}

// Logs 工单历史日志
func (h *OrderHandler) Logs(c *gin.Context) {
	wo, logs, err := h.svc.OrderLogs(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"order": wo, "logs": logs})
}

// ListQRCodes 已生成的二维码清单
func (h *OrderHandler) ListQRCodes(c *gin.Context) {
	names, err := h.qrSvc.List(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": names})
}

// DownloadQRCode 下载工单二维码
func (h *OrderHandler) DownloadQRCode(c *gin.Context) {
	orderNo := c.Param("orderNo")
	data, err := h.qrSvc.Fetch(c.Request.Context(), orderNo)
	if err != nil {
		NotFound(c, "二维码不存在: "+orderNo)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+orderNo+".png\"")
	c.Data(http.StatusOK, "image/png", data)
}
