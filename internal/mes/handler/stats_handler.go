package handler

import (
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/service"
	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	svc *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Efficiency 全部操作员效率指标
func (h *StatsHandler) Efficiency(c *gin.Context) {
	rows, err := h.svc.ListEfficiency(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// OperatorStats 某操作员当日/本周统计
func (h *StatsHandler) OperatorStats(c *gin.Context) {
	stats, err := h.svc.GetOperatorStats(c.Request.Context(), c.Param("username"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, stats)
}

// Dashboard 管理看板（仅管理员）
func (h *StatsHandler) Dashboard(c *gin.Context) {
	dash, err := h.svc.GetDashboard(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, dash)
}
