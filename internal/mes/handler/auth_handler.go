package handler

import (
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/service"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/middleware"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	PIN      string `json:"pin" binding:"required"`
}

// Login 用户名+PIN登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), req.Username, req.PIN)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, gin.H{
		"user":   user,
		"tokens": pair,
	})
}

type setPINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// SetPIN 修改PIN（首次登录强制）
func (h *AuthHandler) SetPIN(c *gin.Context) {
	var req setPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.svc.SetPIN(c.Request.Context(), GetUsername(c), req.PIN); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		Unauthorized(c, err.Error())
		return
	}
	Success(c, pair)
}

// Logout 注销
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}

// Me 当前登录身份
func (h *AuthHandler) Me(c *gin.Context) {
	claims, exists := c.Get("claims")
	if !exists {
		Unauthorized(c, "not logged in")
		return
	}
	jc := claims.(*middleware.JWTClaims)
	Success(c, gin.H{
		"username":        jc.Username,
		"role":            jc.Role,
		"must_change_pin": jc.MustChangePIN,
	})
}
