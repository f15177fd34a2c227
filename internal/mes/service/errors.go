package service

import "errors"

// 业务错误，handler 依据哨兵错误映射HTTP状态码
var (
	ErrOrderNotFound    = errors.New("工单不存在")
	ErrInvalidQuantity  = errors.New("数量必须大于0")
	ErrQuantityExceeded = errors.New("不能超过工单总数量")
	ErrForbidden        = errors.New("无权执行该操作")
	ErrDuplicateOrderNo = errors.New("工单号已存在")
	ErrUserNotFound     = errors.New("用户不存在")
	ErrInvalidPIN       = errors.New("用户名或PIN错误")
	ErrPINFormat        = errors.New("PIN必须为6位数字")
)
