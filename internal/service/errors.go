package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid    = errors.New("参数错误")
	ErrEmptyMessage    = errors.New("消息内容不能为空")
	ErrNotConnected    = errors.New("实时连接未建立")
	ErrSendRejected    = errors.New("消息发送被服务端拒绝")
	ErrUserNotFound    = errors.New("用户不存在")
	ErrRecipientAbsent = errors.New("接收方不存在")
	UnauthorizedError  = errors.New("权限不足")
	UnExpectedError    = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:    BadRequest,
	ErrEmptyMessage:    BadRequest,
	ErrNotConnected:    BadRequest,
	ErrSendRejected:    BadRequest,
	ErrUserNotFound:    NotFound,
	ErrRecipientAbsent: NotFound,
	UnauthorizedError:  Unauthorized,
	UnExpectedError:    InternalServerError,
}
