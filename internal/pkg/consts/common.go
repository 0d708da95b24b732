package consts

import "time"

const (
	// TypingExpiry 打字信号未刷新时的自动过期窗口
	TypingExpiry = 3 * time.Second

	// HandshakeTimeout 初次握手的超时上限，超时视为连接失败
	HandshakeTimeout = 20 * time.Second

	// ReconnectDelay 断线重连的固定间隔
	ReconnectDelay = time.Second

	// MaxReconnectAttempts 重连尝试上限，用尽后停留在 disconnected
	MaxReconnectAttempts = 5
)

// 通知类别，决定提示音与展示方式
const (
	CategoryMessage = "message"
	CategoryGroup   = "group"
	CategoryUrgent  = "urgent"
	CategorySoft    = "soft"
)

// 提示音预设名
const (
	SoundMessage = "message"
	SoundGroup   = "group"
	SoundUrgent  = "urgent"
	SoundSoft    = "soft"
	SoundSuccess = "success"
	SoundError   = "error"
)

// 消息类型
const (
	MsgTypeText = 1
)
