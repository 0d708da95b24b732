package notify

import (
	log "log/slog"

	"github.com/gen2brain/beeep"
)

// DesktopNotifier 基于系统通知中心的原生通知实现
// 通知中心不可用时由 beeep 内部返回错误，调用方负责吞掉
type DesktopNotifier struct {
	Icon string
}

func (n *DesktopNotifier) Notify(title, body, tag string) error {
	// 系统通知中心没有去重标签概念，tag 仅用于日志定位
	log.Debug("发送原生通知", "tag", tag, "title", title)
	return beeep.Notify(title, body, n.Icon)
}

// LogToaster 无界面环境下的浮动提示实现，写入结构化日志
// 图形界面接入时由 UI 层替换
type LogToaster struct{}

func (t *LogToaster) Toast(level, message string, sticky bool) {
	log.Info("toast", "level", level, "message", message, "sticky", sticky)
}
