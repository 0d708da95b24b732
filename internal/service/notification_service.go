package service

import (
	"Courier/internal/api/dto"
	"Courier/internal/model"
	"Courier/internal/pkg/consts"
	"Courier/internal/pkg/prefs"
	"Courier/internal/pkg/util"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// 浮动提示级别
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toaster 应用内浮动提示；sticky 为 true 时需要用户交互才会消失
type Toaster interface {
	Toast(level, message string, sticky bool)
}

// Notifier 系统原生通知；权限缺失时实现方应静默跳过
type Notifier interface {
	Notify(title, body, tag string) error
}

// NotificationService 通知路由服务接口定义
// 对入站事件分类并按偏好产生 提示音/原生通知/浮动提示 副作用
type NotificationService interface {
	TestNotification(category string)
	HandleNotificationClick(ctx context.Context, conversationKey string) error
	OnExamModal(fn func(dto.ExamReminderPayload))
	OnFocusWindow(fn func())
}

type notificationServiceImpl struct {
	mu sync.RWMutex

	rt         Realtime
	prefsStore *prefs.Store
	chime      Chime
	notifier   Notifier
	toaster    Toaster
	convs      ConversationService

	examModal   func(dto.ExamReminderPayload)
	focusWindow func()
}

// NewNotificationService 构造函数：订阅全部需要产生副作用的入站事件
func NewNotificationService(rt Realtime, prefsStore *prefs.Store, chime Chime, notifier Notifier, toaster Toaster, convs ConversationService) NotificationService {
	s := &notificationServiceImpl{
		rt:         rt,
		prefsStore: prefsStore,
		chime:      chime,
		notifier:   notifier,
		toaster:    toaster,
		convs:      convs,
	}

	rt.On(consts.EventMessageNotification, s.handleMessageNotification)
	rt.On(consts.EventExamReminder, s.handleExamReminder)
	rt.On(consts.EventNotification, s.handleSystemNotification)
	rt.On(consts.EventUserStatusUpdate, s.handleStatusUpdate)

	return s
}

// OnExamModal 注册考试提醒弹窗广播
func (s *notificationServiceImpl) OnExamModal(fn func(dto.ExamReminderPayload)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examModal = fn
}

// OnFocusWindow 注册把窗口带回前台的回调
func (s *notificationServiceImpl) OnFocusWindow(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusWindow = fn
}

// TestNotification 供设置页使用的即时触发入口
func (s *notificationServiceImpl) TestNotification(category string) {
	pr := s.prefsStore.Current()
	if pr.EnableSounds {
		s.chime.Play(s.presetFor(category, pr), pr.Volume)
	}
	if s.toaster != nil && pr.EnableToastNotifications {
		s.toaster.Toast(ToastInfo, fmt.Sprintf("这是一条 %s 类别的测试通知", category), false)
	}
}

// HandleNotificationClick 点击通知后重新激活对应会话并把窗口带回前台
func (s *notificationServiceImpl) HandleNotificationClick(ctx context.Context, conversationKey string) error {
	peer := s.peerOf(conversationKey)
	if peer == "" {
		return ErrParamInvalid
	}
	if err := s.convs.StartConversation(ctx, peer); err != nil {
		return err
	}

	s.mu.RLock()
	focus := s.focusWindow
	s.mu.RUnlock()
	if focus != nil {
		focus()
	}
	return nil
}

// handleMessageNotification 聊天消息通知
// 分类优先级：访客 -> urgent；群聊 -> group；其余 -> message
func (s *notificationServiceImpl) handleMessageNotification(payload json.RawMessage) {
	var p dto.NotificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 messageNotification 载荷", "err", err)
		return
	}

	category := consts.CategoryMessage
	switch {
	case p.IsGuest:
		category = consts.CategoryUrgent
	case p.IsGroup:
		category = consts.CategoryGroup
	}

	pr := s.prefsStore.Current()
	if pr.EnableSounds {
		s.chime.Play(s.presetFor(category, pr), pr.Volume)
	}

	key := p.ConversationKey
	if key == "" {
		key = model.DirectKey(s.rt.Identity(), p.Sender)
	}
	focused := s.convs.ActiveConversation() == key

	name := p.SenderName
	if name == "" {
		name = p.Sender
	}
	title := fmt.Sprintf("%s 发来新消息", name)
	if p.IsGroup {
		title = fmt.Sprintf("群聊有新消息（%s）", name)
	}
	if p.IsGuest {
		title = fmt.Sprintf("访客 %s 发来消息", name)
	}

	s.notify(pr, title, p.Content, category)

	// 正在查看的会话不再弹提示，避免自我打扰；消息状态本身照常更新
	if pr.EnableToastNotifications && !focused && s.toaster != nil {
		s.toaster.Toast(ToastInfo, fmt.Sprintf("%s：%s", name, util.Truncate(p.Content, 60)), false)
	}
}

// handleExamReminder 考试提醒：始终按 urgent 处理，不受焦点抑制，需交互关闭
func (s *notificationServiceImpl) handleExamReminder(payload json.RawMessage) {
	var p dto.ExamReminderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 exam-reminder 载荷", "err", err)
		return
	}

	pr := s.prefsStore.Current()
	if pr.EnableSounds {
		s.chime.Play(consts.SoundUrgent, pr.Volume)
	}

	s.notify(pr, p.Title, p.Content, consts.CategoryUrgent)

	if pr.EnableToastNotifications && s.toaster != nil {
		s.toaster.Toast(ToastInfo, fmt.Sprintf("考试提醒：%s", p.Title), true)
	}

	s.mu.RLock()
	modal := s.examModal
	s.mu.RUnlock()
	if modal != nil {
		modal(p)
	}
}

// handleSystemNotification 系统通知：载荷标记紧急则 urgent，否则 soft；不受焦点抑制
func (s *notificationServiceImpl) handleSystemNotification(payload json.RawMessage) {
	var p dto.SystemNotificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 notification 载荷", "err", err)
		return
	}

	category := consts.CategorySoft
	if p.Urgent {
		category = consts.CategoryUrgent
	}

	pr := s.prefsStore.Current()
	if pr.EnableSounds {
		s.chime.Play(s.presetFor(category, pr), pr.Volume)
	}

	title := p.Title
	if title == "" {
		title = "系统通知"
	}
	s.notify(pr, title, p.Content, category)

	if pr.EnableToastNotifications && s.toaster != nil {
		s.toaster.Toast(ToastInfo, util.Truncate(p.Content, 60), false)
	}
}

// handleStatusUpdate 上下线通知：缺省关闭，开启后仅轻提示音
func (s *notificationServiceImpl) handleStatusUpdate(payload json.RawMessage) {
	var p dto.StatusUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 userStatusUpdate 载荷", "err", err)
		return
	}

	pr := s.prefsStore.Current()
	if pr.EnableSounds && pr.EnableStatusSounds {
		s.chime.Play(consts.SoundSoft, pr.Volume)
	}
}

// notify 发送原生通知，权限缺失或发送失败完全吞掉
func (s *notificationServiceImpl) notify(pr prefs.Preferences, title, body, category string) {
	if !pr.EnableBrowserNotifications || s.notifier == nil {
		return
	}
	tag := "courier-" + category
	if err := s.notifier.Notify(title, util.Truncate(body, 120), tag); err != nil {
		log.Debug("原生通知发送失败", "tag", tag, "err", err)
	}
}

// presetFor 类别到提示音预设的映射；message 类别遵循用户选择的预设
func (s *notificationServiceImpl) presetFor(category string, pr prefs.Preferences) string {
	switch category {
	case consts.CategoryGroup:
		return consts.SoundGroup
	case consts.CategoryUrgent:
		return consts.SoundUrgent
	case consts.CategorySoft:
		return consts.SoundSoft
	case consts.CategoryMessage:
		if pr.MessageSound != "" {
			return pr.MessageSound
		}
		return consts.SoundMessage
	default:
		return consts.SoundSoft
	}
}

// peerOf 从会话 Key 解析对手方；群聊 Key 原样返回
func (s *notificationServiceImpl) peerOf(key string) string {
	if key == "" {
		return ""
	}
	for _, c := range s.convs.Conversations() {
		if c.Key == key && c.Type == model.ConvTypeGroup {
			return key
		}
	}

	self := s.rt.Identity()
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	if parts[0] == self {
		return parts[1]
	}
	return parts[0]
}
