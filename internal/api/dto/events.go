package dto

import (
	"time"

	"github.com/goccy/go-json"
)

// EventEnvelope 实时事件统一信封，所有事件在传输层按此结构校验
type EventEnvelope struct {
	Event   string          `json:"event" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// MessagePayload newMessage / sendMessage 载荷
type MessagePayload struct {
	ID        string    `json:"id" validate:"required"`
	Sender    string    `json:"sender" validate:"required"`
	Recipient string    `json:"recipient" validate:"required"`
	Content   string    `json:"content"`
	MsgType   int       `json:"msg_type"` // 1-文本, 2-图片...
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationPayload messageNotification 载荷
type NotificationPayload struct {
	Sender          string `json:"sender" validate:"required"`
	SenderName      string `json:"sender_name"`
	Content         string `json:"content"`
	ConversationKey string `json:"conversation_key"`
	IsGroup         bool   `json:"is_group"`
	IsGuest         bool   `json:"is_guest"`
}

// StatusUpdatePayload userStatusUpdate / updateStatus 载荷
type StatusUpdatePayload struct {
	UserID string `json:"user_id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=ONLINE AWAY OFFLINE"`
}

// TypingPayload typing 载荷，双向复用
type TypingPayload struct {
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient"`
	IsTyping  bool   `json:"is_typing"`
}

// DeliveredPayload messageDelivered 载荷
type DeliveredPayload struct {
	MessageID string `json:"message_id" validate:"required"`
}

// MessageErrorPayload messageError 载荷
type MessageErrorPayload struct {
	ConversationKey string `json:"conversation_key" validate:"required"`
	Reason          string `json:"reason"`
}

// ExamReminderPayload exam-reminder 载荷
type ExamReminderPayload struct {
	Title   string    `json:"title" validate:"required"`
	Content string    `json:"content"`
	ExamID  string    `json:"exam_id"`
	StartAt time.Time `json:"startAt"`
}

// SystemNotificationPayload notification 载荷
type SystemNotificationPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Urgent  bool   `json:"urgent"`
}

// JoinRoomPayload join-user-room 载荷
type JoinRoomPayload struct {
	UserID string `json:"user_id" validate:"required"`
}
