package dto

import "time"

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	Key            string    `json:"key"`
	Type           int8      `json:"type"` // 1-单聊, 2-群聊
	PeerID         string    `json:"peer_id"`
	Participants   []string  `json:"participants"`
	LastMsgContent string    `json:"last_msg_content"`
	LastMsgType    int8      `json:"last_msg_type"`
	LastSenderID   string    `json:"last_sender_id"`
	LastMessageAt  time.Time `json:"lastMessageAt"`
	UnreadCount    uint64    `json:"unreadCount"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID              string    `json:"id,omitempty"`
	ConversationKey string    `json:"conversation_key"`
	Sender          string    `json:"sender"`
	Recipient       string    `json:"recipient"`
	MsgType         int       `json:"msg_type"`
	Content         string    `json:"content"`
	Delivered       bool      `json:"delivered"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ContactDTO 可会话成员目录项
type ContactDTO struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Guest    bool   `json:"guest"`
}

// LoginReq 登录请求体
type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResp 登录响应
type LoginResp struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}
