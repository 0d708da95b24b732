package model

import "time"

// Message 单条消息，归属且仅归属一个会话
type Message struct {
	ID        string
	Sender    string
	Recipient string
	Content   string
	MsgType   int
	CreatedAt time.Time

	// Delivered 服务端确认送达
	Delivered bool
	// Optimistic 本地乐观写入，尚未经服务端确认
	Optimistic bool
}
