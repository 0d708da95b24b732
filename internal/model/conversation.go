package model

import "time"

// 会话类型
const (
	ConvTypeDirect int8 = 1
	ConvTypeGroup  int8 = 2
)

// Conversation 会话，单聊由参与双方唯一确定
type Conversation struct {
	Key            string
	Type           int8
	PeerID         string
	Participants   []string
	LastMsgContent string
	LastMsgType    int8
	LastSenderID   string
	LastMessageAt  time.Time
}

// DirectKey 生成单聊唯一 Key，与参与者顺序无关
func DirectKey(userID, targetUserID string) string {
	if userID < targetUserID {
		return userID + "_" + targetUserID
	}
	return targetUserID + "_" + userID
}
