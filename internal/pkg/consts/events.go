package consts

// 服务端 -> 客户端事件名
const (
	EventNewMessage          = "newMessage"
	EventMessageNotification = "messageNotification"
	EventUserStatusUpdate    = "userStatusUpdate"
	EventTyping              = "typing"
	EventMessageDelivered    = "messageDelivered"
	EventMessageError        = "messageError"
	EventExamReminder        = "exam-reminder"
	EventNotification        = "notification"
)

// 客户端 -> 服务端事件名
const (
	EventJoinUserRoom = "join-user-room"
	EventUpdateStatus = "updateStatus"
	EventSendMessage  = "sendMessage"
)

// 用户在线状态枚举
const (
	StatusOnline  = "ONLINE"
	StatusAway    = "AWAY"
	StatusOffline = "OFFLINE"
)
