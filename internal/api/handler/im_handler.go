package handler

import (
	"Courier/internal/pkg/response"
	"Courier/internal/relay"
	"Courier/internal/service"

	"github.com/gin-gonic/gin"
)

type IMHandler struct {
	hub *relay.Hub
}

func NewIMHandler(hub *relay.Hub) *IMHandler {
	return &IMHandler{hub: hub}
}

// GetConversationList 获取会话列表
func (s *IMHandler) GetConversationList(c *gin.Context) {
	userID := c.GetString("userID")
	response.Success(c, s.hub.Conversations(userID))
}

// GetChatHistory 获取历史消息
func (s *IMHandler) GetChatHistory(c *gin.Context) {
	key := c.Query("conversationKey")
	if key == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	response.Success(c, s.hub.Messages(key))
}

// GetContacts 获取可会话成员目录
func (s *IMHandler) GetContacts(c *gin.Context) {
	response.Success(c, s.hub.Contacts())
}
