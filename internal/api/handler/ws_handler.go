package handler

import (
	"Courier/internal/pkg/response"
	"Courier/internal/pkg/security"
	"Courier/internal/relay"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	hub *relay.Hub
}

func NewWsHandler(hub *relay.Hub) *WsHandler {
	return &WsHandler{hub: hub}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	token := c.Query("token")
	if token == "" {
		response.Fail(c, response.Unauthorized, "Token 缺失")
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Fail(c, response.Unauthorized, "Token 无效或已过期")
		return
	}

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	client := s.hub.Register(claims.UserID, claims.Username, claims.Guest, conn)
	log.Info("用户 WS 连接已建立", "userID", claims.UserID)

	defer func() {
		s.hub.Unregister(client)
		_ = conn.Close()
		log.Info("用户 WS 连接已断开", "userID", claims.UserID)
	}()

	// 读循环：上行事件全部交给 Hub 路由
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.hub.HandleEnvelope(client, data)
	}
}
