package relay

import (
	"Courier/internal/api/config"
	"Courier/internal/api/dto"
	"Courier/internal/pkg/consts"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingPeriod   = 25 * time.Second
	sendBuffer   = 64
	historyLimit = 200
)

// Client 一条已注册的下行连接
type Client struct {
	UserID   string
	Username string
	Guest    bool

	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// writePump 出站写循环，带心跳保活
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub 纯转发中枢：不落库、不保证投递，仅把事件按用户路由出去
// 近期消息保留在内存环形窗口内，供 REST 历史接口联调使用
type Hub struct {
	mu sync.RWMutex

	clients  map[string]*Client
	status   map[string]string
	messages map[string][]*dto.MessageDTO
	users    []config.AuthUser

	validate *validator.Validate
}

func NewHub(users []config.AuthUser) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		status:   make(map[string]string),
		messages: make(map[string][]*dto.MessageDTO),
		users:    users,
		validate: validator.New(),
	}
}

// Register 注册连接并启动写循环；同一用户的旧连接被新连接替换
func (h *Hub) Register(userID, username string, guest bool, conn *websocket.Conn) *Client {
	c := &Client{
		UserID:   userID,
		Username: username,
		Guest:    guest,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		old.close()
	}
	h.clients[userID] = c
	h.status[userID] = consts.StatusOnline
	h.mu.Unlock()

	go c.writePump()
	h.broadcastStatus(userID, consts.StatusOnline)
	return c
}

// Unregister 注销连接并广播离线状态
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.UserID]; ok && cur == c {
		delete(h.clients, c.UserID)
		h.status[c.UserID] = consts.StatusOffline
	}
	h.mu.Unlock()

	c.close()
	h.broadcastStatus(c.UserID, consts.StatusOffline)
}

// HandleEnvelope 处理一条上行事件；畸形事件记录后丢弃
func (h *Hub) HandleEnvelope(c *Client, data []byte) {
	var env dto.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn("丢弃无法解析的上行事件", "userID", c.UserID, "err", err)
		return
	}
	if err := h.validate.Struct(&env); err != nil {
		log.Warn("丢弃非法上行事件", "userID", c.UserID, "err", err)
		return
	}

	switch env.Event {
	case consts.EventJoinUserRoom:
		log.Info("用户加入个人房间", "userID", c.UserID)
	case consts.EventUpdateStatus:
		h.handleUpdateStatus(c, env.Payload)
	case consts.EventSendMessage:
		h.handleSendMessage(c, env.Payload)
	case consts.EventTyping:
		h.handleTyping(c, env.Payload)
	default:
		log.Warn("未知上行事件", "event", env.Event, "userID", c.UserID)
	}
}

func (h *Hub) handleUpdateStatus(c *Client, payload json.RawMessage) {
	var p dto.StatusUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil || h.validate.Struct(&p) != nil {
		log.Warn("丢弃非法 updateStatus 载荷", "userID", c.UserID)
		return
	}

	h.mu.Lock()
	h.status[c.UserID] = p.Status
	h.mu.Unlock()
	h.broadcastStatus(c.UserID, p.Status)
}

// handleSendMessage 转发消息：给接收方推 newMessage 与 messageNotification，
// 给发送方回执 messageDelivered（沿用客户端自带的消息 id）
func (h *Hub) handleSendMessage(c *Client, payload json.RawMessage) {
	var p dto.MessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.emitError(c, "", "消息格式错误")
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Sender = c.UserID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	key := directKey(p.Sender, p.Recipient)
	if strings.TrimSpace(p.Content) == "" {
		h.emitError(c, key, "消息内容不能为空")
		return
	}
	if !h.knownUser(p.Recipient) {
		h.emitError(c, key, "接收方不存在")
		return
	}

	h.mu.Lock()
	list := append(h.messages[key], &dto.MessageDTO{
		ID:              p.ID,
		ConversationKey: key,
		Sender:          p.Sender,
		Recipient:       p.Recipient,
		MsgType:         p.MsgType,
		Content:         p.Content,
		Delivered:       true,
		CreatedAt:       p.CreatedAt,
	})
	if len(list) > historyLimit {
		list = list[len(list)-historyLimit:]
	}
	h.messages[key] = list
	h.mu.Unlock()

	h.emitTo(p.Recipient, consts.EventNewMessage, p)
	h.emitTo(p.Recipient, consts.EventMessageNotification, dto.NotificationPayload{
		Sender:          c.UserID,
		SenderName:      c.Username,
		Content:         p.Content,
		ConversationKey: key,
		IsGuest:         c.Guest,
	})
	h.emitTo(c.UserID, consts.EventMessageDelivered, dto.DeliveredPayload{MessageID: p.ID})
}

func (h *Hub) handleTyping(c *Client, payload json.RawMessage) {
	var p dto.TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 typing 载荷", "userID", c.UserID)
		return
	}
	p.Sender = c.UserID
	h.emitTo(p.Recipient, consts.EventTyping, p)
}

// Conversations 从内存窗口推导某用户参与的会话列表
func (h *Hub) Conversations(userID string) []*dto.ConversationDTO {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]*dto.ConversationDTO, 0)
	for key, list := range h.messages {
		peer, ok := peerOf(key, userID)
		if !ok || len(list) == 0 {
			continue
		}
		last := list[len(list)-1]
		res = append(res, &dto.ConversationDTO{
			Key:            key,
			Type:           1,
			PeerID:         peer,
			Participants:   []string{userID, peer},
			LastMsgContent: last.Content,
			LastMsgType:    int8(last.MsgType),
			LastSenderID:   last.Sender,
			LastMessageAt:  last.CreatedAt,
		})
	}
	return res
}

// Messages 返回指定会话的内存历史
func (h *Hub) Messages(key string) []*dto.MessageDTO {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*dto.MessageDTO(nil), h.messages[key]...)
}

// Contacts 基于配置账户与在线状态生成成员目录
func (h *Hub) Contacts() []*dto.ContactDTO {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]*dto.ContactDTO, 0, len(h.users))
	for _, u := range h.users {
		status, ok := h.status[u.UserID]
		if !ok {
			status = consts.StatusOffline
		}
		res = append(res, &dto.ContactDTO{
			UserID:   u.UserID,
			Username: u.Username,
			Status:   status,
			Guest:    u.Guest,
		})
	}
	return res
}

func (h *Hub) knownUser(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, u := range h.users {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) broadcastStatus(userID, status string) {
	payload := dto.StatusUpdatePayload{UserID: userID, Status: status}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	data, err := marshalEnvelope(consts.EventUserStatusUpdate, payload)
	if err != nil {
		return
	}
	for _, c := range targets {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) emitTo(userID, event string, payload interface{}) {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error("序列化下行事件失败", "event", event, "err", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn("下行队列已满，丢弃事件", "event", event, "userID", userID)
	}
}

func (h *Hub) emitError(c *Client, key, reason string) {
	h.emitTo(c.UserID, consts.EventMessageError, dto.MessageErrorPayload{
		ConversationKey: key,
		Reason:          reason,
	})
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto.EventEnvelope{Event: event, Payload: raw})
}

func directKey(a, b string) string {
	if a < b {
		return a + "_" + b
	}
	return b + "_" + a
}

func peerOf(key, userID string) (string, bool) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return "", false
	}
	if parts[0] == userID {
		return parts[1], true
	}
	if parts[1] == userID {
		return parts[0], true
	}
	return "", false
}
