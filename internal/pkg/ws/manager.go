package ws

import (
	"Courier/internal/api/config"
	"Courier/internal/api/dto"
	"Courier/internal/pkg/consts"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// State 连接状态机：disconnected -> connecting -> connected -> disconnected
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var ErrNotConnected = errors.New("实时连接未建立")

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	defaultPingTime = 25 * time.Second
)

// Handler 事件订阅回调，载荷原样转发，不做任何解释
type Handler func(payload json.RawMessage)

// Manager 持有唯一一条实时连接，负责生命周期、握手与事件分发
// 同一时刻至多存在一条连接；为不同身份建连前必须先关闭旧连接
type Manager struct {
	mu sync.RWMutex

	url              string
	handshakeTimeout time.Duration
	reconnectDelay   time.Duration
	maxAttempts      int
	pingInterval     time.Duration

	conn        *websocket.Conn
	writeMu     sync.Mutex
	state       State
	userID      string
	token       string
	lastSeen    time.Time
	manualClose bool
	done        chan struct{}

	handlers map[string][]Handler
	validate *validator.Validate

	onReady func(ctx context.Context)
	onState func(State)
}

func NewManager(cfg *config.RealtimeConfig) *Manager {
	m := &Manager{
		url:              cfg.URL,
		handshakeTimeout: consts.HandshakeTimeout,
		reconnectDelay:   consts.ReconnectDelay,
		maxAttempts:      consts.MaxReconnectAttempts,
		pingInterval:     defaultPingTime,
		state:            StateDisconnected,
		handlers:         make(map[string][]Handler),
		validate:         validator.New(),
	}
	if cfg.HandshakeTimeout > 0 {
		m.handshakeTimeout = time.Duration(cfg.HandshakeTimeout) * time.Second
	}
	if cfg.ReconnectDelay > 0 {
		m.reconnectDelay = time.Duration(cfg.ReconnectDelay) * time.Millisecond
	}
	if cfg.MaxReconnectAttempts > 0 {
		m.maxAttempts = cfg.MaxReconnectAttempts
	}
	if cfg.PingInterval > 0 {
		m.pingInterval = time.Duration(cfg.PingInterval) * time.Second
	}
	return m
}

// On 订阅指定事件名，须在 Connect 之前完成注册
func (m *Manager) On(event string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
}

// OnReady 注册连接就绪钩子，握手完成后异步触发数据刷新
func (m *Manager) OnReady(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReady = fn
}

// OnStateChange 注册状态监听，用于 UI 的连接指示器
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onState = fn
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity 当前绑定的用户身份，未连接时为空
func (m *Manager) Identity() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// LastSeen 最近一次收到服务端数据的时刻
func (m *Manager) LastSeen() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeen
}

// Connect 为指定身份建立连接
// 同身份已连接时为空操作；不同身份时先关闭旧连接
// 初次握手失败直接报错，不做静默重试
func (m *Manager) Connect(userID, token string) error {
	m.mu.Lock()
	if m.state == StateConnected && m.userID == userID {
		m.mu.Unlock()
		return nil
	}
	if m.conn != nil {
		m.closeConnLocked()
	}
	m.userID = userID
	m.token = token
	m.manualClose = false
	m.state = StateConnecting
	m.mu.Unlock()
	m.notifyState(StateConnecting)

	conn, err := m.dial(token)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyState(StateDisconnected)
		return fmt.Errorf("实时连接握手失败: %w", err)
	}

	m.attach(conn)
	m.handshake()
	return nil
}

// Disconnect 幂等关闭连接并清除身份绑定，不触发自动重连
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manualClose = true
	m.userID = ""
	m.token = ""
	m.closeConnLocked()
	changed := m.state != StateDisconnected
	m.state = StateDisconnected
	m.mu.Unlock()
	if changed {
		m.notifyState(StateDisconnected)
	}
}

// Emit 发送出站事件，未连接时返回 ErrNotConnected
func (m *Manager) Emit(event string, payload interface{}) error {
	m.mu.RLock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化事件载荷失败: %w", err)
	}
	data, err := json.Marshal(dto.EventEnvelope{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (m *Manager) dial(token string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.handshakeTimeout}
	conn, _, err := dialer.Dial(m.url+"?token="+url.QueryEscape(token), nil)
	return conn, err
}

// attach 绑定新连接并启动读循环与心跳
func (m *Manager) attach(conn *websocket.Conn) {
	done := make(chan struct{})

	m.mu.Lock()
	m.conn = conn
	m.done = done
	m.state = StateConnected
	m.lastSeen = time.Now()
	m.mu.Unlock()
	m.notifyState(StateConnected)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go m.readPump(conn, done)
	go m.pingLoop(conn, done)
}

// handshake 连接建立后补发控制事件：加入个人房间、上报在线状态，再触发数据刷新
func (m *Manager) handshake() {
	m.mu.RLock()
	userID := m.userID
	onReady := m.onReady
	m.mu.RUnlock()

	if err := m.Emit(consts.EventJoinUserRoom, dto.JoinRoomPayload{UserID: userID}); err != nil {
		log.Warn("加入个人房间失败", "userID", userID, "err", err)
	}
	if err := m.Emit(consts.EventUpdateStatus, dto.StatusUpdatePayload{UserID: userID, Status: consts.StatusOnline}); err != nil {
		log.Warn("上报在线状态失败", "userID", userID, "err", err)
	}

	if onReady != nil {
		go onReady(context.Background())
	}
}

// readPump 读循环，连接断开时决定是否进入重连
func (m *Manager) readPump(conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		m.mu.Lock()
		m.lastSeen = time.Now()
		m.mu.Unlock()
		m.dispatch(data)
	}

	close(done)
	_ = conn.Close()

	m.mu.Lock()
	if m.conn != conn {
		// 已被新连接取代，本循环只负责退出
		m.mu.Unlock()
		return
	}
	m.conn = nil
	manual := m.manualClose
	m.state = StateDisconnected
	m.mu.Unlock()
	m.notifyState(StateDisconnected)

	if !manual {
		log.Warn("实时连接意外断开，进入重连", "userID", m.Identity())
		go m.reconnect()
	}
}

// dispatch 校验统一信封后按事件名分发；畸形事件记录日志后丢弃
func (m *Manager) dispatch(data []byte) {
	var env dto.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn("丢弃无法解析的事件", "err", err)
		return
	}
	if err := m.validate.Struct(&env); err != nil {
		log.Warn("丢弃非法事件", "event", env.Event, "err", err)
		return
	}

	m.mu.RLock()
	hs := append([]Handler(nil), m.handlers[env.Event]...)
	m.mu.RUnlock()

	for _, h := range hs {
		h(env.Payload)
	}
}

// reconnect 固定间隔、限次重连；成功后重跑握手，用尽后停留在 disconnected
func (m *Manager) reconnect() {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		time.Sleep(m.reconnectDelay)

		m.mu.Lock()
		if m.manualClose {
			m.mu.Unlock()
			return
		}
		token := m.token
		m.state = StateConnecting
		m.mu.Unlock()
		m.notifyState(StateConnecting)

		conn, err := m.dial(token)
		if err != nil {
			log.Warn("重连失败", "attempt", attempt, "err", err)
			m.mu.Lock()
			m.state = StateDisconnected
			m.mu.Unlock()
			m.notifyState(StateDisconnected)
			continue
		}

		m.attach(conn)
		m.handshake()
		log.Info("重连成功", "attempt", attempt, "userID", m.Identity())
		return
	}

	log.Error("重连次数用尽，等待手动重试", "attempts", m.maxAttempts)
}

// pingLoop 心跳保活，写失败交由读循环统一收尾
func (m *Manager) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			m.writeMu.Unlock()
			if err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (m *Manager) closeConnLocked() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) notifyState(s State) {
	m.mu.RLock()
	fn := m.onState
	m.mu.RUnlock()
	if fn != nil {
		fn(s)
	}
}
