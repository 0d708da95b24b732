package service

import (
	"Courier/internal/api/dto"
	"Courier/internal/model"
	"Courier/internal/pkg/consts"
	"Courier/internal/pkg/prefs"
	"Courier/internal/pkg/ws"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

// Realtime 传输抽象，由 ws.Manager 满足
type Realtime interface {
	On(event string, h ws.Handler)
	Emit(event string, payload interface{}) error
	State() ws.State
	Identity() string
}

// Directory 协作 REST 接口抽象，由 rest.Client 满足
type Directory interface {
	ListConversations(ctx context.Context) ([]*dto.ConversationDTO, error)
	ListMessages(ctx context.Context, key string) ([]*dto.MessageDTO, error)
	ListContacts(ctx context.Context) ([]*dto.ContactDTO, error)
}

// Chime 提示音抽象，由 sound.Engine 满足
type Chime interface {
	Play(preset string, volume float64)
}

// ConversationService 会话存储服务接口定义
// 会话、消息、未读数、打字状态与当前激活会话的唯一事实来源
type ConversationService interface {
	StartConversation(ctx context.Context, peer string) error
	Send(recipient, content string) (*model.Message, error)
	SendTyping(recipient string, isTyping bool)
	CloseConversation()
	ActiveConversation() string
	Conversations() []*model.Conversation
	Messages(key string) []*model.Message
	UnreadCounts() map[string]uint64
	TotalUnread() uint64
	IsTyping(sender string) bool
	Contacts() []*dto.ContactDTO
	Refresh(ctx context.Context) error
	Close()
}

type conversationServiceImpl struct {
	mu sync.Mutex

	rt           Realtime
	directory    Directory
	chime        Chime
	toaster      Toaster
	prefsStore   *prefs.Store
	typingExpiry time.Duration

	active        string
	conversations map[string]*model.Conversation
	messages      map[string][]*model.Message
	unread        map[string]uint64
	typing        map[string]bool
	typingTimers  map[string]*time.Timer
	contacts      []*dto.ContactDTO
}

// NewConversationService 构造函数：注册入站事件的状态回放回调
func NewConversationService(rt Realtime, directory Directory, chime Chime, toaster Toaster, prefsStore *prefs.Store, typingExpiry time.Duration) ConversationService {
	if typingExpiry <= 0 {
		typingExpiry = consts.TypingExpiry
	}
	s := &conversationServiceImpl{
		rt:            rt,
		directory:     directory,
		chime:         chime,
		toaster:       toaster,
		prefsStore:    prefsStore,
		typingExpiry:  typingExpiry,
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]*model.Message),
		unread:        make(map[string]uint64),
		typing:        make(map[string]bool),
		typingTimers:  make(map[string]*time.Timer),
	}

	rt.On(consts.EventNewMessage, s.handleNewMessage)
	rt.On(consts.EventMessageDelivered, s.handleDelivered)
	rt.On(consts.EventMessageError, s.handleError)
	rt.On(consts.EventTyping, s.handleTyping)

	return s
}

// StartConversation 激活与 peer 的会话并拉取历史
// 同会话重复激活为空操作；历史拉取失败保留旧状态
func (s *conversationServiceImpl) StartConversation(ctx context.Context, peer string) error {
	key := s.keyFor(peer)

	s.mu.Lock()
	if s.active == key {
		s.mu.Unlock()
		return nil
	}
	s.active = key
	delete(s.unread, peer)
	s.ensureConversationLocked(key, peer)
	s.mu.Unlock()

	history, err := s.directory.ListMessages(ctx, key)
	if err != nil {
		log.Warn("拉取历史消息失败", "key", key, "err", err)
		return fmt.Errorf("拉取历史消息失败: %w", err)
	}

	// 合并到被拉取的会话本身，与当前焦点无关：数据完整性优先于界面新鲜度
	s.mu.Lock()
	s.mergeHistoryLocked(key, history)
	s.mu.Unlock()
	return nil
}

// Send 乐观发送：先落本地再发事件，不等待服务端确认
func (s *conversationServiceImpl) Send(recipient, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.rt.State() != ws.StateConnected {
		return nil, ErrNotConnected
	}

	self := s.rt.Identity()
	key := s.keyFor(recipient)
	msg := &model.Message{
		ID:         uuid.NewString(),
		Sender:     self,
		Recipient:  recipient,
		Content:    content,
		MsgType:    consts.MsgTypeText,
		CreatedAt:  time.Now(),
		Optimistic: true,
	}

	s.mu.Lock()
	s.ensureConversationLocked(key, recipient)
	s.messages[key] = append(s.messages[key], msg)
	s.touchPreviewLocked(key, msg)
	s.mu.Unlock()

	payload := dto.MessagePayload{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Content:   msg.Content,
		MsgType:   msg.MsgType,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.rt.Emit(consts.EventSendMessage, payload); err != nil {
		s.mu.Lock()
		s.removeMessageLocked(key, msg.ID)
		s.mu.Unlock()
		return nil, fmt.Errorf("发送消息失败: %w", err)
	}

	pr := s.prefsStore.Current()
	if pr.EnableSounds {
		s.chime.Play(consts.SoundSuccess, pr.Volume)
	}
	return msg, nil
}

// SendTyping 发送打字指示控制事件，失败仅记录
func (s *conversationServiceImpl) SendTyping(recipient string, isTyping bool) {
	payload := dto.TypingPayload{
		Sender:    s.rt.Identity(),
		Recipient: recipient,
		IsTyping:  isTyping,
	}
	if err := s.rt.Emit(consts.EventTyping, payload); err != nil {
		log.Debug("发送打字指示失败", "recipient", recipient, "err", err)
	}
}

// CloseConversation 取消激活选择，历史保留
func (s *conversationServiceImpl) CloseConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

func (s *conversationServiceImpl) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *conversationServiceImpl) Conversations() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]*model.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		cc := *c
		res = append(res, &cc)
	}
	return res
}

func (s *conversationServiceImpl) Messages(key string) []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[key]
	res := make([]*model.Message, 0, len(list))
	for _, m := range list {
		mm := *m
		res = append(res, &mm)
	}
	return res
}

func (s *conversationServiceImpl) UnreadCounts() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[string]uint64, len(s.unread))
	for k, v := range s.unread {
		res[k] = v
	}
	return res
}

// TotalUnread 纯派生值：恒等于未读表的算术和
func (s *conversationServiceImpl) TotalUnread() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, v := range s.unread {
		total += v
	}
	return total
}

func (s *conversationServiceImpl) IsTyping(sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing[sender]
}

func (s *conversationServiceImpl) Contacts() []*dto.ContactDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*dto.ContactDTO(nil), s.contacts...)
}

// Refresh 并发拉取会话列表与成员目录；单项失败不影响另一项，旧状态保留
func (s *conversationServiceImpl) Refresh(ctx context.Context) error {
	var (
		convs    []*dto.ConversationDTO
		contacts []*dto.ContactDTO
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		res, err := s.directory.ListConversations(ctx)
		if err != nil {
			log.Warn("拉取会话列表失败", "err", err)
			return err
		}
		convs = res
		return nil
	})
	g.Go(func() error {
		res, err := s.directory.ListContacts(ctx)
		if err != nil {
			log.Warn("拉取成员目录失败", "err", err)
			return err
		}
		contacts = res
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	if convs != nil {
		for _, d := range convs {
			s.mergeConversationLocked(d)
		}
	}
	if contacts != nil {
		s.contacts = contacts
	}
	s.mu.Unlock()
	return err
}

// Close 停止全部打字过期定时器
func (s *conversationServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.typingTimers {
		t.Stop()
		delete(s.typingTimers, k)
	}
}

// handleNewMessage 入站新消息：回显命中时只翻转标记，否则追加
// 消息追加与未读计数在同一把锁内完成，不暴露中间态
func (s *conversationServiceImpl) handleNewMessage(payload json.RawMessage) {
	var p dto.MessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 newMessage 载荷", "err", err)
		return
	}

	self := s.rt.Identity()
	peer := p.Sender
	if p.Sender == self {
		peer = p.Recipient
	}
	key := s.keyFor(peer)

	s.mu.Lock()
	defer s.mu.Unlock()

	// 本机乐观消息的回显：按 id 对账，翻转标记，绝不重复计数
	if existing := s.findMessageLocked(p.ID); existing != nil {
		existing.Delivered = true
		existing.Optimistic = false
		s.touchPreviewLocked(key, existing)
		return
	}

	msg := &model.Message{
		ID:        p.ID,
		Sender:    p.Sender,
		Recipient: p.Recipient,
		Content:   p.Content,
		MsgType:   p.MsgType,
		CreatedAt: p.CreatedAt,
		Delivered: true,
	}
	s.ensureConversationLocked(key, peer)
	s.messages[key] = append(s.messages[key], msg)
	if key != s.active && p.Sender != self {
		s.unread[p.Sender]++
	}
	s.touchPreviewLocked(key, msg)
}

// handleDelivered 送达确认：跨会话按 id 定位，容忍重连后的乱序
func (s *conversationServiceImpl) handleDelivered(payload json.RawMessage) {
	var p dto.DeliveredPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 messageDelivered 载荷", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.findMessageLocked(p.MessageID); msg != nil {
		msg.Delivered = true
		msg.Optimistic = false
	}
}

// handleError 服务端拒收：回滚该会话全部未确认的乐观消息，已确认消息不动
func (s *conversationServiceImpl) handleError(payload json.RawMessage) {
	var p dto.MessageErrorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 messageError 载荷", "err", err)
		return
	}

	s.mu.Lock()
	list := s.messages[p.ConversationKey]
	kept := list[:0]
	removed := 0
	for _, m := range list {
		if m.Optimistic {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.messages[p.ConversationKey] = kept
	s.mu.Unlock()

	if removed > 0 && s.toaster != nil {
		reason := p.Reason
		if reason == "" {
			reason = ErrSendRejected.Error()
		}
		s.toaster.Toast(ToastError, reason, false)
	}
}

// handleTyping 打字指示：刷新信号时重置过期定时器，到期自动清除
func (s *conversationServiceImpl) handleTyping(payload json.RawMessage) {
	var p dto.TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn("丢弃非法 typing 载荷", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.typingTimers[p.Sender]; ok {
		t.Stop()
		delete(s.typingTimers, p.Sender)
	}

	if !p.IsTyping {
		delete(s.typing, p.Sender)
		return
	}

	s.typing[p.Sender] = true
	sender := p.Sender
	var timer *time.Timer
	timer = time.AfterFunc(s.typingExpiry, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.typingTimers[sender] == timer {
			delete(s.typing, sender)
			delete(s.typingTimers, sender)
		}
	})
	s.typingTimers[sender] = timer
}

// keyFor 解析会话 Key：已知群会话直接用其 Key，否则按参与双方推导单聊 Key
func (s *conversationServiceImpl) keyFor(peer string) string {
	s.mu.Lock()
	c, ok := s.conversations[peer]
	s.mu.Unlock()
	if ok && c.Type == model.ConvTypeGroup {
		return peer
	}
	return model.DirectKey(s.rt.Identity(), peer)
}

func (s *conversationServiceImpl) ensureConversationLocked(key, peer string) {
	if _, ok := s.conversations[key]; ok {
		return
	}
	s.conversations[key] = &model.Conversation{
		Key:          key,
		Type:         model.ConvTypeDirect,
		PeerID:       peer,
		Participants: []string{s.rt.Identity(), peer},
	}
}

func (s *conversationServiceImpl) touchPreviewLocked(key string, msg *model.Message) {
	c, ok := s.conversations[key]
	if !ok {
		return
	}
	c.LastMsgContent = msg.Content
	c.LastMsgType = int8(msg.MsgType)
	c.LastSenderID = msg.Sender
	c.LastMessageAt = msg.CreatedAt
}

func (s *conversationServiceImpl) findMessageLocked(id string) *model.Message {
	if id == "" {
		return nil
	}
	for _, list := range s.messages {
		for _, m := range list {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}

func (s *conversationServiceImpl) removeMessageLocked(key, id string) {
	list := s.messages[key]
	for i, m := range list {
		if m.ID == id {
			s.messages[key] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// mergeHistoryLocked 以服务端历史为准合并，保留尚未确认的本地乐观消息
func (s *conversationServiceImpl) mergeHistoryLocked(key string, history []*dto.MessageDTO) {
	seen := make(map[string]struct{}, len(history))
	next := make([]*model.Message, 0, len(history))
	for _, d := range history {
		m := &model.Message{}
		if err := copier.Copy(m, d); err != nil {
			log.Warn("历史消息映射失败", "err", err)
			continue
		}
		m.Delivered = true
		next = append(next, m)
		seen[m.ID] = struct{}{}
	}
	for _, m := range s.messages[key] {
		if _, ok := seen[m.ID]; !ok && m.Optimistic {
			next = append(next, m)
		}
	}
	s.messages[key] = next

	if len(next) > 0 {
		s.touchPreviewLocked(key, next[len(next)-1])
	}
}

func (s *conversationServiceImpl) mergeConversationLocked(d *dto.ConversationDTO) {
	c, ok := s.conversations[d.Key]
	if !ok {
		c = &model.Conversation{Key: d.Key}
		s.conversations[d.Key] = c
	}
	c.Type = d.Type
	c.PeerID = d.PeerID
	if len(d.Participants) > 0 {
		c.Participants = d.Participants
	}
	c.LastMsgContent = d.LastMsgContent
	c.LastMsgType = d.LastMsgType
	c.LastSenderID = d.LastSenderID
	c.LastMessageAt = d.LastMessageAt
	if d.UnreadCount > 0 && d.PeerID != "" && d.Key != s.active {
		s.unread[d.PeerID] = d.UnreadCount
	}
}
