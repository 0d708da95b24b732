package service

import (
	"Courier/internal/api/dto"
	"Courier/internal/pkg/prefs"
	"Courier/internal/pkg/ws"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// fakeRealtime 进程内传输替身：直接把事件回放给订阅者
type fakeRealtime struct {
	mu       sync.Mutex
	handlers map[string][]ws.Handler
	emitted  []emittedEvent
	state    ws.State
	identity string
	emitErr  error
}

type emittedEvent struct {
	event   string
	payload interface{}
}

func newFakeRealtime(identity string) *fakeRealtime {
	return &fakeRealtime{
		handlers: make(map[string][]ws.Handler),
		state:    ws.StateConnected,
		identity: identity,
	}
}

func (f *fakeRealtime) On(event string, h ws.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
}

func (f *fakeRealtime) Emit(event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emitted = append(f.emitted, emittedEvent{event: event, payload: payload})
	return nil
}

func (f *fakeRealtime) State() ws.State  { return f.state }
func (f *fakeRealtime) Identity() string { return f.identity }

func (f *fakeRealtime) emittedEvents() []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emittedEvent(nil), f.emitted...)
}

// fire 模拟服务端下发事件
func (f *fakeRealtime) fire(t *testing.T, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	f.mu.Lock()
	hs := append([]ws.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(raw)
	}
}

// fakeDirectory 协作接口替身
type fakeDirectory struct {
	conversations []*dto.ConversationDTO
	messages      map[string][]*dto.MessageDTO
	contacts      []*dto.ContactDTO
	convErr       error
	msgErr        error
	contactErr    error
}

func (f *fakeDirectory) ListConversations(_ context.Context) ([]*dto.ConversationDTO, error) {
	return f.conversations, f.convErr
}

func (f *fakeDirectory) ListMessages(_ context.Context, key string) ([]*dto.MessageDTO, error) {
	if f.msgErr != nil {
		return nil, f.msgErr
	}
	return f.messages[key], nil
}

func (f *fakeDirectory) ListContacts(_ context.Context) ([]*dto.ContactDTO, error) {
	return f.contacts, f.contactErr
}

// fakeChime 记录播放过的预设
type fakeChime struct {
	mu     sync.Mutex
	played []string
}

func (f *fakeChime) Play(preset string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, preset)
}

func (f *fakeChime) presets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

// fakeToaster 记录浮动提示
type fakeToaster struct {
	mu     sync.Mutex
	toasts []toastRecord
}

type toastRecord struct {
	level   string
	message string
	sticky  bool
}

func (f *fakeToaster) Toast(level, message string, sticky bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, toastRecord{level: level, message: message, sticky: sticky})
}

func (f *fakeToaster) all() []toastRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toastRecord(nil), f.toasts...)
}

// fakeNotifier 记录原生通知
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notifyRecord
	fail  error
}

type notifyRecord struct {
	title string
	body  string
	tag   string
}

func (f *fakeNotifier) Notify(title, body, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, notifyRecord{title: title, body: body, tag: tag})
	return nil
}

func (f *fakeNotifier) all() []notifyRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifyRecord(nil), f.sent...)
}

func newTestPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	return prefs.NewStore(filepath.Join(t.TempDir(), "prefs.json"))
}
