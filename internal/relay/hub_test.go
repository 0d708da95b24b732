package relay

import (
	"Courier/internal/api/config"
	"Courier/internal/api/dto"
	"Courier/internal/pkg/consts"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUsers = []config.AuthUser{
	{UserID: "u-alice", Username: "alice"},
	{UserID: "u-bob", Username: "bob"},
	{UserID: "u-guest", Username: "visitor", Guest: true},
}

// peerConn 一条已注册到 Hub 的客户端连接
type peerConn struct {
	conn *websocket.Conn
}

func (p *peerConn) send(t *testing.T, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(dto.EventEnvelope{Event: event, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, p.conn.WriteMessage(websocket.TextMessage, data))
}

// waitFor 持续读取直到命中指定事件；不相关的事件（如状态广播）跳过
func (p *peerConn) waitFor(t *testing.T, event string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, p.conn.SetReadDeadline(deadline))
		_, data, err := p.conn.ReadMessage()
		require.NoError(t, err)

		var env dto.EventEnvelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Event == event {
			return env.Payload
		}
	}
	t.Fatalf("timed out waiting for %s", event)
	return nil
}

type hubFixture struct {
	hub *Hub
	srv *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	hub := NewHub(testUsers)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		var matched *config.AuthUser
		for i := range testUsers {
			if testUsers[i].UserID == userID {
				matched = &testUsers[i]
			}
		}
		require.NotNil(t, matched)

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := hub.Register(matched.UserID, matched.Username, matched.Guest, conn)
		defer hub.Unregister(client)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			hub.HandleEnvelope(client, data)
		}
	}))
	t.Cleanup(srv.Close)
	return &hubFixture{hub: hub, srv: srv}
}

func (f *hubFixture) connect(t *testing.T, userID string) *peerConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &peerConn{conn: conn}
}

func TestRelayMessageFlow(t *testing.T) {
	fx := newHubFixture(t)
	alice := fx.connect(t, "u-alice")
	bob := fx.connect(t, "u-bob")

	alice.send(t, consts.EventSendMessage, dto.MessagePayload{
		ID: "m1", Sender: "u-alice", Recipient: "u-bob", Content: "hello", MsgType: consts.MsgTypeText,
	})

	var msg dto.MessagePayload
	require.NoError(t, json.Unmarshal(bob.waitFor(t, consts.EventNewMessage), &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "u-alice", msg.Sender)
	assert.Equal(t, "hello", msg.Content)

	var note dto.NotificationPayload
	require.NoError(t, json.Unmarshal(bob.waitFor(t, consts.EventMessageNotification), &note))
	assert.Equal(t, "alice", note.SenderName)
	assert.Equal(t, "u-alice_u-bob", note.ConversationKey)
	assert.False(t, note.IsGuest)

	// 发送方拿到沿用同 id 的回执
	var ack dto.DeliveredPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventMessageDelivered), &ack))
	assert.Equal(t, "m1", ack.MessageID)

	// 消息进入内存历史，供 REST 接口联调
	history := fx.hub.Messages("u-alice_u-bob")
	require.Len(t, history, 1)
	assert.True(t, history[0].Delivered)

	convs := fx.hub.Conversations("u-alice")
	require.Len(t, convs, 1)
	assert.Equal(t, "u-bob", convs[0].PeerID)
	assert.Equal(t, "hello", convs[0].LastMsgContent)
}

func TestRelayGuestMessageFlagged(t *testing.T) {
	fx := newHubFixture(t)
	guest := fx.connect(t, "u-guest")
	alice := fx.connect(t, "u-alice")

	guest.send(t, consts.EventSendMessage, dto.MessagePayload{
		ID: "m1", Sender: "u-guest", Recipient: "u-alice", Content: "咨询一下", MsgType: consts.MsgTypeText,
	})

	var note dto.NotificationPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventMessageNotification), &note))
	assert.True(t, note.IsGuest)
}

func TestRelayRejectsEmptyContent(t *testing.T) {
	fx := newHubFixture(t)
	alice := fx.connect(t, "u-alice")

	alice.send(t, consts.EventSendMessage, dto.MessagePayload{
		ID: "m1", Sender: "u-alice", Recipient: "u-bob", Content: "   ", MsgType: consts.MsgTypeText,
	})

	var p dto.MessageErrorPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventMessageError), &p))
	assert.Equal(t, "u-alice_u-bob", p.ConversationKey)
	assert.Empty(t, fx.hub.Messages("u-alice_u-bob"))
}

func TestRelayRejectsUnknownRecipient(t *testing.T) {
	fx := newHubFixture(t)
	alice := fx.connect(t, "u-alice")

	alice.send(t, consts.EventSendMessage, dto.MessagePayload{
		ID: "m1", Sender: "u-alice", Recipient: "u-nobody", Content: "hello", MsgType: consts.MsgTypeText,
	})

	var p dto.MessageErrorPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventMessageError), &p))
	assert.NotEmpty(t, p.Reason)
}

func TestRelayStatusBroadcast(t *testing.T) {
	fx := newHubFixture(t)
	alice := fx.connect(t, "u-alice")
	bob := fx.connect(t, "u-bob")

	// bob 上线时 alice 收到广播
	var p dto.StatusUpdatePayload
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventUserStatusUpdate), &p))
	assert.Equal(t, "u-bob", p.UserID)
	assert.Equal(t, consts.StatusOnline, p.Status)

	bob.send(t, consts.EventUpdateStatus, dto.StatusUpdatePayload{UserID: "u-bob", Status: consts.StatusAway})
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventUserStatusUpdate), &p))
	assert.Equal(t, consts.StatusAway, p.Status)
}

func TestRelayTypingForward(t *testing.T) {
	fx := newHubFixture(t)
	alice := fx.connect(t, "u-alice")
	bob := fx.connect(t, "u-bob")

	alice.send(t, consts.EventTyping, dto.TypingPayload{Sender: "u-alice", Recipient: "u-bob", IsTyping: true})

	var p dto.TypingPayload
	require.NoError(t, json.Unmarshal(bob.waitFor(t, consts.EventTyping), &p))
	assert.Equal(t, "u-alice", p.Sender)
	assert.True(t, p.IsTyping)
}

func TestRelayContacts(t *testing.T) {
	fx := newHubFixture(t)
	fx.connect(t, "u-alice")

	var aliceStatus, bobStatus string
	require.Eventually(t, func() bool {
		for _, c := range fx.hub.Contacts() {
			switch c.UserID {
			case "u-alice":
				aliceStatus = c.Status
			case "u-bob":
				bobStatus = c.Status
			}
		}
		return aliceStatus == consts.StatusOnline
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, consts.StatusOffline, bobStatus)
}

func TestRelayDropsMalformedEnvelope(t *testing.T) {
	fx := newHubFixture(t)
	alice := fx.connect(t, "u-alice")

	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, []byte(`not-json`)))
	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{}}`)))

	// 连接保持可用
	alice.send(t, consts.EventSendMessage, dto.MessagePayload{
		ID: "m1", Sender: "u-alice", Recipient: "u-bob", Content: "still here", MsgType: consts.MsgTypeText,
	})
	var ack dto.DeliveredPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(t, consts.EventMessageDelivered), &ack))
	assert.Equal(t, "m1", ack.MessageID)
}
