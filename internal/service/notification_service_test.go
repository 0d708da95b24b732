package service

import (
	"Courier/internal/api/dto"
	"Courier/internal/model"
	"Courier/internal/pkg/consts"
	"Courier/internal/pkg/prefs"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationFixture struct {
	rt       *fakeRealtime
	prefs    *prefs.Store
	chime    *fakeChime
	toaster  *fakeToaster
	notifier *fakeNotifier
	convs    ConversationService
	svc      NotificationService
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()
	rt := newFakeRealtime("u1")
	store := newTestPrefs(t)
	chime := &fakeChime{}
	toaster := &fakeToaster{}
	notifier := &fakeNotifier{}
	convs := NewConversationService(rt, &fakeDirectory{}, &fakeChime{}, toaster, store, 0)
	t.Cleanup(convs.Close)
	svc := NewNotificationService(rt, store, chime, notifier, toaster, convs)
	return &notificationFixture{
		rt: rt, prefs: store, chime: chime, toaster: toaster, notifier: notifier, convs: convs, svc: svc,
	}
}

func TestMessageNotificationClassification(t *testing.T) {
	tests := []struct {
		name       string
		payload    dto.NotificationPayload
		wantPreset string
		wantTag    string
	}{
		{
			name:       "direct message",
			payload:    dto.NotificationPayload{Sender: "u2", SenderName: "bob", Content: "hi"},
			wantPreset: consts.SoundMessage,
			wantTag:    "courier-message",
		},
		{
			name:       "group message",
			payload:    dto.NotificationPayload{Sender: "u2", SenderName: "bob", Content: "hi", IsGroup: true},
			wantPreset: consts.SoundGroup,
			wantTag:    "courier-group",
		},
		{
			name:       "guest message outranks group",
			payload:    dto.NotificationPayload{Sender: "g1", SenderName: "visitor", Content: "hi", IsGroup: true, IsGuest: true},
			wantPreset: consts.SoundUrgent,
			wantTag:    "courier-urgent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newNotificationFixture(t)
			fx.rt.fire(t, consts.EventMessageNotification, tt.payload)

			require.Len(t, fx.chime.presets(), 1)
			assert.Equal(t, tt.wantPreset, fx.chime.presets()[0])

			sent := fx.notifier.all()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantTag, sent[0].tag)

			assert.Len(t, fx.toaster.all(), 1)
		})
	}
}

func TestMessageNotificationHonorsMessageSoundChoice(t *testing.T) {
	fx := newNotificationFixture(t)
	sound := consts.SoundSoft
	require.NoError(t, fx.prefs.Save(&prefs.Patch{MessageSound: &sound}))

	fx.rt.fire(t, consts.EventMessageNotification, dto.NotificationPayload{Sender: "u2", Content: "hi"})

	require.Len(t, fx.chime.presets(), 1)
	assert.Equal(t, consts.SoundSoft, fx.chime.presets()[0])
}

func TestDisabledSoundsSilenceEverything(t *testing.T) {
	fx := newNotificationFixture(t)
	off := false
	require.NoError(t, fx.prefs.Save(&prefs.Patch{EnableSounds: &off}))

	fx.rt.fire(t, consts.EventMessageNotification, dto.NotificationPayload{Sender: "u2", Content: "hi"})
	fx.rt.fire(t, consts.EventExamReminder, dto.ExamReminderPayload{Title: "期中考试"})
	fx.rt.fire(t, consts.EventNotification, dto.SystemNotificationPayload{Content: "维护公告", Urgent: true})

	assert.Empty(t, fx.chime.presets())
	// 静音不影响通知与提示本身
	assert.NotEmpty(t, fx.notifier.all())
	assert.NotEmpty(t, fx.toaster.all())
}

func TestDisabledBrowserNotifications(t *testing.T) {
	fx := newNotificationFixture(t)
	off := false
	require.NoError(t, fx.prefs.Save(&prefs.Patch{EnableBrowserNotifications: &off}))

	fx.rt.fire(t, consts.EventMessageNotification, dto.NotificationPayload{Sender: "u2", Content: "hi"})

	assert.Empty(t, fx.notifier.all())
	assert.Len(t, fx.toaster.all(), 1)
}

func TestFocusedConversationSuppressesToastOnly(t *testing.T) {
	fx := newNotificationFixture(t)
	require.NoError(t, fx.convs.StartConversation(context.Background(), "u2"))
	key := model.DirectKey("u1", "u2")

	fx.rt.fire(t, consts.EventMessageNotification, dto.NotificationPayload{
		Sender: "u2", Content: "hi", ConversationKey: key,
	})

	// 浮动提示被抑制，提示音与原生通知照常
	assert.Empty(t, fx.toaster.all())
	assert.Len(t, fx.chime.presets(), 1)
	assert.Len(t, fx.notifier.all(), 1)
}

func TestMessageNotificationFallbackKey(t *testing.T) {
	fx := newNotificationFixture(t)
	require.NoError(t, fx.convs.StartConversation(context.Background(), "u2"))

	// 载荷缺失会话 Key 时按发送方推导，仍能命中焦点抑制
	fx.rt.fire(t, consts.EventMessageNotification, dto.NotificationPayload{Sender: "u2", Content: "hi"})
	assert.Empty(t, fx.toaster.all())
}

func TestExamReminderAlwaysUrgentAndSticky(t *testing.T) {
	fx := newNotificationFixture(t)
	require.NoError(t, fx.convs.StartConversation(context.Background(), "u2"))

	var modal *dto.ExamReminderPayload
	fx.svc.OnExamModal(func(p dto.ExamReminderPayload) { modal = &p })

	fx.rt.fire(t, consts.EventExamReminder, dto.ExamReminderPayload{Title: "期末考试", Content: "14:00 开考"})

	assert.Equal(t, []string{consts.SoundUrgent}, fx.chime.presets())

	// 不受焦点抑制且需交互关闭
	toasts := fx.toaster.all()
	require.Len(t, toasts, 1)
	assert.True(t, toasts[0].sticky)
	assert.Contains(t, toasts[0].message, "期末考试")

	require.NotNil(t, modal)
	assert.Equal(t, "期末考试", modal.Title)

	sent := fx.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "courier-urgent", sent[0].tag)
}

func TestSystemNotificationCategory(t *testing.T) {
	fx := newNotificationFixture(t)

	fx.rt.fire(t, consts.EventNotification, dto.SystemNotificationPayload{Content: "维护公告"})
	fx.rt.fire(t, consts.EventNotification, dto.SystemNotificationPayload{Content: "紧急公告", Urgent: true})

	assert.Equal(t, []string{consts.SoundSoft, consts.SoundUrgent}, fx.chime.presets())
	assert.Len(t, fx.toaster.all(), 2)
}

func TestStatusSoundsOffByDefault(t *testing.T) {
	fx := newNotificationFixture(t)

	fx.rt.fire(t, consts.EventUserStatusUpdate, dto.StatusUpdatePayload{UserID: "u2", Status: consts.StatusOnline})
	assert.Empty(t, fx.chime.presets())

	on := true
	require.NoError(t, fx.prefs.Save(&prefs.Patch{EnableStatusSounds: &on}))
	fx.rt.fire(t, consts.EventUserStatusUpdate, dto.StatusUpdatePayload{UserID: "u2", Status: consts.StatusOffline})
	assert.Equal(t, []string{consts.SoundSoft}, fx.chime.presets())
}

func TestTestNotification(t *testing.T) {
	fx := newNotificationFixture(t)

	fx.svc.TestNotification(consts.CategoryUrgent)

	assert.Equal(t, []string{consts.SoundUrgent}, fx.chime.presets())
	assert.Len(t, fx.toaster.all(), 1)
}

func TestHandleNotificationClick(t *testing.T) {
	fx := newNotificationFixture(t)

	focused := false
	fx.svc.OnFocusWindow(func() { focused = true })

	key := model.DirectKey("u1", "u2")
	require.NoError(t, fx.svc.HandleNotificationClick(context.Background(), key))

	assert.Equal(t, key, fx.convs.ActiveConversation())
	assert.True(t, focused)
}

func TestHandleNotificationClickInvalidKey(t *testing.T) {
	fx := newNotificationFixture(t)
	assert.ErrorIs(t, fx.svc.HandleNotificationClick(context.Background(), ""), ErrParamInvalid)
}
