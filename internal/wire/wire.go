package wire

import (
	"Courier/internal/api/config"
	"Courier/internal/pkg/consts"
	"Courier/internal/pkg/prefs"
	"Courier/internal/pkg/rest"
	"Courier/internal/pkg/sound"
	"Courier/internal/pkg/ws"
	"Courier/internal/service"
	"context"
)

// ApplicationContainer 封装了客户端核心运行所需的所有顶级组件
type ApplicationContainer struct {
	Manager       *ws.Manager
	Rest          *rest.Client
	Prefs         *prefs.Store
	Sound         *sound.Engine
	Conversations service.ConversationService
	Notifications service.NotificationService
}

// BuildApplication 手工依赖注入
// 播放设备、浮动提示与原生通知由组合根注入，便于测试替换
func BuildApplication(cfg *config.Config, sink sound.Sink, toaster service.Toaster, notifier service.Notifier) (*ApplicationContainer, error) {
	prefsStore := prefs.NewStore(cfg.Prefs.Path)
	engine := sound.NewEngine(sink, cfg.Sound.SampleRate)
	manager := ws.NewManager(&cfg.Realtime)
	restClient := rest.NewClient(&cfg.Rest)

	convs := service.NewConversationService(manager, restClient, engine, toaster, prefsStore, consts.TypingExpiry)
	notifs := service.NewNotificationService(manager, prefsStore, engine, notifier, toaster, convs)

	// 连接就绪后刷新会话列表与成员目录
	manager.OnReady(func(ctx context.Context) {
		_ = convs.Refresh(ctx)
	})

	return &ApplicationContainer{
		Manager:       manager,
		Rest:          restClient,
		Prefs:         prefsStore,
		Sound:         engine,
		Conversations: convs,
		Notifications: notifs,
	}, nil
}

// Connect 绑定身份并建连，REST 凭证与实时连接同源
func (app *ApplicationContainer) Connect(userID, token string) error {
	app.Rest.SetAuthToken(token)
	return app.Manager.Connect(userID, token)
}
