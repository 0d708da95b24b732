package config

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Rest     RestConfig     `mapstructure:"rest"`
	Prefs    PrefsConfig    `mapstructure:"prefs"`
	Sound    SoundConfig    `mapstructure:"sound"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 中继服务配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RealtimeConfig 实时连接配置
type RealtimeConfig struct {
	URL                  string `mapstructure:"url"`
	HandshakeTimeout     int    `mapstructure:"handshake_timeout"`      // 秒
	ReconnectDelay       int    `mapstructure:"reconnect_delay"`        // 毫秒
	MaxReconnectAttempts int    `mapstructure:"max_reconnect_attempts"` // 0 取默认值
	PingInterval         int    `mapstructure:"ping_interval"`          // 秒
}

// RestConfig 协作 REST 接口配置
type RestConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

// PrefsConfig 通知偏好持久化配置
type PrefsConfig struct {
	Path string `mapstructure:"path"`
}

// SoundConfig 提示音配置
type SoundConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
}

// AuthConfig 中继端的演示账户，仅供本地联调
type AuthConfig struct {
	Users []AuthUser `mapstructure:"users"`
}

type AuthUser struct {
	UserID       string `mapstructure:"user_id"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Guest        bool   `mapstructure:"guest"`
}

// LogConfig 日志配置
type LogConfig struct {
	File string `mapstructure:"file"`
}
