package prefs

import (
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

// Preferences 通知偏好，进程内唯一，读多写少
type Preferences struct {
	EnableSounds               bool    `json:"enableSounds"`
	MessageSound               string  `json:"messageSound"` // message|group|urgent|soft
	Volume                     float64 `json:"volume"`       // 0.0 ~ 1.0
	EnableBrowserNotifications bool    `json:"enableBrowserNotifications"`
	EnableToastNotifications   bool    `json:"enableToastNotifications"`
	EnableStatusSounds         bool    `json:"enableStatusSounds"`
}

// Patch 偏好的部分更新，nil 字段保持原值
type Patch struct {
	EnableSounds               *bool
	MessageSound               *string
	Volume                     *float64
	EnableBrowserNotifications *bool
	EnableToastNotifications   *bool
	EnableStatusSounds         *bool
}

// Defaults 缺省偏好
func Defaults() Preferences {
	return Preferences{
		EnableSounds:               true,
		MessageSound:               "message",
		Volume:                     0.7,
		EnableBrowserNotifications: true,
		EnableToastNotifications:   true,
		EnableStatusSounds:         false,
	}
}

// Store 偏好的本地持久化，唯一写入方
type Store struct {
	mu   sync.RWMutex
	path string
	cur  Preferences
}

func NewStore(path string) *Store {
	s := &Store{path: path, cur: Defaults()}
	s.cur = s.Load()
	return s
}

// Load 读取持久化偏好并与缺省值合并，持久化字段优先；损坏数据按不存在处理
func (s *Store) Load() Preferences {
	p := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn("偏好数据损坏，回退缺省值", "path", s.path, "err", err)
		return Defaults()
	}
	if p.Volume < 0 {
		p.Volume = 0
	}
	if p.Volume > 1 {
		p.Volume = 1
	}
	return p
}

// Save 合并部分更新并整体落盘，落盘为原子替换
func (s *Store) Save(patch *Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	if patch != nil {
		if err := copier.CopyWithOption(&next, patch, copier.Option{IgnoreEmpty: true}); err != nil {
			return fmt.Errorf("合并偏好失败: %w", err)
		}
	}
	if next.Volume < 0 {
		next.Volume = 0
	}
	if next.Volume > 1 {
		next.Volume = 1
	}

	if err := s.persist(next); err != nil {
		// 持久化失败不阻断内存态更新，下次启动回退缺省
		log.Warn("偏好持久化失败", "path", s.path, "err", err)
	}
	s.cur = next
	return nil
}

// Current 返回当前偏好的副本
func (s *Store) Current() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) persist(p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
