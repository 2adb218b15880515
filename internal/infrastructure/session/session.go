package session

import (
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/betbot/orderconsole/pkg/config"
	"github.com/betbot/orderconsole/pkg/persistence"
)

// 会话记录在持久化层中的位置
const (
	namespace = "session"
	recordKey = "order-console"
)

// record 持久化的会话记录
type record struct {
	LastUserID string `json:"last_user_id"`
}

// Store 记住上次使用的用户 ID（实现 console.SessionStore）
type Store struct {
	mu    sync.Mutex
	store persistence.Store
}

// New 使用给定的持久化服务
func New(service persistence.Service) *Store {
	return &Store{store: service.NewStore(namespace, recordKey)}
}

// Open 按配置选择 JSON 文件或 Badger 后端；返回的 Closer 需要在退出时调用
func Open(cfg *config.Config) (*Store, io.Closer, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendBadger:
		svc, err := persistence.OpenBadger(persistence.BadgerOptions{
			Path: filepath.Join(cfg.SessionDir, "badger"),
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "打开 badger 会话存储失败")
		}
		return New(svc), svc, nil
	default:
		return New(persistence.NewJSONFileService(cfg.SessionDir)), closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// LoadUserID 读取上次的用户 ID；从未保存过时返回空串
func (s *Store) LoadUserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec record
	if err := s.store.Load(&rec); err != nil {
		if errors.Is(err, persistence.ErrNotExists) {
			return "", nil
		}
		return "", errors.Wrap(err, "读取会话失败")
	}
	return strings.TrimSpace(rec.LastUserID), nil
}

// SaveUserID 保存用户 ID
func (s *Store) SaveUserID(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{LastUserID: strings.TrimSpace(userID)}
	if err := s.store.Save(rec); err != nil {
		return errors.Wrap(err, "保存会话失败")
	}
	return nil
}

// ResolveUserID 启动用户：显式指定 > 上次会话 > 默认值
func ResolveUserID(explicit string, store *Store, fallback string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if store != nil {
		if id, err := store.LoadUserID(); err == nil && id != "" {
			return id
		}
	}
	return fallback
}
