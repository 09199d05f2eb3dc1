package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/redis"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = apperrors.New(apperrors.KindInputValidation, "会话不存在或已过期，请重新创建")

// SessionSnapshot 会话的可持久化状态
type SessionSnapshot struct {
	Codes       []string         `json:"codes"`
	Credits     map[string]int   `json:"credits,omitempty"`
	CreditTotal int              `json:"credit_total"`
	Grid        *model.GridModel `json:"grid,omitempty"`
	Notice      *Notice          `json:"notice,omitempty"`
}

// SessionStore 会话快照存储
type SessionStore interface {
	// Load 不存在或已过期时返回 ErrSessionNotFound
	Load(ctx context.Context, id string) (*SessionSnapshot, error)
	// Save 写入快照并刷新空闲过期时间
	Save(ctx context.Context, id string, snap *SessionSnapshot) error
	Delete(ctx context.Context, id string) error
}

// ── 内存存储 ──

type memoryEntry struct {
	snap      SessionSnapshot
	expiresAt time.Time
}

// MemorySessionStore 进程内会话存储（单实例部署）
type MemorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemorySessionStore 创建内存会话存储
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (*SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.ttl > 0 && !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return nil, ErrSessionNotFound
	}
	snap := e.snap
	snap.Codes = append([]string(nil), e.snap.Codes...)
	snap.Credits = copyCredits(e.snap.Credits)
	return &snap, nil
}

func (s *MemorySessionStore) Save(_ context.Context, id string, snap *SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	stored := *snap
	stored.Codes = append([]string(nil), snap.Codes...)
	stored.Credits = copyCredits(snap.Credits)
	s.entries[id] = memoryEntry{snap: stored, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func copyCredits(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// evictExpired 顺带清理过期会话，调用方持有锁
func (s *MemorySessionStore) evictExpired() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// ── Redis 存储 ──

// SessionKV Redis 会话键值操作（*redis.Client 实现）
type SessionKV interface {
	GetSession(ctx context.Context, id string) ([]byte, error)
	SetSession(ctx context.Context, id string, data []byte, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
}

// RedisSessionStore 以 JSON 快照保存会话，适合多实例部署
type RedisSessionStore struct {
	kv  SessionKV
	ttl time.Duration
}

// NewRedisSessionStore 创建 Redis 会话存储
func NewRedisSessionStore(kv SessionKV, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{kv: kv, ttl: ttl}
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*SessionSnapshot, error) {
	data, err := s.kv.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("会话快照损坏: %w", err)
	}
	return &snap, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, id string, snap *SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.SetSession(ctx, id, data, s.ttl); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.kv.DeleteSession(ctx, id)
}
