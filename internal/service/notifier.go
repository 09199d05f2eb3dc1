package service

import "time"

// NoticeKind 提示类别；错误与成功两个通道互斥
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice 一条临时提示
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Notifier 每个会话一个提示槽位
//
// 发布新提示会替换旧提示（无论类别），到期后自动消失。
// 时钟可注入以便测试。
type Notifier struct {
	ttl     time.Duration
	now     func() time.Time
	current *Notice
}

// NewNotifier 创建 Notifier，ttl <= 0 时使用 5 秒
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Notifier{ttl: ttl, now: time.Now}
}

// RestoreNotifier 从会话快照还原，已过期的提示直接丢弃
func RestoreNotifier(ttl time.Duration, n *Notice) *Notifier {
	nt := NewNotifier(ttl)
	if n != nil && nt.now().Before(n.ExpiresAt) {
		cp := *n
		nt.current = &cp
	}
	return nt
}

// Error 发布错误提示
func (n *Notifier) Error(msg string) {
	n.post(NoticeError, msg)
}

// Success 发布成功提示
func (n *Notifier) Success(msg string) {
	n.post(NoticeSuccess, msg)
}

func (n *Notifier) post(kind NoticeKind, msg string) {
	n.current = &Notice{Kind: kind, Message: msg, ExpiresAt: n.now().Add(n.ttl)}
}

// Active 返回当前未过期的提示
func (n *Notifier) Active() (Notice, bool) {
	if n.current == nil {
		return Notice{}, false
	}
	if !n.now().Before(n.current.ExpiresAt) {
		n.current = nil
		return Notice{}, false
	}
	return *n.current, true
}

// Dismiss 立即关闭当前提示
func (n *Notifier) Dismiss() {
	n.current = nil
}

// snapshot 用于会话持久化
func (n *Notifier) snapshot() *Notice {
	if notice, ok := n.Active(); ok {
		return &notice
	}
	return nil
}
