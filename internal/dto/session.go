package dto

import "time"

// ── 会话 ──

// CreateSessionResponse 新建会话
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToggleCourseRequest 切换选课
type ToggleCourseRequest struct {
	Code string `json:"code" binding:"required,max=15"`
}

// SelectionResponse 选课变更结果
type SelectionResponse struct {
	Op          string   `json:"op"`             // added | removed | cleared | noop | snapshot
	Code        string   `json:"code,omitempty"` // 受影响的课程
	Courses     []string `json:"courses"`
	CreditTotal int      `json:"credit_total"`
}

// NoticeResponse 当前提示消息
type NoticeResponse struct {
	Kind      string    `json:"kind"` // error | success
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}
