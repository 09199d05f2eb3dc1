package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

// ErrScheduleBackend 课表后端请求失败
var ErrScheduleBackend = apperrors.New(apperrors.KindNetwork, "课表后端请求失败")

const (
	scheduleMaxResponseSize = 5 * 1024 * 1024 // 5MB
	scheduleDefaultTimeout  = 15 * time.Second
)

// 本地课表生成器的输出形态
const (
	ShapeStructured = "structured"
	ShapeText       = "text"
)

// ScheduleSource 课表后端：输入选课编码，返回原始响应字节
// 返回字节由 NormalizeSchedule 解析，来源对引擎透明
type ScheduleSource interface {
	Fetch(ctx context.Context, codes []string) ([]byte, error)
}

// NewScheduleSource 按配置选择本地或远程后端
func NewScheduleSource(cfg *config.ScheduleConfig, builder *ScheduleBuilder, logger *zap.Logger) ScheduleSource {
	if cfg.Source == "remote" {
		return NewRemoteSource(cfg.BackendURL, cfg.Timeout, logger)
	}
	return NewLocalSource(builder, cfg.Shape)
}

// ── 本地后端 ──

// LocalSource 在进程内调用 ScheduleBuilder
type LocalSource struct {
	builder *ScheduleBuilder
	shape   string
}

// NewLocalSource 创建本地后端，shape 为空时输出结构化形态
func NewLocalSource(builder *ScheduleBuilder, shape string) *LocalSource {
	if shape == "" {
		shape = ShapeStructured
	}
	return &LocalSource{builder: builder, shape: shape}
}

func (s *LocalSource) Fetch(ctx context.Context, codes []string) ([]byte, error) {
	if s.shape == ShapeText {
		text, err := s.builder.BuildText(ctx, codes)
		if err != nil {
			return nil, err
		}
		return json.Marshal(dto.TextTimetable{Text: text})
	}

	tt, err := s.builder.BuildStructured(ctx, codes)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tt)
}

// ── 远程后端 ──

// RemoteSource 通过 HTTP POST {"courses": [...]} 请求课表后端
type RemoteSource struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewRemoteSource 创建远程后端
func NewRemoteSource(url string, timeout time.Duration, logger *zap.Logger) *RemoteSource {
	if timeout <= 0 {
		timeout = scheduleDefaultTimeout
	}
	return &RemoteSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *RemoteSource) Fetch(ctx context.Context, codes []string) ([]byte, error) {
	if len(codes) == 0 {
		return nil, ErrSelectionEmpty
	}

	body, err := json.Marshal(dto.TimetableRequest{Courses: codes})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("课表后端请求失败", zap.String("url", s.url), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrScheduleBackend, err)
	}
	defer resp.Body.Close()

	// 限制响应体大小
	data, err := io.ReadAll(io.LimitReader(resp.Body, scheduleMaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应失败: %v", ErrScheduleBackend, err)
	}
	if len(data) > scheduleMaxResponseSize {
		return nil, fmt.Errorf("%w: 响应超过 %d 字节", ErrScheduleBackend, scheduleMaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("课表后端返回非成功状态",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncateBytes(data, maxFragmentLen)),
		)
		return nil, &BackendStatusError{StatusCode: resp.StatusCode, Message: backendMessage(data)}
	}
	return data, nil
}

// BackendStatusError 后端返回非 2xx
type BackendStatusError struct {
	StatusCode int
	Message    string
}

func (e *BackendStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("课表后端返回 HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("课表后端返回 HTTP %d: %s", e.StatusCode, e.Message)
}

// Kind 归入 Network 类别
func (e *BackendStatusError) Kind() apperrors.Kind { return apperrors.KindNetwork }

// Unwrap 便于 errors.Is(err, ErrScheduleBackend)
func (e *BackendStatusError) Unwrap() error { return ErrScheduleBackend }

// backendMessage 提取后端 {"error": "..."} 中的说明
func backendMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return ""
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// IsBackendError 是否为课表后端错误（网络或状态码）
func IsBackendError(err error) bool {
	return errors.Is(err, ErrScheduleBackend)
}
