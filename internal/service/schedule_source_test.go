package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

func TestRemoteSource_PostsSelection(t *testing.T) {
	var got dto.TimetableRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("期望 POST，实际 %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("请求体解析失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"monday":[{"time":"9:00","class":"CS101,Intro"}]}`))
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL, time.Second, zap.NewNop())
	raw, err := src.Fetch(context.Background(), []string{"CS101", "MA201"})
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	if len(got.Courses) != 2 || got.Courses[1] != "MA201" {
		t.Errorf("请求体应包含选课编码，实际 %+v", got)
	}
	if !strings.Contains(string(raw), "CS101") {
		t.Errorf("应原样返回响应体，实际 %s", raw)
	}
}

func TestRemoteSource_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"No courses selected"}`))
	}))
	defer srv.Close()

	_, err := NewRemoteSource(srv.URL, time.Second, zap.NewNop()).Fetch(context.Background(), []string{"CS101"})
	var statusErr *BackendStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("期望 BackendStatusError，实际 %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Message != "No courses selected" {
		t.Errorf("错误内容不符: %+v", statusErr)
	}
	if apperrors.KindOf(err) != apperrors.KindNetwork {
		t.Errorf("错误类别应为 Network，实际 %s", apperrors.KindOf(err))
	}
	if !IsBackendError(err) {
		t.Error("应识别为课表后端错误")
	}
}

func TestRemoteSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewRemoteSource(url, time.Second, zap.NewNop()).Fetch(context.Background(), []string{"CS101"})
	if !errors.Is(err, ErrScheduleBackend) {
		t.Fatalf("期望 ErrScheduleBackend，实际 %v", err)
	}
	if apperrors.KindOf(err) != apperrors.KindNetwork {
		t.Errorf("错误类别应为 Network，实际 %s", apperrors.KindOf(err))
	}
}

func TestRemoteSource_EmptySelection(t *testing.T) {
	src := NewRemoteSource("http://127.0.0.1:1", time.Second, zap.NewNop())
	if _, err := src.Fetch(context.Background(), nil); !errors.Is(err, ErrSelectionEmpty) {
		t.Errorf("期望 ErrSelectionEmpty，实际 %v", err)
	}
}

func TestLocalSource_TextShapeIsWrapped(t *testing.T) {
	raw, err := NewLocalSource(newTestBuilder(), ShapeText).Fetch(context.Background(), []string{"PH301"})
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	var body dto.TextTimetable
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("文本形态应包装为 {\"text\": ...}: %v", err)
	}
	if !strings.HasPrefix(body.Text, "Time Slot\t") {
		t.Errorf("文本形态表头错误: %q", body.Text)
	}
}
