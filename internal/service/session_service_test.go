package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/jwt"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/redis"
)

// ── Mock ScheduleSource ──

type stubSource struct {
	raw   []byte
	err   error
	calls int
	last  []string
}

func (s *stubSource) Fetch(_ context.Context, codes []string) ([]byte, error) {
	s.calls++
	s.last = codes
	return s.raw, s.err
}

func newTestSessionService(src ScheduleSource) (SessionService, *jwt.Manager) {
	repo, _, _ := newTestRepo()
	catalog := NewCatalogService(repo, zap.NewNop())
	jwtMgr := jwt.NewManager(&config.AuthConfig{SessionSecret: "test-secret-0123456789", SessionTTL: time.Hour})
	exporter := NewExportService(&config.ExportConfig{ImageFormat: "png"}, zap.NewNop())
	svc := NewSessionService(NewMemorySessionStore(time.Hour), catalog, src, exporter, jwtMgr, 5*time.Second, zap.NewNop())
	return svc, jwtMgr
}

func mustCreate(t *testing.T, svc SessionService) string {
	t.Helper()
	resp, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	return resp.SessionID
}

func TestSessionService_CreateIssuesToken(t *testing.T) {
	svc, jwtMgr := newTestSessionService(&stubSource{})
	resp, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	claims, err := jwtMgr.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("令牌无效: %v", err)
	}
	if claims.SessionID != resp.SessionID {
		t.Errorf("令牌中的会话 ID 不一致: %s != %s", claims.SessionID, resp.SessionID)
	}
}

func TestSessionService_EndDropsState(t *testing.T) {
	svc, _ := newTestSessionService(&stubSource{})
	ctx := context.Background()
	id := mustCreate(t, svc)

	if err := svc.End(ctx, id); err != nil {
		t.Fatalf("结束会话失败: %v", err)
	}
	if _, err := svc.Selection(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("结束后应为 ErrSessionNotFound，实际 %v", err)
	}
	if err := svc.End(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("重复结束应为 ErrSessionNotFound，实际 %v", err)
	}
}

func TestSessionService_ToggleUsesCatalogCredits(t *testing.T) {
	svc, _ := newTestSessionService(&stubSource{})
	ctx := context.Background()
	id := mustCreate(t, svc)

	svc.Toggle(ctx, id, "CS101")
	svc.Toggle(ctx, id, "MA201")
	got, err := svc.Toggle(ctx, id, "CS101")
	if err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if got.CreditTotal != 4 || len(got.Selected) != 1 || got.Selected[0] != "MA201" {
		t.Errorf("期望 [MA201] 4 学分，实际 %+v", got)
	}

	sel, _ := svc.Selection(ctx, id)
	if sel.CreditTotal != 4 {
		t.Errorf("状态应已持久化，实际 %+v", sel)
	}
}

func TestSessionService_ToggleUnknownCourse(t *testing.T) {
	svc, _ := newTestSessionService(&stubSource{})
	ctx := context.Background()
	id := mustCreate(t, svc)

	_, err := svc.Toggle(ctx, id, "XX999")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("期望 ErrCourseNotFound，实际 %v", err)
	}
	n, _ := svc.Notice(ctx, id)
	if n == nil || n.Kind != NoticeError {
		t.Errorf("应发布错误提示，实际 %+v", n)
	}
}

func TestSessionService_UnknownSession(t *testing.T) {
	svc, _ := newTestSessionService(&stubSource{})
	if _, err := svc.Toggle(context.Background(), "missing", "CS101"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际 %v", err)
	}
}

func TestSessionService_BuildEmptySelection(t *testing.T) {
	src := &stubSource{}
	svc, _ := newTestSessionService(src)
	ctx := context.Background()
	id := mustCreate(t, svc)

	_, err := svc.Build(ctx, id)
	if !errors.Is(err, ErrSelectionEmpty) {
		t.Fatalf("期望 ErrSelectionEmpty，实际 %v", err)
	}
	if apperrors.KindOf(err) != apperrors.KindInputValidation {
		t.Errorf("错误类别应为 InputValidation，实际 %s", apperrors.KindOf(err))
	}
	if src.calls != 0 {
		t.Error("空选课不应请求后端")
	}
}

func TestSessionService_BuildKeepsGridOnFailure(t *testing.T) {
	src := &stubSource{raw: []byte(`{"monday":[{"time":"09:00","class":"CS101,Intro CS,Lecture,RoomA"}],"tuesday":[]}`)}
	svc, _ := newTestSessionService(src)
	ctx := context.Background()
	id := mustCreate(t, svc)
	svc.Toggle(ctx, id, "CS101")

	first, err := svc.Build(ctx, id)
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	if src.last[0] != "CS101" {
		t.Errorf("应向后端发送选课编码，实际 %v", src.last)
	}

	// 后端错误
	src.raw, src.err = nil, errors.New("connection refused")
	_, err = svc.Build(ctx, id)
	if apperrors.KindOf(err) != apperrors.KindNetwork {
		t.Errorf("错误类别应为 Network，实际 %s (%v)", apperrors.KindOf(err), err)
	}
	grid, err := svc.Grid(ctx, id)
	if err != nil || !grid.Equal(first) {
		t.Errorf("后端失败后应保留原网格: %v", err)
	}

	// 响应损坏
	src.raw, src.err = []byte(`{"monday":"oops"}`), nil
	_, err = svc.Build(ctx, id)
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Errorf("期望 NormalizationError，实际 %v", err)
	}
	grid, _ = svc.Grid(ctx, id)
	if !grid.Equal(first) {
		t.Error("解析失败后应保留原网格")
	}
	n, _ := svc.Notice(ctx, id)
	if n == nil || n.Kind != NoticeError {
		t.Errorf("应发布错误提示，实际 %+v", n)
	}
}

func TestSessionService_ClearDropsGrid(t *testing.T) {
	src := &stubSource{raw: []byte(`{"monday":[{"time":"09:00","class":"CS101"}]}`)}
	svc, _ := newTestSessionService(src)
	ctx := context.Background()
	id := mustCreate(t, svc)
	svc.Toggle(ctx, id, "CS101")
	if _, err := svc.Build(ctx, id); err != nil {
		t.Fatalf("生成失败: %v", err)
	}

	got, err := svc.Clear(ctx, id)
	if err != nil {
		t.Fatalf("清空失败: %v", err)
	}
	if got.CreditTotal != 0 || len(got.Selected) != 0 {
		t.Errorf("清空后应为空: %+v", got)
	}
	if _, err := svc.Grid(ctx, id); !errors.Is(err, ErrGridNotBuilt) {
		t.Errorf("清空后网格应被丢弃，实际 %v", err)
	}
}

func TestSessionService_Export(t *testing.T) {
	src := &stubSource{raw: []byte(`{"monday":[{"time":"09:00","class":"CS101,Intro CS"}]}`)}
	svc, _ := newTestSessionService(src)
	ctx := context.Background()
	id := mustCreate(t, svc)

	if _, err := svc.Export(ctx, id, "csv"); !errors.Is(err, ErrGridNotBuilt) {
		t.Fatalf("未生成课表时应返回 ErrGridNotBuilt，实际 %v", err)
	}

	svc.Toggle(ctx, id, "CS101")
	svc.Build(ctx, id)
	res, err := svc.Export(ctx, id, "csv")
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if len(res.Data) == 0 {
		t.Error("导出内容不应为空")
	}
	n, _ := svc.Notice(ctx, id)
	if n == nil || n.Kind != NoticeSuccess {
		t.Errorf("导出成功应发布成功提示，实际 %+v", n)
	}
}

func TestSessionService_RemoveAbsentIsNoop(t *testing.T) {
	svc, _ := newTestSessionService(&stubSource{})
	ctx := context.Background()
	id := mustCreate(t, svc)

	got, err := svc.Remove(ctx, id, "PH301")
	if err != nil {
		t.Fatalf("移除不存在的课程不应报错: %v", err)
	}
	if got.Op != SelectionNoop {
		t.Errorf("期望 noop，实际 %s", got.Op)
	}
}

func TestSessionService_CatalogReimportKeepsCreditTotal(t *testing.T) {
	repo, _, _ := newTestRepo()
	catalog := NewCatalogService(repo, zap.NewNop())
	jwtMgr := jwt.NewManager(&config.AuthConfig{SessionSecret: "test-secret-0123456789", SessionTTL: time.Hour})
	exporter := NewExportService(&config.ExportConfig{ImageFormat: "png"}, zap.NewNop())
	svc := NewSessionService(NewMemorySessionStore(time.Hour), catalog, &stubSource{}, exporter, jwtMgr, 5*time.Second, zap.NewNop())

	ctx := context.Background()
	id := mustCreate(t, svc)
	svc.Toggle(ctx, id, "CS101")
	svc.Toggle(ctx, id, "MA201")

	// 重新导入：CS101 改为 5 学分，MA201 下架
	reimport := "Course Name,Course Code,Lecture,Tutorial,Lab,C\n" +
		"Intro CS,CS101,T1,,,5\n"
	if _, err := catalog.ImportCourses(ctx, strings.NewReader(reimport), CatalogCSV); err != nil {
		t.Fatalf("重新导入失败: %v", err)
	}

	got, err := svc.Toggle(ctx, id, "CS101")
	if err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if got.CreditTotal != 4 {
		t.Errorf("应按加入时的 3 学分扣减，期望 4，实际 %d", got.CreditTotal)
	}

	got, err = svc.Remove(ctx, id, "MA201")
	if err != nil {
		t.Fatalf("已下架课程也应可移除: %v", err)
	}
	if got.Op != SelectionRemoved || got.CreditTotal != 0 || len(got.Selected) != 0 {
		t.Errorf("期望空集合 0 学分，实际 %+v", got)
	}
}

// ── Session stores ──

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	store.Save(ctx, "s1", &SessionSnapshot{Codes: []string{"CS101"}, CreditTotal: 3})
	if _, err := store.Load(ctx, "s1"); err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("过期会话应不可读，实际 %v", err)
	}
}

type mockSessionKV struct {
	data map[string][]byte
	ttl  time.Duration
}

func (m *mockSessionKV) GetSession(_ context.Context, id string) ([]byte, error) {
	b, ok := m.data[id]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return b, nil
}

func (m *mockSessionKV) SetSession(_ context.Context, id string, data []byte, ttl time.Duration) error {
	m.data[id] = data
	m.ttl = ttl
	return nil
}

func (m *mockSessionKV) DeleteSession(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	kv := &mockSessionKV{data: make(map[string][]byte)}
	store := NewRedisSessionStore(kv, 30*time.Minute)
	ctx := context.Background()

	b := model.NewGridBuilder()
	b.Place(model.Tuesday, "10:00", model.ClassDescriptor{Code: "MA201", Type: "Tutorial"}, true)
	grid := b.Build()
	notice := &Notice{Kind: NoticeSuccess, Message: "ok", ExpiresAt: time.Now().Add(time.Minute)}

	if err := store.Save(ctx, "s1", &SessionSnapshot{Codes: []string{"MA201"}, Credits: map[string]int{"MA201": 4}, CreditTotal: 4, Grid: grid, Notice: notice}); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if kv.ttl != 30*time.Minute {
		t.Errorf("应使用会话 TTL，实际 %v", kv.ttl)
	}
	if !json.Valid(kv.data["s1"]) {
		t.Fatal("快照应为 JSON")
	}

	snap, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if snap.CreditTotal != 4 || snap.Codes[0] != "MA201" {
		t.Errorf("选课还原错误: %+v", snap)
	}
	if snap.Credits["MA201"] != 4 {
		t.Errorf("成员学分未还原: %v", snap.Credits)
	}
	if !snap.Grid.Equal(grid) {
		t.Error("网格还原不一致")
	}
	if snap.Notice == nil || snap.Notice.Message != "ok" {
		t.Errorf("提示还原错误: %+v", snap.Notice)
	}

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际 %v", err)
	}
}
