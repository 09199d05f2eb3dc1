package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/jwt"
)

// ErrGridNotBuilt 尚未成功生成过课表
var ErrGridNotBuilt = apperrors.New(apperrors.KindInputValidation, "尚未生成课表，请先生成")

// ── SessionService ─────────────────────────────────────────
//
// 每个会话独占一组状态：SelectionStore + 最近一次成功的 GridModel + Notifier。
// 每次请求：加载快照 → 还原状态 → 执行操作 → 写回快照。
// 同一会话的请求由会话锁串行化；并发的 Build 以最后写回者为准。
//
// 错误处理：所有错误都不终止会话。Build 失败（空选课、后端、解析）
// 保留原网格；每个操作结果都会发布一条提示。
// ─────────────────────────────────────────────────────────────

// SessionService 会话业务接口
type SessionService interface {
	// Create 创建会话并签发会话令牌
	Create(ctx context.Context) (*dto.CreateSessionResponse, error)
	Selection(ctx context.Context, sessionID string) (*SelectionChanged, error)
	// Toggle 切换选课，学分从目录查询
	Toggle(ctx context.Context, sessionID, code string) (*SelectionChanged, error)
	Remove(ctx context.Context, sessionID, code string) (*SelectionChanged, error)
	// Clear 清空选课并丢弃已生成的课表
	Clear(ctx context.Context, sessionID string) (*SelectionChanged, error)
	// Build 请求课表后端并归一化，成功后替换当前网格
	Build(ctx context.Context, sessionID string) (*model.GridModel, error)
	Grid(ctx context.Context, sessionID string) (*model.GridModel, error)
	Export(ctx context.Context, sessionID, format string) (*ExportResult, error)
	// Notice 当前未过期的提示
	Notice(ctx context.Context, sessionID string) (*Notice, error)
	// End 结束会话并删除其全部状态
	End(ctx context.Context, sessionID string) error
}

type sessionService struct {
	store     SessionStore
	catalog   CatalogView
	source    ScheduleSource
	exporter  ExportService
	jwtMgr    *jwt.Manager
	noticeTTL time.Duration
	locks     sync.Map // sessionID → *sync.Mutex
	logger    *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(
	store SessionStore,
	catalog CatalogView,
	source ScheduleSource,
	exporter ExportService,
	jwtMgr *jwt.Manager,
	noticeTTL time.Duration,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		store:     store,
		catalog:   catalog,
		source:    source,
		exporter:  exporter,
		jwtMgr:    jwtMgr,
		noticeTTL: noticeTTL,
		logger:    logger,
	}
}

// session 一次请求内还原出的会话状态
type session struct {
	selection *SelectionStore
	grid      *model.GridModel
	notifier  *Notifier
}

func (s *sessionService) restore(snap *SessionSnapshot) *session {
	return &session{
		selection: RestoreSelection(snap.Codes, snap.Credits, snap.CreditTotal),
		grid:      snap.Grid,
		notifier:  RestoreNotifier(s.noticeTTL, snap.Notice),
	}
}

func (ss *session) snapshot() *SessionSnapshot {
	return &SessionSnapshot{
		Codes:       ss.selection.Current(),
		Credits:     ss.selection.Credits(),
		CreditTotal: ss.selection.CreditTotal(),
		Grid:        ss.grid,
		Notice:      ss.notifier.snapshot(),
	}
}

// withSession 加锁、加载、执行 fn、写回
// fn 返回的业务错误不阻止写回（提示需要持久化）
func (s *sessionService) withSession(ctx context.Context, id string, fn func(ss *session) error) error {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	snap, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.locks.Delete(id)
		}
		return err
	}
	ss := s.restore(snap)
	opErr := fn(ss)

	if err := s.store.Save(ctx, id, ss.snapshot()); err != nil {
		s.logger.Error("保存会话失败", zap.String("session_id", id), zap.Error(err))
		if opErr == nil {
			return err
		}
	}
	return opErr
}

// ════════════════════════════════════════════════════════════
// Create 创建会话
// ════════════════════════════════════════════════════════════

func (s *sessionService) Create(ctx context.Context) (*dto.CreateSessionResponse, error) {
	id := uuid.NewString()
	if err := s.store.Save(ctx, id, &SessionSnapshot{Codes: []string{}}); err != nil {
		s.logger.Error("创建会话失败", zap.Error(err))
		return nil, err
	}

	token, expiresAt, err := s.jwtMgr.GenerateSessionToken(id)
	if err != nil {
		s.logger.Error("签发会话令牌失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("会话已创建", zap.String("session_id", id))
	return &dto.CreateSessionResponse{SessionID: id, Token: token, ExpiresAt: expiresAt}, nil
}

// ════════════════════════════════════════════════════════════
// 选课
// ════════════════════════════════════════════════════════════

func (s *sessionService) Selection(ctx context.Context, sessionID string) (*SelectionChanged, error) {
	snap, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	changed := RestoreSelection(snap.Codes, snap.Credits, snap.CreditTotal).Snapshot()
	return &changed, nil
}

func (s *sessionService) Toggle(ctx context.Context, sessionID, code string) (*SelectionChanged, error) {
	var out SelectionChanged
	err := s.withSession(ctx, sessionID, func(ss *session) error {
		// 已选课程直接移除，不再查目录（目录可能已重新导入）
		if ss.selection.Contains(code) {
			out = ss.selection.Remove(code)
			ss.notifier.Success(fmt.Sprintf("已取消 %s", code))
			return nil
		}
		course, err := s.catalog.GetCourse(ctx, code)
		if err != nil {
			ss.notifier.Error(courseLookupMessage(code, err))
			return err
		}
		out = ss.selection.Toggle(course.Code, course.Credits)
		ss.notifier.Success(fmt.Sprintf("已选择 %s（%d 学分）", course.Code, course.Credits))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sessionService) Remove(ctx context.Context, sessionID, code string) (*SelectionChanged, error) {
	var out SelectionChanged
	err := s.withSession(ctx, sessionID, func(ss *session) error {
		out = ss.selection.Remove(code)
		if out.Op == SelectionRemoved {
			ss.notifier.Success(fmt.Sprintf("已取消 %s", code))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sessionService) Clear(ctx context.Context, sessionID string) (*SelectionChanged, error) {
	var out SelectionChanged
	err := s.withSession(ctx, sessionID, func(ss *session) error {
		out = ss.selection.Clear()
		ss.grid = nil
		ss.notifier.Success("已清空选课")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ════════════════════════════════════════════════════════════
// Build 生成课表
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 空选课 → ErrSelectionEmpty，不请求后端
//   2. 请求课表后端（本地或远程）
//   3. 归一化为 GridModel，成功后整体替换旧网格
// 2、3 任一步失败都保留旧网格

func (s *sessionService) Build(ctx context.Context, sessionID string) (*model.GridModel, error) {
	var grid *model.GridModel
	err := s.withSession(ctx, sessionID, func(ss *session) error {
		codes := ss.selection.Current()
		if len(codes) == 0 {
			ss.notifier.Error(ErrSelectionEmpty.Error())
			return ErrSelectionEmpty
		}

		raw, err := s.source.Fetch(ctx, codes)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnknown {
				err = fmt.Errorf("%w: %v", ErrScheduleBackend, err)
			}
			s.logger.Warn("课表后端请求失败", zap.String("session_id", sessionID), zap.Error(err))
			ss.notifier.Error("课表生成失败，请稍后重试")
			return err
		}

		g, err := NormalizeSchedule(raw)
		if err != nil {
			s.logger.Warn("课表响应解析失败", zap.String("session_id", sessionID), zap.Error(err))
			ss.notifier.Error("课表数据无法识别")
			return err
		}

		ss.grid = g
		grid = g
		if n := g.ClashCount(); n > 0 {
			ss.notifier.Success(fmt.Sprintf("课表已生成，存在 %d 处冲突", n))
		} else {
			ss.notifier.Success("课表已生成")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grid, nil
}

func (s *sessionService) Grid(ctx context.Context, sessionID string) (*model.GridModel, error) {
	snap, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap.Grid == nil {
		return nil, ErrGridNotBuilt
	}
	return snap.Grid, nil
}

// ════════════════════════════════════════════════════════════
// Export 导出当前网格
// ════════════════════════════════════════════════════════════

func (s *sessionService) Export(ctx context.Context, sessionID, format string) (*ExportResult, error) {
	var res *ExportResult
	err := s.withSession(ctx, sessionID, func(ss *session) error {
		if ss.grid == nil {
			ss.notifier.Error(ErrGridNotBuilt.Error())
			return ErrGridNotBuilt
		}
		r, err := s.exporter.Export(ctx, ss.grid, format)
		if err != nil {
			ss.notifier.Error("导出失败")
			return err
		}
		res = r
		ss.notifier.Success("已导出 " + r.Filename)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *sessionService) Notice(ctx context.Context, sessionID string) (*Notice, error) {
	snap, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	n, ok := RestoreNotifier(s.noticeTTL, snap.Notice).Active()
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *sessionService) End(ctx context.Context, sessionID string) error {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer func() {
		mu.(*sync.Mutex).Unlock()
		s.locks.Delete(sessionID)
	}()

	if _, err := s.store.Load(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Error("删除会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	s.logger.Info("会话已结束", zap.String("session_id", sessionID))
	return nil
}

func courseLookupMessage(code string, err error) string {
	if errors.Is(err, ErrCourseNotFound) {
		return fmt.Sprintf("课程 %s 不存在", code)
	}
	return "课程目录查询失败"
}
