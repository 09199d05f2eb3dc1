package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/repository"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/jwt"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog CatalogService
	Session SessionService
	Export  ExportService
	Builder *ScheduleBuilder
	// Source 会话生成课表时使用的后端（本地或远程）
	Source ScheduleSource
}

// NewService 创建 Service 聚合
// rdb 为 nil 时会话保存在进程内存中
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	catalog := NewCatalogService(repo, logger)
	builder := NewScheduleBuilder(catalog)
	source := NewScheduleSource(&cfg.Schedule, builder, logger)
	exporter := NewExportService(&cfg.Export, logger)

	var store SessionStore
	if rdb != nil {
		store = NewRedisSessionStore(rdb, sessionTTL(cfg))
		logger.Info("会话存储: redis")
	} else {
		store = NewMemorySessionStore(sessionTTL(cfg))
		logger.Info("会话存储: memory")
	}

	return &Service{
		Catalog: catalog,
		Session: NewSessionService(store, catalog, source, exporter, jwtMgr, cfg.Notice.TTL, logger),
		Export:  exporter,
		Builder: builder,
		Source:  source,
	}
}

func sessionTTL(cfg *config.Config) time.Duration {
	if cfg.Auth.SessionTTL > 0 {
		return cfg.Auth.SessionTTL
	}
	return 24 * time.Hour
}
