package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportFailed        = apperrors.New(apperrors.KindExport, "导出文件生成失败")
	ErrExportFormatUnknown = apperrors.New(apperrors.KindInputValidation, "不支持的导出格式")
)

// TimeColumnHeader 行矩阵首列表头
const TimeColumnHeader = "Time"

// Matrix 行优先的字符串矩阵，首行为表头
type Matrix [][]string

// ToRows 将网格投影为行矩阵
//
// 表头为 ["Time", Monday … Friday]；每个时间标签一行，单元格为描述文本或空串。
// withClashMarker 仅用于文本类导出：冲突单元格追加 " (Clash)"。
// 对同一网格结果确定，且不会失败。
func ToRows(grid *model.GridModel, withClashMarker bool) Matrix {
	rows, _ := toRowsWithClash(grid, withClashMarker)
	return rows
}

// toRowsWithClash 同时返回与矩阵对齐的冲突标记（表头与时间列恒为 false）
func toRowsWithClash(grid *model.GridModel, withClashMarker bool) (Matrix, [][]bool) {
	header := make([]string, 0, len(model.Weekdays)+1)
	header = append(header, TimeColumnHeader)
	for _, d := range model.Weekdays {
		header = append(header, d.String())
	}

	rows := Matrix{header}
	clash := [][]bool{make([]bool, len(header))}
	if grid == nil {
		return rows, clash
	}

	for _, slot := range grid.Slots() {
		row := make([]string, len(header))
		flags := make([]bool, len(header))
		row[0] = slot
		for i, d := range model.Weekdays {
			e, ok := grid.Cell(slot, d)
			if !ok {
				continue
			}
			text := e.Class.Text()
			if e.Clash {
				flags[i+1] = true
				if withClashMarker {
					text += " " + ClashMarker
				}
			}
			row[i+1] = text
		}
		rows = append(rows, row)
		clash = append(clash, flags)
	}
	return rows, clash
}

// FilenameStem 以秒级时间戳生成文件名主干，格式 YYYYMMDD_HHMMSS
func FilenameStem(now time.Time) string {
	return now.Format("20060102_150405")
}

// ExportFilename 完整文件名 timetable_<stem>.<ext>
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("timetable_%s.%s", FilenameStem(now), ext)
}

// ── 导出策略 ──

// ExportStrategy 一种导出目标
type ExportStrategy interface {
	// Format 格式名，用于路由参数 /export/:format
	Format() string
	Extension() string
	ContentType() string
	Render(w io.Writer, grid *model.GridModel) error
}

// ExportResult 导出结果
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService 导出业务接口
//
// 设计说明：
//   - 策略按格式名注册，新增格式只需实现 ExportStrategy 并注册
//   - 导出结果以字节返回，由 Handler 层设置下载响应头
//   - 任一策略失败都包装为 ErrExportFailed，不影响会话状态
type ExportService interface {
	// Export 将网格导出为指定格式
	Export(ctx context.Context, grid *model.GridModel, format string) (*ExportResult, error)
	// Formats 已注册的格式名（升序）
	Formats() []string
}

type exportService struct {
	strategies map[string]ExportStrategy
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 并注册全部导出策略
func NewExportService(cfg *config.ExportConfig, logger *zap.Logger) ExportService {
	s := &exportService{
		strategies: make(map[string]ExportStrategy),
		now:        time.Now,
		logger:     logger,
	}
	s.register(NewSpreadsheetExporter())
	s.register(NewCSVExporter())
	s.register(NewTextExporter())
	s.register(NewImageExporter(cfg.ImageFormat))
	s.register(NewCalendarExporter(cfg, time.Now))
	return s
}

func (s *exportService) register(st ExportStrategy) {
	s.strategies[st.Format()] = st
}

func (s *exportService) Formats() []string {
	out := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ═══════════════════════════════════════════════════════════
// Export 导出网格
// ═══════════════════════════════════════════════════════════

func (s *exportService) Export(ctx context.Context, grid *model.GridModel, format string) (*ExportResult, error) {
	st, ok := s.strategies[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExportFormatUnknown, format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := st.Render(buf, grid); err != nil {
		s.logger.Error("导出失败", zap.String("format", format), zap.Error(err))
		if errors.Is(err, ErrExportFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	return &ExportResult{
		Filename:    ExportFilename(s.now(), st.Extension()),
		ContentType: st.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
