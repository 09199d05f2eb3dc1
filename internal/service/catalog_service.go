package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	"github.com/Naveen-Pal/timetable-2024-25/internal/repository"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

// ── 课程目录模块业务错误 ──

var (
	ErrCourseNotFound           = apperrors.New(apperrors.KindInputValidation, "课程不存在")
	ErrCatalogFormatUnsupported = apperrors.New(apperrors.KindInputValidation, "不支持的目录文件格式，仅支持 csv / xlsx")
	ErrCatalogHeaderInvalid     = apperrors.New(apperrors.KindInputValidation, "目录文件缺少必需列")
	ErrCatalogEmpty             = apperrors.New(apperrors.KindInputValidation, "目录文件中没有有效行")
)

// maxCourseCodeLen 超过该长度的编码视为表格中的注释行
const maxCourseCodeLen = 15

// maxLocationLen 括号内超过该长度的文本不是地点
const maxLocationLen = 30

// CatalogFormat 目录导入文件格式
type CatalogFormat string

const (
	CatalogCSV  CatalogFormat = "csv"
	CatalogXLSX CatalogFormat = "xlsx"
)

// CatalogFormatFromFilename 根据扩展名判断目录文件格式
func CatalogFormatFromFilename(name string) (CatalogFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return CatalogCSV, nil
	case ".xlsx":
		return CatalogXLSX, nil
	}
	return "", ErrCatalogFormatUnsupported
}

// ── 时段布局 ──

// LayoutRow 一个时间标签在各工作日对应的时段编号
type LayoutRow struct {
	Label string
	Slots map[model.Weekday]string
}

// SlotLayout 按 position 排序的时段布局
type SlotLayout struct {
	Rows []LayoutRow
}

// Labels 时间标签（布局顺序）
func (l *SlotLayout) Labels() []string {
	out := make([]string, 0, len(l.Rows))
	for _, r := range l.Rows {
		out = append(out, r.Label)
	}
	return out
}

// ── 接口 ──────────────────────────────────────────────────
//
// CatalogView 是引擎唯一依赖的只读视图：学分查询与排课都经由它。
// CatalogService 在此之上提供目录导入与启动时的文件播种。
// ─────────────────────────────────────────────────────────────

// CatalogView 课程目录只读视图
type CatalogView interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
	GetCourse(ctx context.Context, code string) (*model.Course, error)
	// CoursesByCodes 按给定顺序返回存在的课程
	CoursesByCodes(ctx context.Context, codes []string) ([]model.Course, error)
	Layout(ctx context.Context) (*SlotLayout, error)
}

// CatalogService 课程目录业务接口
type CatalogService interface {
	CatalogView
	// Catalog 课程列表 + 工作日 + 时间标签
	Catalog(ctx context.Context) (*dto.CatalogResponse, error)
	// ImportCourses 全量导入课程目录
	ImportCourses(ctx context.Context, r io.Reader, format CatalogFormat) (*dto.ImportCatalogResponse, error)
	// ImportTimeSlots 全量导入时段布局
	ImportTimeSlots(ctx context.Context, r io.Reader, format CatalogFormat) (*dto.ImportCatalogResponse, error)
	// SeedFromFiles 从本地文件播种目录，空路径跳过
	SeedFromFiles(ctx context.Context, coursesFile, slotsFile string) error
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) ListCourses(ctx context.Context) ([]model.Course, error) {
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("查询课程目录失败", zap.Error(err))
		return nil, err
	}
	return courses, nil
}

func (s *catalogService) GetCourse(ctx context.Context, code string) (*model.Course, error) {
	c, err := s.repo.Course.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (s *catalogService) CoursesByCodes(ctx context.Context, codes []string) ([]model.Course, error) {
	return s.repo.Course.ListByCodes(ctx, codes)
}

func (s *catalogService) Layout(ctx context.Context) (*SlotLayout, error) {
	cells, err := s.repo.TimeSlot.ListOrdered(ctx)
	if err != nil {
		s.logger.Error("查询时段布局失败", zap.Error(err))
		return nil, err
	}

	layout := &SlotLayout{}
	lastPos := -1
	for _, c := range cells {
		if c.Position != lastPos {
			layout.Rows = append(layout.Rows, LayoutRow{Label: c.Label, Slots: make(map[model.Weekday]string)})
			lastPos = c.Position
		}
		if c.SlotCode != "" {
			layout.Rows[len(layout.Rows)-1].Slots[c.Day] = c.SlotCode
		}
	}
	return layout, nil
}

// ════════════════════════════════════════════════════════════
// Catalog 目录响应
// ════════════════════════════════════════════════════════════

func (s *catalogService) Catalog(ctx context.Context) (*dto.CatalogResponse, error) {
	courses, err := s.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	layout, err := s.Layout(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.CatalogResponse{
		Courses:    make([]dto.CourseResponse, 0, len(courses)),
		Days:       make([]string, 0, len(model.Weekdays)),
		TimeLabels: layout.Labels(),
	}
	for _, c := range courses {
		resp.Courses = append(resp.Courses, dto.CourseResponse{Code: c.Code, Name: c.Name, Credits: c.Credits})
	}
	for _, d := range model.Weekdays {
		resp.Days = append(resp.Days, d.String())
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// ImportCourses 导入课程目录
// ════════════════════════════════════════════════════════════
//
// 列名不区分大小写，支持原始表格的简写列名：
//   Course Code | Course Name | Credit (C) | Lecture Time (Lecture) | Tutorial Time (Tutorial) | Lab Time (Lab)
//   以及可选的 Lecture/Tutorial/Lab Location。
// 没有地点列时，从时间列的括号中提取地点（长度 < 30 的括号文本）。
// 编码为空、超过 15 字符或学分缺失/无效的行被跳过。

var courseColumnAliases = map[string][]string{
	"code":              {"course code", "code"},
	"name":              {"course name", "name"},
	"credit":            {"credit", "credits", "c"},
	"lecture_time":      {"lecture time", "lecture"},
	"tutorial_time":     {"tutorial time", "tutorial"},
	"lab_time":          {"lab time", "lab"},
	"lecture_location":  {"lecture location"},
	"tutorial_location": {"tutorial location"},
	"lab_location":      {"lab location"},
}

func (s *catalogService) ImportCourses(ctx context.Context, r io.Reader, format CatalogFormat) (*dto.ImportCatalogResponse, error) {
	rows, err := readTable(r, format)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrCatalogEmpty
	}

	cols := mapColumns(rows[0], courseColumnAliases)
	for _, required := range []string{"code", "name", "credit"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrCatalogHeaderInvalid, required)
		}
	}

	var (
		courses []model.Course
		seen    = make(map[string]bool)
		skipped int
	)
	for _, row := range rows[1:] {
		c, ok := parseCourseRow(row, cols)
		if !ok || seen[c.Code] {
			skipped++
			continue
		}
		seen[c.Code] = true
		courses = append(courses, c)
	}
	if len(courses) == 0 {
		return nil, ErrCatalogEmpty
	}

	if err := s.repo.Course.ReplaceAll(ctx, courses); err != nil {
		s.logger.Error("课程目录导入事务失败", zap.Error(err))
		return nil, fmt.Errorf("课程目录导入失败: %w", err)
	}

	s.logger.Info("课程目录导入完成", zap.Int("imported", len(courses)), zap.Int("skipped", skipped))
	return &dto.ImportCatalogResponse{Imported: len(courses), Skipped: skipped}, nil
}

func parseCourseRow(row []string, cols map[string]int) (model.Course, bool) {
	get := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	code := get("code")
	if code == "" || len(code) > maxCourseCodeLen {
		return model.Course{}, false
	}
	credits, ok := parseCredits(get("credit"))
	if !ok {
		return model.Course{}, false
	}

	c := model.Course{Code: code, Name: get("name"), Credits: credits}
	c.LectureTime, c.LectureLocation = splitTimeAndLocation(get("lecture_time"), get("lecture_location"))
	c.TutorialTime, c.TutorialLocation = splitTimeAndLocation(get("tutorial_time"), get("tutorial_location"))
	c.LabTime, c.LabLocation = splitTimeAndLocation(get("lab_time"), get("lab_location"))
	return c, true
}

// parseCredits 接受 "3" 或表格导出的 "3.0"
func parseCredits(raw string) (int, bool) {
	if raw == "" || strings.EqualFold(raw, "nan") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f), true
}

var parenRe = regexp.MustCompile(`\((.*?)\)`)

// splitTimeAndLocation 去掉时间列中的括号文本；未显式给出地点时由括号文本推导
func splitTimeAndLocation(timeText, location string) (string, string) {
	if strings.EqualFold(timeText, "nan") {
		timeText = ""
	}
	var extracted []string
	for _, m := range parenRe.FindAllStringSubmatch(timeText, -1) {
		if loc := strings.TrimSpace(m[1]); loc != "" && len(loc) < maxLocationLen {
			extracted = append(extracted, loc)
		}
	}
	clean := strings.TrimSpace(parenRe.ReplaceAllString(timeText, ""))
	if location == "" || strings.EqualFold(location, "nan") {
		location = strings.Join(extracted, ", ")
	}
	return clean, location
}

// ════════════════════════════════════════════════════════════
// ImportTimeSlots 导入时段布局
// ════════════════════════════════════════════════════════════
//
// 首列为时间标签，其余列为工作日（表头为工作日名称），单元格为时段编号。
// 非工作日列被忽略。

func (s *catalogService) ImportTimeSlots(ctx context.Context, r io.Reader, format CatalogFormat) (*dto.ImportCatalogResponse, error) {
	rows, err := readTable(r, format)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrCatalogEmpty
	}

	header := rows[0]
	days := make(map[int]model.Weekday)
	for i := 1; i < len(header); i++ {
		if d, ok := model.ParseWeekday(header[i]); ok {
			days[i] = d
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: 工作日列", ErrCatalogHeaderInvalid)
	}

	var (
		cells    []model.TimeSlotCell
		position int
		skipped  int
	)
	for _, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			skipped++
			continue
		}
		label := strings.TrimSpace(row[0])
		for i, day := range days {
			code := ""
			if i < len(row) {
				code = strings.TrimSpace(row[i])
			}
			cells = append(cells, model.TimeSlotCell{Position: position, Label: label, Day: day, SlotCode: code})
		}
		position++
	}
	if position == 0 {
		return nil, ErrCatalogEmpty
	}

	if err := s.repo.TimeSlot.ReplaceAll(ctx, cells); err != nil {
		s.logger.Error("时段布局导入事务失败", zap.Error(err))
		return nil, fmt.Errorf("时段布局导入失败: %w", err)
	}

	s.logger.Info("时段布局导入完成", zap.Int("labels", position), zap.Int("skipped", skipped))
	return &dto.ImportCatalogResponse{Imported: position, Skipped: skipped}, nil
}

// ════════════════════════════════════════════════════════════
// SeedFromFiles 启动时播种
// ════════════════════════════════════════════════════════════

func (s *catalogService) SeedFromFiles(ctx context.Context, coursesFile, slotsFile string) error {
	if slotsFile != "" {
		if err := s.seedFile(ctx, slotsFile, s.ImportTimeSlots); err != nil {
			return err
		}
	}
	if coursesFile != "" {
		if err := s.seedFile(ctx, coursesFile, s.ImportCourses); err != nil {
			return err
		}
	}
	return nil
}

type importFunc func(ctx context.Context, r io.Reader, format CatalogFormat) (*dto.ImportCatalogResponse, error)

func (s *catalogService) seedFile(ctx context.Context, path string, importer importFunc) error {
	format, err := CatalogFormatFromFilename(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开目录文件失败: %w", err)
	}
	defer f.Close()

	if _, err := importer(ctx, f, format); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ── 辅助函数 ──

// readTable 读取 csv 或 xlsx 首个工作表为字符串矩阵
func readTable(r io.Reader, format CatalogFormat) ([][]string, error) {
	switch format {
	case CatalogCSV:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("读取目录文件失败: %w", err)
		}
		cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogFormatUnsupported, err)
		}
		return rows, nil
	case CatalogXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogFormatUnsupported, err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrCatalogEmpty
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("读取工作表失败: %w", err)
		}
		return rows, nil
	}
	return nil, ErrCatalogFormatUnsupported
}

// mapColumns 将表头映射为 key → 列下标
func mapColumns(header []string, aliases map[string][]string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	cols := make(map[string]int)
	for key, names := range aliases {
		for _, n := range names {
			if i, ok := index[n]; ok {
				cols[key] = i
				break
			}
		}
	}
	return cols
}
