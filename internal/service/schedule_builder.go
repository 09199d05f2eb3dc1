package service

import (
	"context"
	"strings"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

// ErrSelectionEmpty 需要选课的操作遇到空选课
var ErrSelectionEmpty = apperrors.New(apperrors.KindInputValidation, "请至少选择一门课程")

// ── ScheduleBuilder ─────────────────────────────────────────
//
// 进程内的课表后端：根据选中课程的 Lecture/Tutorial/Lab 时段编号
// 与时段布局，计算每个 (时间标签, 工作日) 的占用者，并渲染为
// 结构化形态或文本形态。占用者顺序：课程按选课顺序，环节按
// Lecture → Tutorial → Lab。
// ─────────────────────────────────────────────────────────────

// ScheduleBuilder 课表生成器
type ScheduleBuilder struct {
	catalog CatalogView
}

// NewScheduleBuilder 创建 ScheduleBuilder
func NewScheduleBuilder(catalog CatalogView) *ScheduleBuilder {
	return &ScheduleBuilder{catalog: catalog}
}

// placedCell 布局中一个单元格的全部占用者
type placedCell struct {
	label     string
	day       model.Weekday
	occupants []model.ClassDescriptor
}

// occupancy 按布局顺序（行再列）返回有占用者的单元格
func (b *ScheduleBuilder) occupancy(ctx context.Context, codes []string) ([]string, []placedCell, error) {
	if len(codes) == 0 {
		return nil, nil, ErrSelectionEmpty
	}
	courses, err := b.catalog.CoursesByCodes(ctx, codes)
	if err != nil {
		return nil, nil, err
	}
	layout, err := b.catalog.Layout(ctx)
	if err != nil {
		return nil, nil, err
	}

	var cells []placedCell
	for _, row := range layout.Rows {
		for _, day := range model.Weekdays {
			slot, ok := row.Slots[day]
			if !ok {
				continue
			}
			var occupants []model.ClassDescriptor
			for i := range courses {
				c := &courses[i]
				for _, t := range model.SessionTypes {
					if containsSlot(c.SlotCodes(t), slot) {
						occupants = append(occupants, model.ClassDescriptor{
							Code:     c.Code,
							Name:     c.Name,
							Type:     string(t),
							Location: c.Location(t),
						})
					}
				}
			}
			if len(occupants) > 0 {
				cells = append(cells, placedCell{label: row.Label, day: day, occupants: occupants})
			}
		}
	}
	return layout.Labels(), cells, nil
}

// BuildStructured 渲染结构化形态：工作日 → {time, class} 列表
// 每个占用者一条记录，冲突表现为同一工作日重复的 time；空工作日省略
func (b *ScheduleBuilder) BuildStructured(ctx context.Context, codes []string) (dto.StructuredTimetable, error) {
	_, cells, err := b.occupancy(ctx, codes)
	if err != nil {
		return nil, err
	}

	out := make(dto.StructuredTimetable)
	for _, c := range cells {
		key := c.day.Key()
		for _, o := range c.occupants {
			out[key] = append(out[key], dto.ClassSlot{Time: c.label, Class: commaDescriptor(o)})
		}
	}
	return out, nil
}

// BuildText 渲染文本形态：表头 + 每个时间标签一行，制表符分隔
// 冲突单元格为 "d1/ d2 (Clash)"
func (b *ScheduleBuilder) BuildText(ctx context.Context, codes []string) (string, error) {
	labels, cells, err := b.occupancy(ctx, codes)
	if err != nil {
		return "", err
	}

	type key struct {
		label string
		day   model.Weekday
	}
	byCell := make(map[key]placedCell, len(cells))
	for _, c := range cells {
		byCell[key{c.label, c.day}] = c
	}

	var sb strings.Builder
	sb.WriteString("Time Slot")
	for _, d := range model.Weekdays {
		sb.WriteByte('\t')
		sb.WriteString(d.String())
	}
	sb.WriteByte('\n')

	for _, label := range labels {
		sb.WriteString(label)
		for _, d := range model.Weekdays {
			sb.WriteByte('\t')
			c, ok := byCell[key{label, d}]
			if !ok {
				continue
			}
			parts := make([]string, 0, len(c.occupants))
			for _, o := range c.occupants {
				parts = append(parts, commaDescriptor(o))
			}
			sb.WriteString(strings.Join(parts, occupantSeparator))
			if len(parts) > 1 {
				sb.WriteString(" " + ClashMarker)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

var (
	whitespaceCleaner = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")
	fieldCleaner      = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ", ",", " ")
)

// commaDescriptor 按位置以 ", " 连接描述字段，只省略末尾的空字段
// 地点是最后一个字段，允许包含逗号
func commaDescriptor(d model.ClassDescriptor) string {
	fields := []string{
		strings.TrimSpace(fieldCleaner.Replace(d.Code)),
		strings.TrimSpace(fieldCleaner.Replace(d.Name)),
		strings.TrimSpace(fieldCleaner.Replace(d.Type)),
		strings.TrimSpace(whitespaceCleaner.Replace(d.Location)),
	}
	n := len(fields)
	for n > 1 && fields[n-1] == "" {
		n--
	}
	return strings.Join(fields[:n], ", ")
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
