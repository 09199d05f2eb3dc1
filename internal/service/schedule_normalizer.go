package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

// ── 课表响应归一化 ──────────────────────────────────────────
//
// 后端课表响应有两种形态：
//   - 文本形态：首行为表头（时间列 + 工作日列），其后每行一个时间标签，
//     单元格为占用者描述，"(Clash)" 标记冲突。可以是纯文本，也可以包在
//     {"text": "..."} 中。描述分隔符随版本不同：逗号分隔
//     (code, name, type, location) 或空格分隔 (code + 类型自由文本)。
//   - 结构化形态：{"monday": [{"time": "09:00", "class": "CS101,Intro,Lecture,RoomA"}]}，
//     同一工作日出现相同 time 即为冲突。
//
// 处理分三步：detectShape 是唯一判断形态的位置；各形态解析器产出相同的
// 中间表示（按出现顺序的 occupant 列表）；最后统一交给 GridBuilder 组装。
// 全过程无状态，失败时由调用方保留旧网格。
// ─────────────────────────────────────────────────────────────

// ClashMarker 文本形态中的冲突标记
const ClashMarker = "(Clash)"

// occupantSeparator 冲突单元格中多个占用者之间的分隔
const occupantSeparator = "/ "

const maxFragmentLen = 200

// NormalizationError 响应无法识别或字段损坏
type NormalizationError struct {
	Reason   string
	Fragment string
}

func (e *NormalizationError) Error() string {
	if e.Fragment == "" {
		return "课表响应解析失败: " + e.Reason
	}
	return fmt.Sprintf("课表响应解析失败: %s: %q", e.Reason, e.Fragment)
}

// Kind 归入 Normalization 类别
func (e *NormalizationError) Kind() apperrors.Kind {
	return apperrors.KindNormalization
}

func normalizationErr(reason, fragment string) *NormalizationError {
	if len(fragment) > maxFragmentLen {
		cut := maxFragmentLen
		for cut > 0 && !utf8.RuneStart(fragment[cut]) {
			cut--
		}
		fragment = fragment[:cut] + "…"
	}
	return &NormalizationError{Reason: reason, Fragment: fragment}
}

// ── 形态探测 ──

type payloadShape int

const (
	shapeEmpty payloadShape = iota
	shapeText
	shapeStructured
)

type schedulePayload struct {
	shape      payloadShape
	text       string
	structured map[string]json.RawMessage
}

// occupant 中间表示：某工作日某时间的一个占用者
type occupant struct {
	day   model.Weekday
	slot  string
	class model.ClassDescriptor
	clash bool
}

// NormalizeSchedule 将任一形态的原始响应归一化为 GridModel
// 空响应（无课程或无匹配）得到零行网格而非错误
func NormalizeSchedule(raw []byte) (*model.GridModel, error) {
	payload, err := detectShape(raw)
	if err != nil {
		return nil, err
	}

	var occupants []occupant
	switch payload.shape {
	case shapeText:
		occupants, err = parseTextShape(payload.text)
	case shapeStructured:
		occupants, err = parseStructuredShape(payload.structured)
	}
	if err != nil {
		return nil, err
	}

	b := model.NewGridBuilder()
	for _, o := range occupants {
		b.Place(o.day, o.slot, o.class, o.clash)
	}
	return b.Build(), nil
}

// detectShape 根据结构探测响应形态
func detectShape(raw []byte) (schedulePayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return schedulePayload{shape: shapeEmpty}, nil
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return schedulePayload{}, normalizationErr("JSON 格式无效", string(trimmed))
		}
		if msg, ok := obj["error"]; ok {
			return schedulePayload{}, normalizationErr("课表后端返回错误", string(msg))
		}
		if rawText, ok := obj["text"]; ok {
			var text string
			if err := json.Unmarshal(rawText, &text); err != nil {
				return schedulePayload{}, normalizationErr("text 字段不是字符串", string(rawText))
			}
			if strings.TrimSpace(text) == "" {
				return schedulePayload{shape: shapeEmpty}, nil
			}
			return schedulePayload{shape: shapeText, text: text}, nil
		}
		if len(obj) == 0 {
			return schedulePayload{shape: shapeEmpty}, nil
		}
		return schedulePayload{shape: shapeStructured, structured: obj}, nil
	case '[', '"':
		return schedulePayload{}, normalizationErr("无法识别的响应结构", string(trimmed))
	default:
		return schedulePayload{shape: shapeText, text: string(trimmed)}, nil
	}
}

// ── 文本形态 ──

type textCell struct {
	day   model.Weekday
	slot  string
	text  string
	clash bool
}

func parseTextShape(text string) ([]occupant, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header := strings.Split(lines[0], "\t")
	columns := make([]model.Weekday, len(header))
	weekdayCols := 0
	for i := 1; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if model.IsWeekend(name) {
			continue
		}
		day, ok := model.ParseWeekday(name)
		if !ok {
			return nil, normalizationErr("表头包含无法识别的工作日列", lines[0])
		}
		columns[i] = day
		weekdayCols++
	}
	if weekdayCols == 0 {
		return nil, normalizationErr("表头缺少工作日列", lines[0])
	}

	var cells []textCell
	commaDelimited := false
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		if len(fields) > len(header) {
			return nil, normalizationErr("字段数超过表头列数", line)
		}
		slot := strings.TrimSpace(fields[0])
		if slot == "" {
			return nil, normalizationErr("缺少时间标签", line)
		}
		for i := 1; i < len(fields); i++ {
			if !columns[i].Valid() {
				continue
			}
			raw := strings.TrimSpace(fields[i])
			if raw == "" {
				continue
			}
			clash := strings.Contains(raw, ClashMarker)
			cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ClashMarker, ""))
			if cleaned == "" {
				return nil, normalizationErr("冲突单元格缺少占用者", raw)
			}
			if strings.Contains(cleaned, ",") {
				commaDelimited = true
			}
			cells = append(cells, textCell{day: columns[i], slot: slot, text: cleaned, clash: clash})
		}
	}

	occupants := make([]occupant, 0, len(cells))
	for _, c := range cells {
		parts := strings.Split(c.text, occupantSeparator)
		first := strings.TrimSpace(parts[0])
		var (
			class model.ClassDescriptor
			err   error
		)
		if commaDelimited {
			class, err = parseCommaDescriptor(first)
		} else {
			class, err = parseSpaceDescriptor(first)
		}
		if err != nil {
			return nil, err
		}
		occupants = append(occupants, occupant{
			day:   c.day,
			slot:  c.slot,
			class: class,
			clash: c.clash || len(parts) > 1,
		})
	}
	return occupants, nil
}

// ── 结构化形态 ──

type structuredEntry struct {
	Time  *string `json:"time"`
	Class *string `json:"class"`
}

func parseStructuredShape(obj map[string]json.RawMessage) ([]occupant, error) {
	// 键必须是小写全称，保证每个工作日至多对应一个键
	byDay := make(map[model.Weekday]json.RawMessage, len(obj))
	for key, value := range obj {
		if key == "saturday" || key == "sunday" {
			continue
		}
		day, ok := model.WeekdayFromKey(key)
		if !ok {
			return nil, normalizationErr("未知的工作日键", key)
		}
		byDay[day] = value
	}

	var occupants []occupant
	for _, day := range model.Weekdays {
		value, ok := byDay[day]
		if !ok || string(bytes.TrimSpace(value)) == "null" {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, normalizationErr(day.Key()+" 的值不是数组", string(value))
		}
		for _, item := range items {
			var e structuredEntry
			if err := json.Unmarshal(item, &e); err != nil {
				return nil, normalizationErr("条目格式无效", string(item))
			}
			if e.Time == nil || strings.TrimSpace(*e.Time) == "" {
				return nil, normalizationErr("条目缺少 time", string(item))
			}
			if e.Class == nil || strings.TrimSpace(*e.Class) == "" {
				return nil, normalizationErr("条目缺少 class", string(item))
			}
			class, err := parseCommaDescriptor(*e.Class)
			if err != nil {
				return nil, err
			}
			occupants = append(occupants, occupant{
				day:   day,
				slot:  cleanField(*e.Time),
				class: class,
			})
		}
	}
	return occupants, nil
}

// ── 描述解析 ──

// parseCommaDescriptor code, name, type, location；多余字段并入 location
func parseCommaDescriptor(s string) (model.ClassDescriptor, error) {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = cleanField(parts[i])
	}
	if parts[0] == "" {
		return model.ClassDescriptor{}, normalizationErr("描述缺少课程编码", s)
	}
	d := model.ClassDescriptor{Code: parts[0]}
	if len(parts) > 1 {
		d.Name = parts[1]
	}
	if len(parts) > 2 {
		d.Type = parts[2]
	}
	if len(parts) > 3 {
		var rest []string
		for _, p := range parts[3:] {
			if p != "" {
				rest = append(rest, p)
			}
		}
		d.Location = strings.Join(rest, ", ")
	}
	return d, nil
}

// cleanField 字段内的换行、制表符等空白折叠为单个空格
func cleanField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseSpaceDescriptor 早期版本：code + 类型自由文本
func parseSpaceDescriptor(s string) (model.ClassDescriptor, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return model.ClassDescriptor{}, normalizationErr("描述缺少课程编码", s)
	}
	return model.ClassDescriptor{
		Code: fields[0],
		Type: strings.Join(fields[1:], " "),
	}, nil
}
