package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ── 工作日 ──

// Weekday 课表列：周一至周五（1-5）
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Weekdays 网格列的固定顺序
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
}

// Valid 是否为周一至周五
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

// String 英文全称，如 Monday
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// Key 小写键名，如 monday（结构化响应中的键）
func (d Weekday) Key() string {
	return strings.ToLower(d.String())
}

// MarshalText 以小写键名序列化
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("无效的工作日: %d", int(d))
	}
	return []byte(d.Key()), nil
}

// UnmarshalText 解析小写键名
func (d *Weekday) UnmarshalText(b []byte) error {
	wd, ok := ParseWeekday(string(b))
	if !ok {
		return fmt.Errorf("无效的工作日: %q", string(b))
	}
	*d = wd
	return nil
}

// ParseWeekday 解析工作日名称（不区分大小写，支持三字母缩写）
func ParseWeekday(s string) (Weekday, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return 0, false
	}
	for _, d := range Weekdays {
		full := d.Key()
		if key == full || (len(key) == 3 && strings.HasPrefix(full, key)) {
			return d, true
		}
	}
	return 0, false
}

// WeekdayFromKey 只接受小写全称键（monday … friday），用于结构化响应
func WeekdayFromKey(key string) (Weekday, bool) {
	for _, d := range Weekdays {
		if key == d.Key() {
			return d, true
		}
	}
	return 0, false
}

// IsWeekend 是否为周六/周日名称（文本形态表头中出现时忽略）
func IsWeekend(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saturday", "sunday", "sat", "sun":
		return true
	}
	return false
}

// ── 课程描述 ──

// ClassDescriptor 单次上课的描述字段，末尾字段可为空
type ClassDescriptor struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// Text 非空字段以 ", " 连接
func (d ClassDescriptor) Text() string {
	parts := make([]string, 0, 4)
	for _, f := range []string{d.Code, d.Name, d.Type, d.Location} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ", ")
}

// IsZero 是否所有字段为空
func (d ClassDescriptor) IsZero() bool {
	return d == ClassDescriptor{}
}

// ScheduleEntry 网格中一个被占用的单元格
type ScheduleEntry struct {
	Day   Weekday         `json:"day"`
	Slot  string          `json:"slot"`
	Class ClassDescriptor `json:"class"`
	Clash bool            `json:"clash"`
}

// ── 时间标签排序 ──

var leadingHourRe = regexp.MustCompile(`^\s*(\d{1,2})(?:\s*[:.]\s*(\d{1,2}))?`)

// SlotHour 解析标签开头的小时与分钟，如 "09:00-10:00" → 9, 0
func SlotHour(label string) (hour, minute int, ok bool) {
	m := leadingHourRe.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	return hour, minute, true
}

// SortSlotLabels 按开头小时升序排序（同小时按分钟、再按文本），无法解析小时的标签排在最后
func SortSlotLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		hi, mi, oki := SlotHour(labels[i])
		hj, mj, okj := SlotHour(labels[j])
		if oki != okj {
			return oki
		}
		if hi != hj {
			return hi < hj
		}
		if mi != mj {
			return mi < mj
		}
		return labels[i] < labels[j]
	})
}

// ── 规范网格 ──

type cellKey struct {
	slot string
	day  Weekday
}

// GridModel 规范周课表：有序时间标签 × 周一至周五
// 每个单元格至多一个 ScheduleEntry；构建后不可变
type GridModel struct {
	slots []string
	cells map[cellKey]ScheduleEntry
}

// Slots 有序、去重的时间标签
func (g *GridModel) Slots() []string {
	out := make([]string, len(g.slots))
	copy(out, g.slots)
	return out
}

// Len 时间标签行数
func (g *GridModel) Len() int {
	return len(g.slots)
}

// IsEmpty 是否没有任何行
func (g *GridModel) IsEmpty() bool {
	return len(g.slots) == 0
}

// Cell 读取单元格
func (g *GridModel) Cell(slot string, day Weekday) (ScheduleEntry, bool) {
	e, ok := g.cells[cellKey{slot: slot, day: day}]
	return e, ok
}

// Entries 按行（时间）再按列（工作日）顺序返回所有占用单元格
func (g *GridModel) Entries() []ScheduleEntry {
	out := make([]ScheduleEntry, 0, len(g.cells))
	for _, slot := range g.slots {
		for _, day := range Weekdays {
			if e, ok := g.cells[cellKey{slot: slot, day: day}]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// ClashCount 冲突单元格数量
func (g *GridModel) ClashCount() int {
	n := 0
	for _, e := range g.cells {
		if e.Clash {
			n++
		}
	}
	return n
}

// Equal 内容相等：标签顺序、单元格描述与冲突标记完全一致
func (g *GridModel) Equal(other *GridModel) bool {
	if g == nil || other == nil {
		return g == other
	}
	if len(g.slots) != len(other.slots) || len(g.cells) != len(other.cells) {
		return false
	}
	for i := range g.slots {
		if g.slots[i] != other.slots[i] {
			return false
		}
	}
	for k, e := range g.cells {
		if o, ok := other.cells[k]; !ok || o != e {
			return false
		}
	}
	return true
}

type gridJSON struct {
	Slots   []string        `json:"slots"`
	Entries []ScheduleEntry `json:"entries"`
}

// MarshalJSON 序列化为 {slots, entries}
func (g *GridModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{Slots: g.Slots(), Entries: g.Entries()})
}

// UnmarshalJSON 从 {slots, entries} 还原（会话快照）
func (g *GridModel) UnmarshalJSON(b []byte) error {
	var raw gridJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	builder := NewGridBuilder()
	for _, s := range raw.Slots {
		builder.AddSlot(s)
	}
	for _, e := range raw.Entries {
		builder.Place(e.Day, e.Slot, e.Class, e.Clash)
	}
	*g = *builder.Build()
	return nil
}

// ── 构建器 ──

// GridBuilder 收集占用者并组装 GridModel
//
// 同一 (时间, 工作日) 出现多个占用者时合并为一个 Clash=true 的条目，显示最先放入的占用者。
type GridBuilder struct {
	seen  map[string]bool
	slots []string
	cells map[cellKey]ScheduleEntry
}

// NewGridBuilder 创建空构建器
func NewGridBuilder() *GridBuilder {
	return &GridBuilder{
		seen:  make(map[string]bool),
		cells: make(map[cellKey]ScheduleEntry),
	}
}

// AddSlot 登记时间标签（可无占用者）
func (b *GridBuilder) AddSlot(slot string) {
	if !b.seen[slot] {
		b.seen[slot] = true
		b.slots = append(b.slots, slot)
	}
}

// Place 放入一个占用者；clash 表示来源已声明该单元格冲突
func (b *GridBuilder) Place(day Weekday, slot string, class ClassDescriptor, clash bool) {
	b.AddSlot(slot)
	key := cellKey{slot: slot, day: day}
	if existing, ok := b.cells[key]; ok {
		existing.Clash = true
		b.cells[key] = existing
		return
	}
	b.cells[key] = ScheduleEntry{Day: day, Slot: slot, Class: class, Clash: clash}
}

// Build 排序时间标签并生成 GridModel
func (b *GridBuilder) Build() *GridModel {
	slots := make([]string, len(b.slots))
	copy(slots, b.slots)
	SortSlotLabels(slots)

	cells := make(map[cellKey]ScheduleEntry, len(b.cells))
	for k, v := range b.cells {
		cells[k] = v
	}
	return &GridModel{slots: slots, cells: cells}
}
