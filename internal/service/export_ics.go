package service

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

// ── 日历导出 ────────────────────────────────────────────────
//
// 每个占用单元格生成一个按周重复的 VEVENT：
//   - 首次上课日期为下一个周一起算的对应工作日
//   - 开始时间取标签开头的时间，结束时间取标签中 "-" 后的时间，
//     没有结束时间时按 slot_minutes 推算
//   - 无法解析开头时间的标签不生成事件
//   - 冲突单元格在摘要前加 [Clash]
// ─────────────────────────────────────────────────────────────

const (
	icsDefaultWeeks       = 16
	icsDefaultSlotMinutes = 55
	icsProductID          = "-//timetable-2024-25//Course Timetable//EN"
)

var slotEndRe = regexp.MustCompile(`[-–]\s*(\d{1,2})\s*[:.]\s*(\d{2})`)

type calendarExporter struct {
	weeks       int
	slotMinutes int
	loc         *time.Location
	now         func() time.Time
}

// NewCalendarExporter 创建 .ics 导出策略
func NewCalendarExporter(cfg *config.ExportConfig, now func() time.Time) ExportStrategy {
	e := &calendarExporter{
		weeks:       cfg.ICSWeeks,
		slotMinutes: cfg.SlotMinutes,
		loc:         time.Local,
		now:         now,
	}
	if e.weeks <= 0 {
		e.weeks = icsDefaultWeeks
	}
	if e.slotMinutes <= 0 {
		e.slotMinutes = icsDefaultSlotMinutes
	}
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			e.loc = loc
		}
	}
	return e
}

func (e *calendarExporter) Format() string      { return "calendar" }
func (e *calendarExporter) Extension() string   { return "ics" }
func (e *calendarExporter) ContentType() string { return "text/calendar; charset=utf-8" }

func (e *calendarExporter) Render(w io.Writer, grid *model.GridModel) error {
	now := e.now().In(e.loc)
	weekStart := nextMonday(now)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	if grid != nil {
		for _, entry := range grid.Entries() {
			start, end, ok := e.slotTimes(entry.Slot, weekStart.AddDate(0, 0, int(entry.Day)-1))
			if !ok {
				continue
			}

			event := cal.AddEvent(uuid.NewString() + "@timetable")
			event.SetDtStampTime(now.UTC())
			event.SetStartAt(start.UTC())
			event.SetEndAt(end.UTC())
			event.AddProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", e.weeks))
			event.SetSummary(eventSummary(entry))
			if entry.Class.Location != "" {
				event.SetLocation(entry.Class.Location)
			}
			event.SetDescription(entry.Class.Text())
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// slotTimes 由标签推算某日的上课起止时间
func (e *calendarExporter) slotTimes(label string, day time.Time) (time.Time, time.Time, bool) {
	h, m, ok := model.SlotHour(label)
	if !ok || h > 23 || m > 59 {
		return time.Time{}, time.Time{}, false
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, e.loc)
	end := start.Add(time.Duration(e.slotMinutes) * time.Minute)

	if mm := slotEndRe.FindStringSubmatch(label); mm != nil {
		eh, _ := strconv.Atoi(mm[1])
		em, _ := strconv.Atoi(mm[2])
		if candidate := time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, e.loc); candidate.After(start) {
			end = candidate
		}
	}
	return start, end, true
}

func eventSummary(entry model.ScheduleEntry) string {
	parts := []string{entry.Class.Code}
	if entry.Class.Type != "" {
		parts = append(parts, entry.Class.Type)
	}
	summary := strings.Join(parts, " ")
	if entry.Class.Name != "" {
		summary += " - " + entry.Class.Name
	}
	if entry.Clash {
		summary = "[Clash] " + summary
	}
	return summary
}

// nextMonday 返回严格晚于 t 所在日期的下一个周一零点
func nextMonday(t time.Time) time.Time {
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := t.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
