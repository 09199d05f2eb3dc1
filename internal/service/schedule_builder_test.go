package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

func newTestBuilder() *ScheduleBuilder {
	repo, _, _ := newTestRepo()
	return NewScheduleBuilder(NewCatalogService(repo, zap.NewNop()))
}

func TestScheduleBuilder_StructuredClash(t *testing.T) {
	b := newTestBuilder()

	tt, err := b.BuildStructured(context.Background(), []string{"CS101", "MA201"})
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}

	// 周一 8:00 同时有 CS101 与 MA201 的 Lecture（T1）
	monday := tt["monday"]
	count := 0
	for _, e := range monday {
		if e.Time == "8:00-8:55" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("周一 8:00-8:55 应有 2 条记录，实际 %d: %+v", count, monday)
	}
	if monday[0].Class != "CS101, Intro CS, Lecture, RoomA" {
		t.Errorf("首条记录应为 CS101 Lecture，实际 %q", monday[0].Class)
	}
	if _, ok := tt["friday"]; !ok {
		t.Error("周五有 CS101 Tutorial（O2），不应省略")
	}
}

func TestScheduleBuilder_OmitsEmptyDays(t *testing.T) {
	b := newTestBuilder()
	tt, err := b.BuildStructured(context.Background(), []string{"PH301"})
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	if _, ok := tt["monday"]; ok {
		t.Error("周一没有 PH301 的课，应省略")
	}
	if len(tt["thursday"]) != 1 || tt["thursday"][0].Class != "PH301, Physics, Lab, Lab 2" {
		t.Errorf("周四应有 PH301 Lab，实际 %+v", tt["thursday"])
	}
}

func TestScheduleBuilder_EmptySelection(t *testing.T) {
	b := newTestBuilder()
	if _, err := b.BuildStructured(context.Background(), nil); !errors.Is(err, ErrSelectionEmpty) {
		t.Errorf("期望 ErrSelectionEmpty，实际 %v", err)
	}
	if _, err := b.BuildText(context.Background(), []string{}); !errors.Is(err, ErrSelectionEmpty) {
		t.Errorf("期望 ErrSelectionEmpty，实际 %v", err)
	}
}

func TestScheduleBuilder_TextLayout(t *testing.T) {
	b := newTestBuilder()
	text, err := b.BuildText(context.Background(), []string{"CS101", "MA201"})
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("期望表头 + 3 行，实际 %d 行:\n%s", len(lines), text)
	}
	if lines[0] != "Time Slot\tMonday\tTuesday\tWednesday\tThursday\tFriday" {
		t.Errorf("表头错误: %q", lines[0])
	}
	fields := strings.Split(lines[1], "\t")
	if len(fields) != 6 {
		t.Fatalf("每行应有 6 列，实际 %d", len(fields))
	}
	if !strings.HasSuffix(fields[1], ClashMarker) {
		t.Errorf("周一 8:00 应带冲突标记，实际 %q", fields[1])
	}
}

// 两种形态经归一化后得到相同网格
func TestScheduleBuilder_ShapesNormalizeIdentically(t *testing.T) {
	b := newTestBuilder()
	codes := []string{"CS101", "MA201", "PH301"}

	a, err := NewLocalSource(b, ShapeText).Fetch(context.Background(), codes)
	if err != nil {
		t.Fatalf("文本形态生成失败: %v", err)
	}
	s, err := NewLocalSource(b, ShapeStructured).Fetch(context.Background(), codes)
	if err != nil {
		t.Fatalf("结构化形态生成失败: %v", err)
	}

	ga, err := NormalizeSchedule(a)
	if err != nil {
		t.Fatalf("文本形态归一化失败: %v", err)
	}
	gs, err := NormalizeSchedule(s)
	if err != nil {
		t.Fatalf("结构化形态归一化失败: %v", err)
	}
	if !ga.Equal(gs) {
		t.Errorf("两种形态网格不一致\nA: %+v\nB: %+v", ga.Entries(), gs.Entries())
	}

	cell, ok := gs.Cell("8:00-8:55", model.Monday)
	if !ok || !cell.Clash || cell.Class.Code != "CS101" {
		t.Errorf("周一 8:00 应为以 CS101 显示的冲突单元格，实际 %+v", cell)
	}
	// 所有 T1（周一/周四 8:00、周三 9:00）均为 CS101 + MA201
	if gs.ClashCount() != 3 {
		t.Errorf("期望 3 个冲突，实际 %d", gs.ClashCount())
	}
}

func TestCommaDescriptor_KeepsPositions(t *testing.T) {
	got := commaDescriptor(model.ClassDescriptor{Code: "CS101", Type: "Lab"})
	if got != "CS101, , Lab" {
		t.Errorf("空字段应保留位置，实际 %q", got)
	}
	got = commaDescriptor(model.ClassDescriptor{Code: "CS101", Name: "Intro, Part 1"})
	if got != "CS101, Intro  Part 1" {
		t.Errorf("名称中的逗号应被替换，实际 %q", got)
	}
}
