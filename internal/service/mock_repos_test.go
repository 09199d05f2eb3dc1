package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	"github.com/Naveen-Pal/timetable-2024-25/internal/repository"
)

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]model.Course
	order   []string
	failErr error
}

func newMockCourseRepo(courses ...model.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: make(map[string]model.Course)}
	for _, c := range courses {
		m.courses[c.Code] = c
		m.order = append(m.order, c.Code)
	}
	return m
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	result := make([]model.Course, 0, len(m.order))
	for _, code := range m.order {
		result = append(result, m.courses[code])
	}
	return result, nil
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	if c, ok := m.courses[code]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) ListByCodes(_ context.Context, codes []string) ([]model.Course, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	var result []model.Course
	for _, code := range codes {
		if c, ok := m.courses[code]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.courses)), nil
}

func (m *mockCourseRepo) ReplaceAll(_ context.Context, courses []model.Course) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.courses = make(map[string]model.Course)
	m.order = nil
	for _, c := range courses {
		if _, dup := m.courses[c.Code]; dup {
			return fmt.Errorf("duplicate key %s", c.Code)
		}
		m.courses[c.Code] = c
		m.order = append(m.order, c.Code)
	}
	return nil
}

// ── Mock TimeSlotRepository ──

type mockTimeSlotRepo struct {
	cells []model.TimeSlotCell
}

func newMockTimeSlotRepo() *mockTimeSlotRepo {
	return &mockTimeSlotRepo{}
}

func (m *mockTimeSlotRepo) ListOrdered(_ context.Context) ([]model.TimeSlotCell, error) {
	out := make([]model.TimeSlotCell, len(m.cells))
	copy(out, m.cells)
	// 按 position、day 排序（插入排序，数据量很小）
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && cellLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func cellLess(a, b model.TimeSlotCell) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.Day < b.Day
}

func (m *mockTimeSlotRepo) ReplaceAll(_ context.Context, cells []model.TimeSlotCell) error {
	m.cells = append([]model.TimeSlotCell(nil), cells...)
	return nil
}

// layoutRow 测试辅助：一行布局，codes 依次为周一至周五的时段编号
func (m *mockTimeSlotRepo) layoutRow(label string, codes ...string) {
	pos := 0
	if n := len(m.cells); n > 0 {
		pos = m.cells[n-1].Position + 1
	}
	for i, code := range codes {
		m.cells = append(m.cells, model.TimeSlotCell{
			Position: pos,
			Label:    label,
			Day:      model.Weekdays[i],
			SlotCode: code,
		})
	}
}

// ── 测试夹具 ──

// newTestRepo 创建包含三门课程与三行布局的仓库
//
//	           Mon  Tue  Wed  Thu  Fri
//	8:00-8:55  T1   T2   T3   T1   T2
//	9:00-9:55  O1   O2   T1   O1   O2
//	14:00      L1   L1   L2   L2   -
func newTestRepo() (*repository.Repository, *mockCourseRepo, *mockTimeSlotRepo) {
	courses := newMockCourseRepo(
		model.Course{Code: "CS101", Name: "Intro CS", Credits: 3, LectureTime: "T1", TutorialTime: "O2", LabTime: "L1",
			LectureLocation: "RoomA", TutorialLocation: "RoomC", LabLocation: "Lab 1"},
		model.Course{Code: "MA201", Name: "Calculus", Credits: 4, LectureTime: "T1,T3", TutorialTime: "O1"},
		model.Course{Code: "PH301", Name: "Physics", Credits: 3, LectureTime: "T2", LabTime: "L2", LabLocation: "Lab 2"},
	)
	slots := newMockTimeSlotRepo()
	slots.layoutRow("8:00-8:55", "T1", "T2", "T3", "T1", "T2")
	slots.layoutRow("9:00-9:55", "O1", "O2", "T1", "O1", "O2")
	slots.layoutRow("14:00", "L1", "L1", "L2", "L2", "")

	return &repository.Repository{Course: courses, TimeSlot: slots}, courses, slots
}
