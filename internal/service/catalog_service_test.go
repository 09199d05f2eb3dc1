package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

func TestCatalogService_Catalog(t *testing.T) {
	repo, _, _ := newTestRepo()
	svc := NewCatalogService(repo, zap.NewNop())

	resp, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("查询目录失败: %v", err)
	}
	if len(resp.Courses) != 3 {
		t.Errorf("期望 3 门课程，实际 %d", len(resp.Courses))
	}
	if len(resp.Days) != 5 || resp.Days[0] != "Monday" || resp.Days[4] != "Friday" {
		t.Errorf("工作日列错误: %v", resp.Days)
	}
	if len(resp.TimeLabels) != 3 || resp.TimeLabels[2] != "14:00" {
		t.Errorf("时间标签应按布局顺序，实际 %v", resp.TimeLabels)
	}
}

func TestCatalogService_GetCourseNotFound(t *testing.T) {
	repo, _, _ := newTestRepo()
	svc := NewCatalogService(repo, zap.NewNop())

	if _, err := svc.GetCourse(context.Background(), "XX999"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际 %v", err)
	}
}

func TestCatalogService_ImportCoursesCSV(t *testing.T) {
	repo, courses, _ := newTestRepo()
	svc := NewCatalogService(repo, zap.NewNop())

	csvData := "Course Name,Course Code,Lecture,Tutorial,Lab,C\n" +
		"Intro CS,CS101,\"T1,T2 (7/101)\",O1,,4\n" +
		"Calculus,MA201,T3,,L1 (Lab Complex),3.0\n" +
		"No credit,XX100,T1,,,\n" +
		"Note row,THIS CODE IS FAR TOO LONG,T1,,,2\n"

	resp, err := svc.ImportCourses(context.Background(), strings.NewReader(csvData), CatalogCSV)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Imported != 2 || resp.Skipped != 2 {
		t.Errorf("期望导入 2 跳过 2，实际 %+v", resp)
	}

	cs := courses.courses["CS101"]
	if cs.LectureTime != "T1,T2" || cs.LectureLocation != "7/101" {
		t.Errorf("应从括号中提取地点，实际 time=%q location=%q", cs.LectureTime, cs.LectureLocation)
	}
	if cs.Credits != 4 {
		t.Errorf("期望学分 4，实际 %d", cs.Credits)
	}
	ma := courses.courses["MA201"]
	if ma.Credits != 3 || ma.LabLocation != "Lab Complex" {
		t.Errorf("MA201 解析错误: %+v", ma)
	}
	if _, ok := courses.courses["PH301"]; ok {
		t.Error("导入应全量替换旧目录")
	}
}

func TestCatalogService_ImportCoursesMissingHeader(t *testing.T) {
	repo, _, _ := newTestRepo()
	svc := NewCatalogService(repo, zap.NewNop())

	_, err := svc.ImportCourses(context.Background(), strings.NewReader("Code,Title\nCS101,Intro\n"), CatalogCSV)
	if !errors.Is(err, ErrCatalogHeaderInvalid) {
		t.Errorf("期望 ErrCatalogHeaderInvalid，实际 %v", err)
	}
}

func TestCatalogService_ImportCoursesXLSX(t *testing.T) {
	repo, courses, _ := newTestRepo()
	svc := NewCatalogService(repo, zap.NewNop())

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Course Code", "Course Name", "Credit", "Lecture Time", "Tutorial Time", "Lab Time", "Lecture Location"},
		{"ES214", "Ethics", 2, "T2", "", "", "Hall 2"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("写入测试表格失败: %v", err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成测试表格失败: %v", err)
	}

	resp, err := svc.ImportCourses(context.Background(), buf, CatalogXLSX)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Imported != 1 {
		t.Errorf("期望导入 1，实际 %d", resp.Imported)
	}
	es := courses.courses["ES214"]
	if es.LectureLocation != "Hall 2" || es.Credits != 2 {
		t.Errorf("ES214 解析错误: %+v", es)
	}
}

func TestCatalogService_ImportTimeSlots(t *testing.T) {
	repo, _, slots := newTestRepo()
	svc := NewCatalogService(repo, zap.NewNop())

	data := "Time Slot,Monday,Tuesday,Wednesday,Thursday,Friday\n" +
		"8:30-9:25,T1,T2,T3,T1,T2\n" +
		",,,,,\n" +
		"10:30-11:25,O1,,O2,,\n"
	resp, err := svc.ImportTimeSlots(context.Background(), strings.NewReader(data), CatalogCSV)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Imported != 2 || resp.Skipped != 1 {
		t.Errorf("期望导入 2 跳过 1，实际 %+v", resp)
	}
	if len(slots.cells) != 10 {
		t.Errorf("期望 10 个单元格，实际 %d", len(slots.cells))
	}

	layout, err := svc.Layout(context.Background())
	if err != nil {
		t.Fatalf("查询布局失败: %v", err)
	}
	if got := layout.Rows[1].Slots[model.Wednesday]; got != "O2" {
		t.Errorf("第二行周三应为 O2，实际 %q", got)
	}
	if _, ok := layout.Rows[1].Slots[model.Tuesday]; ok {
		t.Error("空时段编号不应出现在布局中")
	}
}

func TestCatalogFormatFromFilename(t *testing.T) {
	if f, err := CatalogFormatFromFilename("Timetable.CSV"); err != nil || f != CatalogCSV {
		t.Errorf("期望 csv，实际 %v %v", f, err)
	}
	if _, err := CatalogFormatFromFilename("timetable.pdf"); !errors.Is(err, ErrCatalogFormatUnsupported) {
		t.Errorf("期望 ErrCatalogFormatUnsupported，实际 %v", err)
	}
}
