package service

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
)

const textHeader = "Time Slot\tMonday\tTuesday\tWednesday\tThursday\tFriday\n"

func TestNormalizeSchedule_TextShapeSingleEntry(t *testing.T) {
	raw := textHeader + "09:00\tCS101, Intro CS, Lecture, RoomA\t\t\t\t\n"

	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("期望 1 行，实际 %d", g.Len())
	}
	cell, ok := g.Cell("09:00", model.Monday)
	if !ok {
		t.Fatal("周一 09:00 应有条目")
	}
	want := model.ClassDescriptor{Code: "CS101", Name: "Intro CS", Type: "Lecture", Location: "RoomA"}
	if cell.Class != want {
		t.Errorf("期望 %+v，实际 %+v", want, cell.Class)
	}
	if cell.Clash {
		t.Error("不应标记冲突")
	}
	if _, ok := g.Cell("09:00", model.Tuesday); ok {
		t.Error("周二 09:00 应为空")
	}
}

func TestNormalizeSchedule_StructuredEmptyDay(t *testing.T) {
	raw := `{"monday":[{"time":"09:00","class":"CS101,Intro CS,Lecture,RoomA"}],"tuesday":[]}`

	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if g.Len() != 1 || len(g.Entries()) != 1 {
		t.Fatalf("期望 1 行 1 个条目，实际 %d 行 %d 个", g.Len(), len(g.Entries()))
	}
	cell, ok := g.Cell("09:00", model.Monday)
	want := model.ClassDescriptor{Code: "CS101", Name: "Intro CS", Type: "Lecture", Location: "RoomA"}
	if !ok || cell.Class != want || cell.Clash {
		t.Errorf("期望 %+v（无冲突），实际 %+v", want, cell)
	}
}

func TestNormalizeSchedule_StructuredClash(t *testing.T) {
	raw := `{"monday":[
		{"time":"10:00","class":"CS101,Intro CS,Lecture,RoomA"},
		{"time":"10:00","class":"MA201,Calculus,Lecture,RoomB"}
	]}`

	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	cell, ok := g.Cell("10:00", model.Monday)
	if !ok || !cell.Clash {
		t.Fatalf("周一 10:00 应为冲突单元格: %+v", cell)
	}
	if cell.Class.Code != "CS101" {
		t.Errorf("应显示最先出现的占用者，实际 %s", cell.Class.Code)
	}
	if g.ClashCount() != 1 {
		t.Errorf("期望 1 个冲突，实际 %d", g.ClashCount())
	}
}

func TestNormalizeSchedule_TextClashMarker(t *testing.T) {
	raw := textHeader + "10:00\tCS101, Intro CS, Lecture, RoomA/ MA201, Calculus, Lecture, RoomB (Clash)\t\t\t\t\n"

	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	cell, ok := g.Cell("10:00", model.Monday)
	if !ok || !cell.Clash {
		t.Fatalf("期望冲突单元格，实际 %+v", cell)
	}
	if cell.Class.Location != "RoomA" {
		t.Errorf("期望显示第一个占用者，实际 %+v", cell.Class)
	}
}

func TestNormalizeSchedule_ShapesAreEquivalent(t *testing.T) {
	text := textHeader +
		"11:00\t\tPH202, Physics, Lab, Lab 1\t\t\t\n" +
		"09:00\tCS101, Intro CS, Lecture, RoomA\t\t\t\tCS101, Intro CS, Tutorial, RoomC\n" +
		"12:00\t\t\t\t\t\n"
	structured := `{
		"friday":[{"time":"09:00","class":"CS101,Intro CS,Tutorial,RoomC"}],
		"monday":[{"time":"09:00","class":"CS101, Intro CS, Lecture, RoomA"}],
		"tuesday":[{"time":"11:00","class":"PH202,Physics,Lab,Lab 1"}]
	}`

	a, err := NormalizeSchedule([]byte(text))
	if err != nil {
		t.Fatalf("文本形态解析失败: %v", err)
	}
	b, err := NormalizeSchedule([]byte(structured))
	if err != nil {
		t.Fatalf("结构化形态解析失败: %v", err)
	}
	if !a.Equal(b) {
		t.Errorf("两种形态应得到相同网格\nA: %v\nB: %v", a.Entries(), b.Entries())
	}
	slots := a.Slots()
	if len(slots) != 2 || slots[0] != "09:00" || slots[1] != "11:00" {
		t.Errorf("时间标签应升序且去掉空行，实际 %v", slots)
	}
}

func TestNormalizeSchedule_TextWrappedInJSON(t *testing.T) {
	raw := `{"text":"Time Slot\tMonday\n8:00\tES214, Ethics, Lecture\n"}`

	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	cell, ok := g.Cell("8:00", model.Monday)
	if !ok || cell.Class.Code != "ES214" || cell.Class.Location != "" {
		t.Errorf("期望 ES214 且地点为空，实际 %+v", cell)
	}
}

func TestNormalizeSchedule_SpaceDelimitedDescriptors(t *testing.T) {
	raw := textHeader + "9:00\tCS101 Lecture\t\tMA201 Tutorial Group B\t\t\n"

	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	cell, _ := g.Cell("9:00", model.Wednesday)
	if cell.Class.Code != "MA201" || cell.Class.Type != "Tutorial Group B" {
		t.Errorf("空格分隔描述解析错误: %+v", cell.Class)
	}
}

func TestNormalizeSchedule_EmptyInputs(t *testing.T) {
	inputs := []string{"", "   \n", "{}", `{"text":""}`, textHeader}
	for _, in := range inputs {
		g, err := NormalizeSchedule([]byte(in))
		if err != nil {
			t.Errorf("输入 %q 不应报错: %v", in, err)
			continue
		}
		if !g.IsEmpty() {
			t.Errorf("输入 %q 应得到空网格，实际 %d 行", in, g.Len())
		}
	}
}

func TestNormalizeSchedule_WeekendIgnored(t *testing.T) {
	raw := `{"monday":[{"time":"9:00","class":"CS101,Intro"}],"saturday":[{"time":"9:00","class":"XX100,Extra"}]}`
	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(g.Entries()) != 1 {
		t.Errorf("周末条目应被忽略，实际 %d 条", len(g.Entries()))
	}
}

func TestNormalizeSchedule_MalformedInputs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"JSON 截断", `{"monday":[{"time":"9:00"`},
		{"顶层数组", `[1,2,3]`},
		{"未知工作日键", `{"funday":[]}`},
		{"缩写工作日键", `{"mon":[{"time":"9:00","class":"CS101"}]}`},
		{"大写工作日键", `{"Monday":[{"time":"9:00","class":"CS101"}]}`},
		{"同一天两个键", `{"monday":[{"time":"9:00","class":"CS101"}],"mon":[{"time":"10:00","class":"MA201"}]}`},
		{"值不是数组", `{"monday":"9:00 CS101"}`},
		{"缺少 class", `{"monday":[{"time":"9:00"}]}`},
		{"缺少 time", `{"monday":[{"class":"CS101"}]}`},
		{"后端错误", `{"error":"No courses selected"}`},
		{"表头无工作日", "Time\tFoo\n9:00\tCS101\n"},
		{"字段过多", textHeader + "9:00\ta\tb\tc\td\te\tf\n"},
		{"缺少时间标签", textHeader + "\tCS101, Intro\t\t\t\t\n"},
		{"缺少课程编码", textHeader + "9:00\t, Intro, Lecture\t\t\t\t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeSchedule([]byte(tt.raw))
			if err == nil {
				t.Fatal("期望返回错误")
			}
			var nerr *NormalizationError
			if !errors.As(err, &nerr) {
				t.Fatalf("期望 NormalizationError，实际 %T", err)
			}
			if apperrors.KindOf(err) != apperrors.KindNormalization {
				t.Errorf("错误类别应为 Normalization，实际 %s", apperrors.KindOf(err))
			}
		})
	}
}

func TestNormalizationError_TruncatesFragment(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := normalizationErr("测试", string(long))
	if len(err.Fragment) > maxFragmentLen+len("…") {
		t.Errorf("片段应被截断，实际长度 %d", len(err.Fragment))
	}
}

func TestNormalizationError_TruncatesOnRuneBoundary(t *testing.T) {
	fragment := strings.Repeat("x", maxFragmentLen-1) + "课程表"
	err := normalizationErr("测试", fragment)
	if !utf8.ValidString(err.Fragment) {
		t.Errorf("截断后的片段应为合法 UTF-8: %q", err.Fragment)
	}
	if !strings.HasPrefix(err.Fragment, strings.Repeat("x", maxFragmentLen-1)) {
		t.Errorf("截断不应丢失完整字符之前的内容")
	}
}

func TestNormalizeSchedule_StructuredIsDeterministic(t *testing.T) {
	raw := []byte(`{"monday":[{"time":"09:00","class":"CS101"}],"tuesday":[{"time":"10:00","class":"MA201"}],"saturday":[{"time":"11:00","class":"XX100"}]}`)
	first, err := NormalizeSchedule(raw)
	if err != nil {
		t.Fatalf("归一化失败: %v", err)
	}
	for i := 0; i < 50; i++ {
		g, err := NormalizeSchedule(raw)
		if err != nil {
			t.Fatalf("第 %d 次归一化失败: %v", i, err)
		}
		if strings.Join(g.Slots(), "|") != strings.Join(first.Slots(), "|") || g.Len() != first.Len() {
			t.Fatalf("第 %d 次结果不一致: %v != %v", i, g.Slots(), first.Slots())
		}
	}
}

func TestNormalizeSchedule_EmbeddedLineBreaksCollapsed(t *testing.T) {
	raw := `{"monday":[{"time":"09:00\r\n","class":"CS101,Intro\r\nCS,\tLecture,Room\nA"}]}`
	g, err := NormalizeSchedule([]byte(raw))
	if err != nil {
		t.Fatalf("归一化失败: %v", err)
	}
	e, ok := g.Cell("09:00", model.Monday)
	if !ok {
		t.Fatalf("缺少 09:00 周一单元格，时间标签 %v", g.Slots())
	}
	if e.Class.Name != "Intro CS" || e.Class.Type != "Lecture" || e.Class.Location != "Room A" {
		t.Errorf("字段内换行应折叠为空格，实际 %+v", e.Class)
	}
}
