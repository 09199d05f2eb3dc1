package dto

// ── 课表后端（结构化 / 文本两种响应） ──

// TimetableRequest 课表后端请求体
type TimetableRequest struct {
	Courses []string `json:"courses" form:"courses"`
}

// ClassSlot 结构化响应中的一条 {time, class}
type ClassSlot struct {
	Time  string `json:"time"`
	Class string `json:"class"`
}

// StructuredTimetable 结构化响应：小写工作日 → 无序 {time, class} 列表
type StructuredTimetable map[string][]ClassSlot

// TextTimetable 文本响应：制表符分隔的预格式化表格
type TextTimetable struct {
	Text string `json:"text"`
}

// ── 规范网格 ──

// GridCellResponse 网格单元格
type GridCellResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Clash    bool   `json:"clash"`
}

// GridRowResponse 一行：时间标签 + 工作日键 → 单元格（空单元格省略）
type GridRowResponse struct {
	Time  string                      `json:"time"`
	Cells map[string]GridCellResponse `json:"cells"`
}

// GridResponse 规范网格
type GridResponse struct {
	Days       []string          `json:"days"`
	Rows       []GridRowResponse `json:"rows"`
	ClashCount int               `json:"clash_count"`
}
