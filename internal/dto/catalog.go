package dto

// ── 课程目录 ──

// CourseResponse 目录中的一门课程
type CourseResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

// CatalogResponse 目录响应：课程 + 工作日列 + 时间标签
type CatalogResponse struct {
	Courses    []CourseResponse `json:"courses"`
	Days       []string         `json:"days"`
	TimeLabels []string         `json:"time_labels"`
}

// ImportCatalogResponse 目录导入结果
type ImportCatalogResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// TimeSlotRowResponse 时段布局中的一行：时间标签 + 工作日键 → 时段编号
type TimeSlotRowResponse struct {
	Time  string            `json:"time"`
	Slots map[string]string `json:"slots"`
}

// ExportFormatsResponse 可用的导出格式
type ExportFormatsResponse struct {
	Formats []string `json:"formats"`
}
