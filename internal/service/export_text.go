package service

import (
	"encoding/csv"
	"io"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

// delimitedExporter 分隔文本导出（csv / 制表符）
// 含分隔符、引号或换行的单元格按 RFC 4180 加引号，引号加倍转义
type delimitedExporter struct {
	format      string
	ext         string
	contentType string
	comma       rune
}

// NewCSVExporter 逗号分隔 .csv
func NewCSVExporter() ExportStrategy {
	return &delimitedExporter{format: "csv", ext: "csv", contentType: "text/csv; charset=utf-8", comma: ','}
}

// NewTextExporter 制表符分隔 .txt，与文本形态的表格布局一致
func NewTextExporter() ExportStrategy {
	return &delimitedExporter{format: "text", ext: "txt", contentType: "text/plain; charset=utf-8", comma: '\t'}
}

func (e *delimitedExporter) Format() string      { return e.format }
func (e *delimitedExporter) Extension() string   { return e.ext }
func (e *delimitedExporter) ContentType() string { return e.contentType }

func (e *delimitedExporter) Render(w io.Writer, grid *model.GridModel) error {
	return WriteDelimited(w, ToRows(grid, true), e.comma)
}

// WriteDelimited 写出行矩阵
func WriteDelimited(w io.Writer, rows Matrix, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// ReadDelimited 解析 WriteDelimited 的输出
func ReadDelimited(r io.Reader, comma rune) (Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = false
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return Matrix(rows), nil
}
