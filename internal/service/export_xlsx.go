package service

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

const xlsxSheetName = "Timetable"

// spreadsheetExporter .xlsx 导出，冲突单元格以底色标出
type spreadsheetExporter struct{}

// NewSpreadsheetExporter 创建 .xlsx 导出策略
func NewSpreadsheetExporter() ExportStrategy {
	return &spreadsheetExporter{}
}

func (spreadsheetExporter) Format() string    { return "spreadsheet" }
func (spreadsheetExporter) Extension() string { return "xlsx" }
func (spreadsheetExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (spreadsheetExporter) Render(w io.Writer, grid *model.GridModel) error {
	rows, clash := toRowsWithClash(grid, false)

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	// 列宽
	if err := f.SetColWidth(xlsxSheetName, "A", "A", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(xlsxSheetName, "B", colName(len(model.Weekdays)), 32); err != nil {
		return err
	}

	// 样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	clashStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}

	for r, row := range rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(xlsxSheetName, cell("A", r+1), &values); err != nil {
			return err
		}

		style := bodyStyle
		if r == 0 {
			style = headerStyle
		}
		last := cell(colName(len(row)-1), r+1)
		if err := f.SetCellStyle(xlsxSheetName, cell("A", r+1), last, style); err != nil {
			return err
		}
		for c, isClash := range clash[r] {
			if !isClash {
				continue
			}
			ref := cell(colName(c), r+1)
			if err := f.SetCellStyle(xlsxSheetName, ref, ref, clashStyle); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(xlsxSheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}

	return f.Write(w)
}

// ── 辅助函数 ──

// colName 0 起始列下标 → 列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	name, _ := excelize.JoinCellName(col, row)
	return name
}
