package datapush

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"NoShowInsights/src/processor"
	"NoShowInsights/src/utils"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	assessmentSheet = "Assessment"
	describeSheet   = "Age describe"

	// 图表默认高度约占 15 行
	chartRows = 15
)

// WorkbookSink writes the report to an xlsx file in Dir.
type WorkbookSink struct {
	Dir string

	lastPath string
}

func NewWorkbookSink(dir string) *WorkbookSink {
	return &WorkbookSink{Dir: dir}
}

// LastPath is the file written by the most recent Push.
func (s *WorkbookSink) LastPath() string {
	return s.lastPath
}

func (s *WorkbookSink) Push(r *Report) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := utils.WriteSheet(f, summarySheet, r.summaryFrame()); err != nil {
		return err
	}
	if err := utils.WriteSheet(f, assessmentSheet, r.Assessment.Frame()); err != nil {
		return err
	}
	if r.Assessment.AgeDescribe.Nrow() > 0 {
		if err := utils.WriteSheet(f, describeSheet, r.Assessment.AgeDescribe); err != nil {
			return err
		}
	}

	for _, sec := range r.Sections {
		if err := writeSection(f, sec); err != nil {
			return fmt.Errorf("写入工作表 %s 失败: %w", sec.Title, err)
		}
	}
	f.SetActiveSheet(0)

	name := fmt.Sprintf("noshow_report_%s.xlsx", r.Generated.Format("20060102_150405"))
	path := filepath.Join(s.Dir, name)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	s.lastPath = path
	return nil
}

// writeSection 每张表依次向下排列: 表名, 表头, 数据, 空行; 图表放在表格右侧
func writeSection(f *excelize.File, sec processor.Section) error {
	sheet := sec.Title
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", sec.Question); err != nil {
		return err
	}

	row := 3
	for _, t := range sec.Tables {
		start := row
		if err := setRow(f, sheet, row, []interface{}{t.Name}); err != nil {
			return err
		}
		row++

		header := make([]interface{}, len(t.Header))
		for i, h := range t.Header {
			header[i] = h
		}
		if err := setRow(f, sheet, row, header); err != nil {
			return err
		}
		headerRow := row
		row++

		for _, r := range t.Rows {
			cells := make([]interface{}, len(r))
			for i, v := range r {
				cells[i] = cellValue(v, i)
			}
			if err := setRow(f, sheet, row, cells); err != nil {
				return err
			}
			row++
		}

		if t.Chart != processor.NoChart && len(t.Rows) > 0 {
			if err := addChart(f, sheet, t, start, headerRow); err != nil {
				return err
			}
			if row < start+chartRows {
				row = start + chartRows
			}
		}
		row++
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// cellValue 数值列写成数字, 图表才能引用
func cellValue(v string, col int) interface{} {
	if col == 0 {
		return v
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(x) && !math.IsInf(x, 0) {
		return x
	}
	return v
}

func addChart(f *excelize.File, sheet string, t processor.Table, start, headerRow int) error {
	var typ excelize.ChartType
	switch t.Chart {
	case processor.BarChart:
		typ = excelize.Bar
	case processor.PieChart:
		typ = excelize.Pie
	default:
		typ = excelize.Col
	}

	first, last := headerRow+1, headerRow+len(t.Rows)
	chart := &excelize.Chart{
		Type:  typ,
		Title: []excelize.RichTextRun{{Text: t.Name}},
	}
	for _, idx := range t.Series {
		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return err
		}
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$%d", sheet, col, headerRow),
			Categories: fmt.Sprintf("'%s'!$A$%d:$A$%d", sheet, first, last),
			Values:     fmt.Sprintf("'%s'!$%s$%d:$%s$%d", sheet, col, first, col, last),
		})
	}
	if len(chart.Series) == 0 {
		return nil
	}

	anchor, err := excelize.CoordinatesToCellName(len(t.Header)+2, start)
	if err != nil {
		return err
	}
	return f.AddChart(sheet, anchor, chart)
}
