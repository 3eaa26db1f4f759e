// reader.go
package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrMalformedInput marks input that cannot be turned into a raw appointment table:
// missing file, unsupported format, or a header/value schema mismatch.
var ErrMalformedInput = errors.New("malformed input")

// 原始预约记录的列名(与 CSV 表头完全一致)
const (
	ColPatientID      = "PatientId"
	ColAppointmentID  = "AppointmentID"
	ColGender         = "Gender"
	ColScheduledDay   = "ScheduledDay"
	ColAppointmentDay = "AppointmentDay"
	ColAge            = "Age"
	ColNeighbourhood  = "Neighbourhood"
	ColScholarship    = "Scholarship"
	ColHipertension   = "Hipertension"
	ColDiabetes       = "Diabetes"
	ColAlcoholism     = "Alcoholism"
	ColHandcap        = "Handcap"
	ColSMSReceived    = "SMS_received"
	ColNoShow         = "No-show"
)

// RawColumns lists the header of a raw appointment file in source order.
var RawColumns = []string{
	ColPatientID, ColAppointmentID, ColGender, ColScheduledDay, ColAppointmentDay,
	ColAge, ColNeighbourhood, ColScholarship, ColHipertension, ColDiabetes,
	ColAlcoholism, ColHandcap, ColSMSReceived, ColNoShow,
}

// rawTypes 整数列的类型, 其余列按字符串读取
// PatientId 在源数据中可能是浮点写法, 由清洗步骤统一
var rawTypes = map[string]series.Type{
	ColAppointmentID: series.Int,
	ColAge:           series.Int,
	ColScholarship:   series.Int,
	ColHipertension:  series.Int,
	ColDiabetes:      series.Int,
	ColAlcoholism:    series.Int,
	ColHandcap:       series.Int,
	ColSMSReceived:   series.Int,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions 读取参数
type ReadOptions struct {
	SheetName string // 仅 xlsx 使用, 为空时取第一个工作表
	Encoding  string // utf-8 / iso-8859-1 / windows-1252, 仅 csv 使用
}

// ReadAppointments loads path (.csv or .xlsx) and checks it against the raw schema.
func ReadAppointments(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%w: open %s: %v", ErrMalformedInput, path, openErr)
		}
		defer f.Close()
		df, err = ReadCSV(f, opts.Encoding)
	case ".xlsx":
		df, err = ReadXLSX(path, opts.SheetName)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("%w: unsupported file type %q", ErrMalformedInput, filepath.Ext(path))
	}
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := CheckSchema(df); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", path, err)
	}
	return df, nil
}

// ReadCSV decodes r from the given charset and loads it with the raw column types.
func ReadCSV(r io.Reader, charset string) (dataframe.DataFrame, error) {
	dec, err := decoderFor(charset)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if dec != nil {
		r = transform.NewReader(r, dec.NewDecoder())
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(rawTypes),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrMalformedInput, df.Err)
	}
	return df, nil
}

func decoderFor(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrMalformedInput, charset)
	}
}

// ReadXLSX 使用 tealeg/xlsx 读取工作表, 第一行为表头
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: xlsx open file: %v", ErrMalformedInput, err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: workbook has no sheets", ErrMalformedInput)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("%w: sheet %q not found", ErrMalformedInput, sheetName)
		}
		sheet = s
	}

	records := sheetRecords(sheet)
	if len(records) < 1 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: sheet %q is empty", ErrMalformedInput, sheet.Name)
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(rawTypes),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrMalformedInput, df.Err)
	}
	return df, nil
}

// sheetRecords 将工作表转换为字符串记录, 短行补齐, 空行跳过
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	timeCols := make(map[int]bool)
	for i, h := range headers {
		if h == ColScheduledDay || h == ColAppointmentDay {
			timeCols[i] = true
		}
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		rec := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) || cell == nil {
				continue
			}
			rec[i] = cell.Value
			if timeCols[i] {
				if ts, ok := excelToTime(cell.Value); ok {
					rec[i] = ts
				}
			}
			if strings.TrimSpace(cell.Value) != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records
}

// excelToTime 日期单元格读出来是 Excel 序列号(1899-12-30 起的天数), 转为文本时间
func excelToTime(v string) (string, bool) {
	days, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || days <= 0 {
		return "", false
	}
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	whole := math.Floor(days)
	t := base.AddDate(0, 0, int(whole)).
		Add(time.Duration(math.Round((days - whole) * 86400)) * time.Second)
	return t.Format("2006-01-02T15:04:05"), true
}

// CheckSchema verifies the raw header and the integer / enum columns.
func CheckSchema(df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, df.Err)
	}

	names := df.Names()
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	var missing []string
	for _, col := range RawColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrMalformedInput, strings.Join(missing, ", "))
	}

	for _, col := range RawColumns {
		t, ok := rawTypes[col]
		if !ok || t != series.Int {
			continue
		}
		s := df.Col(col)
		if s.Type() != series.Int {
			return fmt.Errorf("%w: column %s is %s, want int", ErrMalformedInput, col, s.Type())
		}
		if s.HasNaN() {
			for i := 0; i < s.Len(); i++ {
				if s.Elem(i).IsNA() {
					return fmt.Errorf("%w: column %s row %d is not an integer", ErrMalformedInput, col, i+1)
				}
			}
		}
	}

	for i, v := range df.Col(ColNoShow).Records() {
		if v != "Yes" && v != "No" {
			return fmt.Errorf("%w: column %s row %d has %q, want Yes or No", ErrMalformedInput, ColNoShow, i+1, v)
		}
	}
	return nil
}
