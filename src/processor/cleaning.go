package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"NoShowInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 清洗后的列名
const (
	colPatientID      = "patientid"
	colAppointmentID  = "appointmentid"
	colScheduledDay   = "scheduledday"
	colAppointmentDay = "appointmentday"

	ColGender        = "gender"
	ColAge           = "age"
	ColNeighbourhood = "neighbourhood"
	ColScholarship   = "scholarship"
	ColHypertension  = "hypertension"
	ColDiabetes      = "diabetes"
	ColAlcoholism    = "alcoholism"
	ColHandicap      = "handicap"
	ColSMSReceived   = "sms_received"
	ColNoShow        = "no_show"
	ColAgeStages     = "age_stages"
)

// normalize strips and lowercases a column name, then applies the rename mapping.
func (p *DataProcessor) normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if renamed, ok := p.dcfg.RenameFor(n); ok {
		return renamed
	}
	return n
}

// column 按规范化后的列名查找实际列名, 清洗前后都能找到同一列
func (p *DataProcessor) column(canonical string) (string, bool) {
	return utils.FindColumn(p.df, func(n string) bool { return p.normalize(n) == canonical })
}

func (p *DataProcessor) mutate(s series.Series) error {
	df := p.df.Mutate(s)
	if df.Err != nil {
		return fmt.Errorf("mutate %s: %w", s.Name, df.Err)
	}
	p.df = df
	return nil
}

func (p *DataProcessor) intColumn(canonical string) (string, []int, error) {
	name, ok := p.column(canonical)
	if !ok {
		return "", nil, fmt.Errorf("column %s not found", canonical)
	}
	values, err := p.df.Col(name).Int()
	if err != nil {
		return "", nil, fmt.Errorf("column %s: %w", name, err)
	}
	return name, values, nil
}

// ParseTimestamps rewrites the scheduled and appointment timestamps in
// canonical RFC 3339 UTC and normalizes patient ids to integer strings.
func (p *DataProcessor) ParseTimestamps() error {
	if p.df.Nrow() == 0 {
		return nil
	}

	for _, canonical := range []string{colScheduledDay, colAppointmentDay} {
		name, ok := p.column(canonical)
		if !ok {
			continue
		}
		records := p.df.Col(name).Records()
		out := make([]string, len(records))
		for i, v := range records {
			t, err := utils.ParseTime(v, p.dcfg.TimestampLayout)
			if err != nil {
				return &ParseError{Column: name, Row: i + 1, Value: v, Err: err}
			}
			out[i] = t.UTC().Format(time.RFC3339)
		}
		if err := p.mutate(series.New(out, series.String, name)); err != nil {
			return err
		}
	}

	name, ok := p.column(colPatientID)
	if !ok {
		return nil
	}
	records := p.df.Col(name).Records()
	ids := make([]string, len(records))
	for i, v := range records {
		id, err := normalizePatientID(v)
		if err != nil {
			return &ParseError{Column: name, Row: i + 1, Value: v, Err: err}
		}
		ids[i] = id
	}
	return p.mutate(series.New(ids, series.String, name))
}

// normalizePatientID 源数据中的患者编号可能写成 29872499824296.0 或 2.98725e+13
func normalizePatientID(v string) (string, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return "", fmt.Errorf("patient id %q is not an integer", v)
	}
	return strconv.FormatFloat(f, 'f', 0, 64), nil
}

// DropInvalidAge removes rows whose age falls outside the outer bin edges.
func (p *DataProcessor) DropInvalidAge() (int, error) {
	name, _, err := p.intColumn(ColAge)
	if err != nil {
		return 0, err
	}
	if p.df.Nrow() == 0 {
		return 0, nil
	}
	lo, hi := p.dcfg.AgeBins[0], p.dcfg.AgeBins[len(p.dcfg.AgeBins)-1]

	df := p.df.Filter(
		dataframe.F{
			Colname:    name,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				a, err := el.Int()
				return err == nil && a >= lo && a <= hi
			},
		},
	)
	if df.Err != nil {
		return 0, fmt.Errorf("drop invalid age: %w", df.Err)
	}
	dropped := p.df.Nrow() - df.Nrow()
	p.df = df
	return dropped, nil
}

// DropDuplicatePatients keeps the first row of every patient id, in original order.
func (p *DataProcessor) DropDuplicatePatients() (int, error) {
	name, ok := p.column(colPatientID)
	if !ok || p.df.Nrow() == 0 {
		return 0, nil
	}

	seen := make(map[string]struct{}, p.df.Nrow())
	df := p.df.Filter(
		dataframe.F{
			Colname:    name,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				id := el.String()
				if _, dup := seen[id]; dup {
					return false
				}
				seen[id] = struct{}{}
				return true
			},
		},
	)
	if df.Err != nil {
		return 0, fmt.Errorf("drop duplicate patients: %w", df.Err)
	}
	dropped := p.df.Nrow() - df.Nrow()
	p.df = df
	return dropped, nil
}

// RenameColumns 去空格, 转小写, 再按映射重命名; 返回 "旧 -> 新" 列表
func (p *DataProcessor) RenameColumns() ([]string, error) {
	var renamed []string
	for _, name := range p.df.Names() {
		target := p.normalize(name)
		if target == name {
			continue
		}
		df := p.df.Rename(target, name)
		if df.Err != nil {
			return nil, fmt.Errorf("rename %s: %w", name, df.Err)
		}
		p.df = df
		renamed = append(renamed, name+" -> "+target)
	}
	return renamed, nil
}

// DropIdentifiers removes the patient and appointment id columns.
func (p *DataProcessor) DropIdentifiers() error {
	var cols []string
	for _, canonical := range []string{colPatientID, colAppointmentID} {
		if name, ok := p.column(canonical); ok {
			cols = append(cols, name)
		}
	}
	if len(cols) == 0 {
		return nil
	}

	df := p.df.Drop(cols)
	if df.Err != nil {
		return fmt.Errorf("drop identifiers: %w", df.Err)
	}
	p.df = df
	return nil
}

// CollapseHandicap maps every handicap severity >= 1 to 1.
func (p *DataProcessor) CollapseHandicap() error {
	name, values, err := p.intColumn(ColHandicap)
	if err != nil {
		return err
	}
	out := make([]int, len(values))
	for i, v := range values {
		if v >= 1 {
			out[i] = 1
		} else {
			out[i] = v
		}
	}
	return p.mutate(series.New(out, series.Int, name))
}

// AddAgeStages derives age_stages from age, replacing any previous column.
func (p *DataProcessor) AddAgeStages() error {
	name, ages, err := p.intColumn(ColAge)
	if err != nil {
		return err
	}
	stages := make([]string, len(ages))
	for i, a := range ages {
		s, err := AgeStage(a, p.dcfg.AgeBins, p.dcfg.AgeLabels)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", name, i+1, err)
		}
		stages[i] = s
	}
	return p.mutate(series.New(stages, series.String, ColAgeStages))
}

// AgeStage returns the label of the half-open bucket (bins[i], bins[i+1]]
// holding age. The lowest edge itself belongs to the first bucket.
func AgeStage(age int, bins []int, labels []string) (string, error) {
	if len(bins) < 2 || len(labels) != len(bins)-1 {
		return "", fmt.Errorf("need %d labels for %d bin edges", len(bins)-1, len(bins))
	}
	if age < bins[0] {
		return "", fmt.Errorf("age %d below lowest edge %d", age, bins[0])
	}
	for i := 1; i < len(bins); i++ {
		if age <= bins[i] {
			return labels[i-1], nil
		}
	}
	return "", fmt.Errorf("age %d above highest edge %d", age, bins[len(bins)-1])
}
