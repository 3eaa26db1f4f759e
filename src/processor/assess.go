package processor

import (
	"fmt"
	"strings"

	"NoShowInsights/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColumnInfo 单列的类型、缺失值与唯一值数量
type ColumnInfo struct {
	Name   string
	Type   series.Type
	Nulls  int
	Unique int
}

// Assessment summarises the raw table before cleaning.
type Assessment struct {
	Rows                int
	Cols                int
	Columns             []ColumnInfo
	DuplicateRows       int
	DuplicatePatientIDs int
	NegativeAges        int
	ZeroAges            int // kept as infants
	AgeDescribe         dataframe.DataFrame
}

// Nulls returns the total number of missing cells.
func (a Assessment) Nulls() int {
	n := 0
	for _, c := range a.Columns {
		n += c.Nulls
	}
	return n
}

func (a Assessment) String() string {
	return fmt.Sprintf("shape (%d, %d), %d nulls, %d duplicate rows, %d duplicate patient ids, %d negative ages, %d zero ages",
		a.Rows, a.Cols, a.Nulls(), a.DuplicateRows, a.DuplicatePatientIDs, a.NegativeAges, a.ZeroAges)
}

// Frame 列信息表
func (a Assessment) Frame() dataframe.DataFrame {
	names := make([]string, len(a.Columns))
	types := make([]string, len(a.Columns))
	nulls := make([]int, len(a.Columns))
	unique := make([]int, len(a.Columns))
	for i, c := range a.Columns {
		names[i] = c.Name
		types[i] = string(c.Type)
		nulls[i] = c.Nulls
		unique[i] = c.Unique
	}
	return dataframe.New(
		series.New(names, series.String, "column"),
		series.New(types, series.String, "type"),
		series.New(nulls, series.Int, "nulls"),
		series.New(unique, series.Int, "unique"),
	)
}

// Assess inspects df without modifying it.
func Assess(df dataframe.DataFrame, dcfg *config.DataConfig) (Assessment, error) {
	if df.Err != nil {
		return Assessment{}, fmt.Errorf("assess: %w", df.Err)
	}
	p := NewDataProcessor(df, dcfg)

	nrow, ncol := df.Dims()
	a := Assessment{Rows: nrow, Cols: ncol}

	names := df.Names()
	records := make([][]string, len(names))
	for i, name := range names {
		col := df.Col(name)
		records[i] = col.Records()

		info := ColumnInfo{Name: name, Type: col.Type()}
		seen := make(map[string]struct{})
		for r := 0; r < col.Len(); r++ {
			if col.Elem(r).IsNA() || strings.TrimSpace(records[i][r]) == "" {
				info.Nulls++
			}
			seen[records[i][r]] = struct{}{}
		}
		info.Unique = len(seen)
		a.Columns = append(a.Columns, info)
	}

	// 整行重复
	rows := make(map[string]struct{}, nrow)
	fields := make([]string, len(names))
	for r := 0; r < nrow; r++ {
		for c := range names {
			fields[c] = records[c][r]
		}
		key := strings.Join(fields, "\x1f")
		if _, dup := rows[key]; dup {
			a.DuplicateRows++
			continue
		}
		rows[key] = struct{}{}
	}

	if name, ok := p.column(colPatientID); ok {
		ids := make(map[string]struct{}, nrow)
		for _, v := range df.Col(name).Records() {
			if id, err := normalizePatientID(v); err == nil {
				v = id
			}
			ids[v] = struct{}{}
		}
		a.DuplicatePatientIDs = nrow - len(ids)
	}

	name, ok := p.column(ColAge)
	if !ok {
		return a, fmt.Errorf("assess: column %s not found", ColAge)
	}
	if nrow == 0 {
		return a, nil
	}
	ages, err := df.Col(name).Int()
	if err != nil {
		return a, fmt.Errorf("assess %s: %w", name, err)
	}
	for _, age := range ages {
		switch {
		case age < 0:
			a.NegativeAges++
		case age == 0:
			a.ZeroAges++
		}
	}
	a.AgeDescribe = DescribeAges(ages)
	return a, nil
}
