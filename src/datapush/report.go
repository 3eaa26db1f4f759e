package datapush

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"NoShowInsights/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Report 一次分析运行的全部输出
type Report struct {
	Generated  time.Time
	Source     string
	Assessment processor.Assessment
	Cleaning   processor.CleaningReport
	Metrics    map[string]interface{}
	Sections   []processor.Section
}

// Sink 报告输出目标
type Sink interface {
	Push(r *Report) error
}

// PushAll hands r to every sink and joins their errors.
func PushAll(r *Report, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Push(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// summaryFrame 把评估、清洗和指标汇总成两列的键值表
func (r *Report) summaryFrame() dataframe.DataFrame {
	a, c := r.Assessment, r.Cleaning
	keys := []string{
		"source", "generated",
		"raw rows", "raw columns", "null cells", "duplicate rows", "duplicate patient ids",
		"negative ages", "zero ages",
		"dropped invalid age", "dropped duplicate patients", "cleaned rows",
	}
	values := []string{
		r.Source, r.Generated.Format("2006-01-02 15:04:05"),
		fmt.Sprint(a.Rows), fmt.Sprint(a.Cols), fmt.Sprint(a.Nulls()), fmt.Sprint(a.DuplicateRows),
		fmt.Sprint(a.DuplicatePatientIDs), fmt.Sprint(a.NegativeAges), fmt.Sprint(a.ZeroAges),
		fmt.Sprint(c.InvalidAge), fmt.Sprint(c.DuplicatePatients), fmt.Sprint(c.RowsOut),
	}

	names := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		if k == "last_updated" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		keys = append(keys, k)
		switch v := r.Metrics[k].(type) {
		case float64:
			values = append(values, fmt.Sprintf("%.4f", v))
		default:
			values = append(values, fmt.Sprint(v))
		}
	}

	return dataframe.New(
		series.New(keys, series.String, "item"),
		series.New(values, series.String, "value"),
	)
}
