// data.go
package processor

import (
	"fmt"
	"strings"
	"time"

	"NoShowInsights/src/config"

	"github.com/go-gota/gota/dataframe"
)

type DataProcessor struct {
	df   dataframe.DataFrame
	dcfg *config.DataConfig
}

// CleaningReport 记录每一步清洗丢弃的行数, 作为数据质量告警写入日志
type CleaningReport struct {
	RowsIn            int
	InvalidAge        int
	DuplicatePatients int
	Renamed           []string
	RowsOut           int
}

func (r CleaningReport) String() string {
	return fmt.Sprintf("rows in %d, dropped %d with invalid age, dropped %d duplicate patients, rows out %d, renamed [%s]",
		r.RowsIn, r.InvalidAge, r.DuplicatePatients, r.RowsOut, strings.Join(r.Renamed, ", "))
}

// NewDataProcessor wraps df; a nil dcfg uses the default cleaning rules.
func NewDataProcessor(df dataframe.DataFrame, dcfg *config.DataConfig) *DataProcessor {
	if dcfg == nil {
		dcfg = config.DefaultDataConfig()
	}
	return &DataProcessor{df: df, dcfg: dcfg}
}

// Frame returns the current table.
func (p *DataProcessor) Frame() dataframe.DataFrame {
	return p.df
}

// CleanData runs the fixed cleaning sequence. On error the table is left
// exactly as it was before the call.
func (p *DataProcessor) CleanData() (CleaningReport, error) {
	if p.df.Err != nil {
		return CleaningReport{}, fmt.Errorf("clean data: %w", p.df.Err)
	}

	original := p.df
	report, err := p.clean()
	if err != nil {
		p.df = original
		return CleaningReport{}, err
	}
	return report, nil
}

func (p *DataProcessor) clean() (CleaningReport, error) {
	var (
		report = CleaningReport{RowsIn: p.df.Nrow()}
		err    error
	)

	// 1. 解析时间字段, 统一患者编号
	if err = p.ParseTimestamps(); err != nil {
		return report, fmt.Errorf("parse timestamps: %w", err)
	}

	// 2. 删除年龄不合法的行
	if report.InvalidAge, err = p.DropInvalidAge(); err != nil {
		return report, fmt.Errorf("drop invalid age: %w", err)
	}

	// 3. 按患者编号去重, 保留首条
	if report.DuplicatePatients, err = p.DropDuplicatePatients(); err != nil {
		return report, err
	}

	// 4. 列名规范化
	if report.Renamed, err = p.RenameColumns(); err != nil {
		return report, err
	}

	// 5. 删除编号列
	if err = p.DropIdentifiers(); err != nil {
		return report, err
	}

	// 6. 残障等级转为 0/1
	if err = p.CollapseHandicap(); err != nil {
		return report, fmt.Errorf("collapse handicap: %w", err)
	}

	// 7. 年龄分段
	if err = p.AddAgeStages(); err != nil {
		return report, fmt.Errorf("add age stages: %w", err)
	}

	report.RowsOut = p.df.Nrow()
	return report, nil
}

func (p *DataProcessor) CalculateMetrics() (map[string]interface{}, error) {
	if p.df.Err != nil {
		return nil, p.df.Err
	}
	metrics := map[string]interface{}{
		"total_appointments": p.df.Nrow(),
		"last_updated":       time.Now(),
	}
	if p.df.Nrow() == 0 {
		return metrics, nil
	}

	if name, ok := p.column(ColNoShow); ok {
		missed := 0
		for _, v := range p.df.Col(name).Records() {
			if v == "Yes" {
				missed++
			}
		}
		metrics["no_show_rate"] = float64(missed) / float64(p.df.Nrow())
	}
	if name, ok := p.column(ColAge); ok {
		metrics["mean_age"] = p.df.Col(name).Mean()
	}
	return metrics, nil
}
