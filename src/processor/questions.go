package processor

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
)

// ChartKind 工作簿中为表格生成的图表类型
type ChartKind int

const (
	NoChart ChartKind = iota
	BarChart
	PieChart
	ColumnChart
)

// Table 一张输出表, Rows 不含表头
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	Chart  ChartKind
	Series []int // 作图的数值列, 第一列为分类
}

// Frame loads the table back into a DataFrame, keeping every column as text.
func (t Table) Frame() dataframe.DataFrame {
	records := append([][]string{t.Header}, t.Rows...)
	return dataframe.LoadRecords(records, dataframe.DetectTypes(false))
}

// Section 一个研究问题及其表格
type Section struct {
	Title    string
	Question string
	Tables   []Table
}

func tableFromFrame(name string, df dataframe.DataFrame) Table {
	records := df.Records()
	t := Table{Name: name}
	if len(records) > 0 {
		t.Header = records[0]
		t.Rows = records[1:]
	}
	return t
}

func countsTable(name string, c Counts, ordered []ValueCount) Table {
	t := Table{Name: name, Header: []string{c.Column, "count"}}
	for _, v := range ordered {
		t.Rows = append(t.Rows, []string{v.Value, strconv.Itoa(v.Count)})
	}
	return t
}

func meanTable(name string, v MeanView) Table {
	t := tableFromFrame(name, v.Frame())
	t.Series = []int{len(v.Keys)}
	// 浮点按两位小数输出
	for _, row := range t.Rows {
		if f, err := strconv.ParseFloat(row[len(v.Keys)], 64); err == nil {
			row[len(v.Keys)] = strconv.FormatFloat(f, 'f', 2, 64)
		}
	}
	return t
}

// HistBin 直方图的一个区间, 最后一个区间包含右端点
type HistBin struct {
	Lo, Hi float64
	Count  int
}

// AgeHistogram splits the range of ages into bins equal-width intervals.
func AgeHistogram(ages []int, bins int) []HistBin {
	if len(ages) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := ages[0], ages[0]
	for _, a := range ages {
		if a < lo {
			lo = a
		}
		if a > hi {
			hi = a
		}
	}

	start, end := float64(lo), float64(hi)
	if start == end {
		start, end = start-0.5, end+0.5
	}
	width := (end - start) / float64(bins)

	out := make([]HistBin, bins)
	for i := range out {
		out[i].Lo = start + float64(i)*width
		out[i].Hi = start + float64(i+1)*width
	}
	out[bins-1].Hi = end

	for _, a := range ages {
		idx := int(math.Floor((float64(a) - start) / width))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

func histogramTable(name string, ages []int) Table {
	t := Table{Name: name, Header: []string{"age_range", "count"}, Chart: ColumnChart, Series: []int{1}}
	for _, b := range AgeHistogram(ages, 10) {
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%.1f-%.1f", b.Lo, b.Hi),
			strconv.Itoa(b.Count),
		})
	}
	return t
}

func ageCountsTable(name string, ages []int) Table {
	tally := make(map[int]int)
	for _, a := range ages {
		tally[a]++
	}
	keys := make([]int, 0, len(tally))
	for a := range tally {
		keys = append(keys, a)
	}
	sort.Ints(keys)

	t := Table{Name: name, Header: []string{ColAge, "count"}}
	for _, a := range keys {
		t.Rows = append(t.Rows, []string{strconv.Itoa(a), strconv.Itoa(tally[a])})
	}
	return t
}

func smsTable(name string, bySMS []KeyedCounts) Table {
	t := Table{
		Name:   name,
		Header: []string{ColSMSReceived, "No", "Yes"},
		Chart:  ColumnChart,
		Series: []int{1, 2},
	}
	for _, k := range bySMS {
		t.Rows = append(t.Rows, []string{
			k.Key,
			strconv.Itoa(k.Counts.Get("No")),
			strconv.Itoa(k.Counts.Get("Yes")),
		})
	}
	return t
}

// Questions arranges the views into the five research-question sections.
func Questions(v *Views) []Section {
	all, att, missed := v.Part(All), v.Part(Attended), v.Part(NotAttended)

	count := func(pv *PartitionViews, col string) Counts {
		c, _ := pv.Count(col)
		return c
	}
	mean := func(pv *PartitionViews, keys ...string) MeanView {
		m, _ := pv.Mean(keys...)
		m.Keys = keys
		return m
	}
	title := func(s string, pt Partition) string {
		return fmt.Sprintf("%s (%s)", s, pt)
	}

	// Q1 年龄与未到诊
	attendance := countsTable("attendance", count(all, ColNoShow), count(all, ColNoShow).Values)
	attendance.Chart, attendance.Series = BarChart, []int{1}
	allStages := meanTable(title("mean age by age stage", All), mean(all, ColAgeStages))
	allStages.Chart = BarChart
	q1 := Section{
		Title:    "Q1 age",
		Question: "Is there a relationship between age and non-attendance?",
		Tables: []Table{
			attendance,
			allStages,
			tableFromFrame(title("age describe", All), DescribeAges(all.Ages)),
		},
	}
	for _, pv := range []*PartitionViews{att, missed} {
		stages := meanTable(title("mean age by age stage", pv.Partition), mean(pv, ColAgeStages))
		stages.Chart = ColumnChart
		q1.Tables = append(q1.Tables,
			stages,
			histogramTable(title("age histogram", pv.Partition), pv.Ages),
			ageCountsTable(title("age counts", pv.Partition), pv.Ages),
		)
	}

	// Q2 性别、年龄与到诊
	gender := countsTable(title("gender", All), count(all, ColGender), count(all, ColGender).Values)
	gender.Chart, gender.Series = PieChart, []int{1}
	q2 := Section{
		Title:    "Q2 gender",
		Question: "Does gender and age affect attendance?",
		Tables:   []Table{gender},
	}
	for _, pv := range []*PartitionViews{att, missed} {
		c := count(pv, ColGender)
		q2.Tables = append(q2.Tables, countsTable(title("gender", pv.Partition), c, c.Values))
	}
	for _, pv := range []*PartitionViews{att, missed} {
		q2.Tables = append(q2.Tables, meanTable(title("mean age by gender", pv.Partition), mean(pv, ColGender)))
	}

	// Q3 年龄、性别与疾病
	q3 := Section{
		Title:    "Q3 disease",
		Question: "Is there a relationship between age, gender, and disease?",
	}
	for _, col := range []string{ColHypertension, ColDiabetes, ColAlcoholism, ColHandicap} {
		for _, pv := range []*PartitionViews{all, att, missed} {
			c := count(pv, col)
			q3.Tables = append(q3.Tables, countsTable(title(col, pv.Partition), c, c.Values))
		}
	}
	for _, keys := range MeanAgeKeySets[2:] {
		for _, pv := range []*PartitionViews{att, missed} {
			m := mean(pv, keys...)
			q3.Tables = append(q3.Tables, meanTable(title("mean age by "+m.Name(), pv.Partition), m))
		}
	}

	// Q4 短信提醒
	sms := smsTable("no_show by sms_received", v.NoShowBySMS)
	q4 := Section{
		Title:    "Q4 sms",
		Question: "Is there a relationship between SMS and non-attendance?",
		Tables:   []Table{sms},
	}
	for _, pv := range []*PartitionViews{all, att, missed} {
		c := count(pv, ColSMSReceived)
		q4.Tables = append(q4.Tables, countsTable(title(ColSMSReceived, pv.Partition), c, c.Values))
	}

	// Q5 社区
	hoods := count(all, ColNeighbourhood)
	q5 := Section{
		Title:    "Q5 neighbourhood",
		Question: "Does neighbourhood affect attendance?",
		Tables: []Table{{
			Name:   "neighbourhoods",
			Header: []string{"unique", "appointments"},
			Rows:   [][]string{{strconv.Itoa(len(hoods.Values)), strconv.Itoa(hoods.Total())}},
		}},
	}
	for _, pv := range []*PartitionViews{att, missed} {
		c := count(pv, ColNeighbourhood)
		q5.Tables = append(q5.Tables, countsTable(title(ColNeighbourhood, pv.Partition), c, c.ByFrequency()))
	}

	return []Section{q1, q2, q3, q4, q5}
}
