package processor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"NoShowInsights/src/config"
	"NoShowInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Partition 按是否到诊拆分表
type Partition int

const (
	All Partition = iota
	Attended
	NotAttended
)

// Partitions in presentation order.
var Partitions = []Partition{All, Attended, NotAttended}

func (pt Partition) String() string {
	switch pt {
	case Attended:
		return "attended"
	case NotAttended:
		return "not_attended"
	default:
		return "all"
	}
}

// MeanAgeKeySets are the group keys whose mean age is reported.
var MeanAgeKeySets = [][]string{
	{ColAgeStages},
	{ColGender},
	{ColHandicap},
	{ColAlcoholism},
	{ColHandicap, ColAlcoholism},
	{ColHypertension, ColDiabetes},
	{ColGender, ColHandicap, ColAlcoholism},
	{ColGender, ColHypertension, ColDiabetes},
	{ColGender, ColHypertension, ColDiabetes, ColHandicap, ColAlcoholism},
}

// CountColumns are the columns whose value counts are reported.
var CountColumns = []string{
	ColNoShow, ColGender, ColHandicap, ColAlcoholism,
	ColDiabetes, ColHypertension, ColSMSReceived, ColNeighbourhood,
}

// PartitionFrame returns the rows of df belonging to pt.
func PartitionFrame(df dataframe.DataFrame, pt Partition) (dataframe.DataFrame, error) {
	if pt == All || df.Nrow() == 0 {
		return df, nil
	}
	if !utils.HasColumn(df, ColNoShow) {
		return dataframe.DataFrame{}, fmt.Errorf("partition %s: column %s not found", pt, ColNoShow)
	}

	want := "No"
	if pt == NotAttended {
		want = "Yes"
	}
	out := df.Filter(dataframe.F{Colname: ColNoShow, Comparator: series.Eq, Comparando: want})
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("partition %s: %w", pt, out.Err)
	}
	return out, nil
}

// GroupMean 一个分组的平均年龄
type GroupMean struct {
	Key     []string
	MeanAge float64
	Count   int
}

// MeanView 一组分组键在某个分区上的平均年龄
type MeanView struct {
	Keys      []string
	Partition Partition
	Groups    []GroupMean
}

// Name joins the keys, e.g. "gender+handicap".
func (v MeanView) Name() string {
	return strings.Join(v.Keys, "+")
}

// Frame 转为 DataFrame 便于输出
func (v MeanView) Frame() dataframe.DataFrame {
	cols := make([][]string, len(v.Keys))
	means := make([]float64, len(v.Groups))
	counts := make([]int, len(v.Groups))
	for i, g := range v.Groups {
		for k := range v.Keys {
			cols[k] = append(cols[k], g.Key[k])
		}
		means[i] = g.MeanAge
		counts[i] = g.Count
	}

	ss := make([]series.Series, 0, len(v.Keys)+2)
	for k, key := range v.Keys {
		ss = append(ss, series.New(cols[k], series.String, key))
	}
	ss = append(ss,
		series.New(means, series.Float, "mean_age"),
		series.New(counts, series.Int, "count"),
	)
	return dataframe.New(ss...)
}

// MeanAgeBy groups df by keys and returns mean age and row count per group,
// ordered by key. stageOrder is the bucket order used for age_stages.
func MeanAgeBy(df dataframe.DataFrame, keys []string, stageOrder []string) ([]GroupMean, error) {
	for _, k := range append([]string{ColAge}, keys...) {
		if !utils.HasColumn(df, k) {
			return nil, fmt.Errorf("mean age by %v: column %s not found", keys, k)
		}
	}
	// GroupBy 在没有任何分组时会 panic
	if df.Nrow() == 0 {
		return nil, nil
	}

	groups := df.GroupBy(keys...)
	if groups.Err != nil {
		return nil, fmt.Errorf("group by %v: %w", keys, groups.Err)
	}
	agg := groups.Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_MEAN, dataframe.Aggregation_COUNT},
		[]string{ColAge, ColAge},
	)
	if agg.Err != nil {
		return nil, fmt.Errorf("aggregate %v: %w", keys, agg.Err)
	}

	meanCol, ok := utils.FindColumn(agg, func(n string) bool { return strings.HasSuffix(n, "_MEAN") })
	if !ok {
		return nil, fmt.Errorf("aggregate %v: mean column missing", keys)
	}
	countCol, ok := utils.FindColumn(agg, func(n string) bool { return strings.HasSuffix(n, "_COUNT") })
	if !ok {
		return nil, fmt.Errorf("aggregate %v: count column missing", keys)
	}

	keyRecords := make([][]string, len(keys))
	for k, key := range keys {
		keyRecords[k] = agg.Col(key).Records()
	}
	means := agg.Col(meanCol).Float()
	counts := agg.Col(countCol).Float()

	out := make([]GroupMean, agg.Nrow())
	for i := range out {
		key := make([]string, len(keys))
		for k := range keys {
			key[k] = keyRecords[k][i]
		}
		out[i] = GroupMean{Key: key, MeanAge: means[i], Count: int(counts[i])}
	}

	// 聚合结果来自 map, 顺序不固定
	sort.SliceStable(out, func(i, j int) bool {
		for k, key := range keys {
			a, b := out[i].Key[k], out[j].Key[k]
			if a == b {
				continue
			}
			return keyLess(key, a, b, stageOrder)
		}
		return false
	})
	return out, nil
}

// keyLess orders age_stages by bucket, integers numerically, anything else lexically.
func keyLess(column, a, b string, stageOrder []string) bool {
	if column == ColAgeStages {
		ia, ib := indexOf(stageOrder, a), indexOf(stageOrder, b)
		if ia != ib {
			return ia < ib
		}
		return a < b
	}
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

func indexOf(order []string, v string) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return len(order)
}

// ValueCount 一个取值及出现次数
type ValueCount struct {
	Value string
	Count int
}

// Counts 某列在某个分区上的取值计数, 按取值排序
type Counts struct {
	Column    string
	Partition Partition
	Values    []ValueCount
}

// Total sums the counts.
func (c Counts) Total() int {
	total := 0
	for _, v := range c.Values {
		total += v.Count
	}
	return total
}

// Get returns the count for value, zero when absent.
func (c Counts) Get(value string) int {
	for _, v := range c.Values {
		if v.Value == value {
			return v.Count
		}
	}
	return 0
}

// ByFrequency returns the values ordered by descending count; ties keep key order.
func (c Counts) ByFrequency() []ValueCount {
	out := make([]ValueCount, len(c.Values))
	copy(out, c.Values)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (c Counts) Frame() dataframe.DataFrame {
	values := make([]string, len(c.Values))
	counts := make([]int, len(c.Values))
	for i, v := range c.Values {
		values[i] = v.Value
		counts[i] = v.Count
	}
	return dataframe.New(
		series.New(values, series.String, c.Column),
		series.New(counts, series.Int, "count"),
	)
}

// ValueCounts counts every distinct value of column in df.
func ValueCounts(df dataframe.DataFrame, column string, stageOrder []string) (Counts, error) {
	if !utils.HasColumn(df, column) {
		return Counts{}, fmt.Errorf("value counts: column %s not found", column)
	}
	c := Counts{Column: column}
	if df.Nrow() == 0 {
		return c, nil
	}

	tally := make(map[string]int)
	for _, v := range df.Col(column).Records() {
		tally[v]++
	}
	for v, n := range tally {
		c.Values = append(c.Values, ValueCount{Value: v, Count: n})
	}
	sort.Slice(c.Values, func(i, j int) bool {
		return keyLess(column, c.Values[i].Value, c.Values[j].Value, stageOrder)
	})
	return c, nil
}

// KeyedCounts 按另一列取值拆分后的计数
type KeyedCounts struct {
	Key    string
	Counts Counts
}

// CountsWithin counts column separately for every value of by, ordered by that value.
func CountsWithin(df dataframe.DataFrame, by, column string, stageOrder []string) ([]KeyedCounts, error) {
	keys, err := ValueCounts(df, by, stageOrder)
	if err != nil {
		return nil, err
	}
	if !utils.HasColumn(df, column) {
		return nil, fmt.Errorf("counts within %s: column %s not found", by, column)
	}

	out := make([]KeyedCounts, 0, len(keys.Values))
	for _, k := range keys.Values {
		sub := df.Filter(dataframe.F{Colname: by, Comparator: series.Eq, Comparando: k.Value})
		if sub.Err != nil {
			return nil, fmt.Errorf("counts within %s=%s: %w", by, k.Value, sub.Err)
		}
		c, err := ValueCounts(sub, column, stageOrder)
		if err != nil {
			return nil, err
		}
		out = append(out, KeyedCounts{Key: k.Value, Counts: c})
	}
	return out, nil
}

// PartitionViews 某个分区上的全部视图
type PartitionViews struct {
	Partition Partition
	Rows      int
	MeanAge   []MeanView // MeanAgeKeySets 顺序
	Counts    []Counts   // CountColumns 顺序
	Ages      []int
}

// Mean looks up the view for an exact key set.
func (pv *PartitionViews) Mean(keys ...string) (MeanView, bool) {
	for _, v := range pv.MeanAge {
		if v.Name() == strings.Join(keys, "+") {
			return v, true
		}
	}
	return MeanView{}, false
}

// Count looks up the value counts of column.
func (pv *PartitionViews) Count(column string) (Counts, bool) {
	for _, c := range pv.Counts {
		if c.Column == column {
			return c, true
		}
	}
	return Counts{}, false
}

// Views 清洗后表上的全部聚合结果
type Views struct {
	Total       int
	StageOrder  []string
	Partitions  map[Partition]*PartitionViews
	NoShowBySMS []KeyedCounts
}

// Part returns the views of pt.
func (v *Views) Part(pt Partition) *PartitionViews {
	return v.Partitions[pt]
}

// BuildViews computes the mean-age and value-count views over the cleaned
// table for every partition.
func BuildViews(df dataframe.DataFrame, dcfg *config.DataConfig) (*Views, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("build views: %w", df.Err)
	}
	if dcfg == nil {
		dcfg = config.DefaultDataConfig()
	}

	views := &Views{
		Total:      df.Nrow(),
		StageOrder: dcfg.AgeLabels,
		Partitions: make(map[Partition]*PartitionViews, len(Partitions)),
	}

	frames := make(map[Partition]dataframe.DataFrame, len(Partitions))
	for _, pt := range Partitions {
		part, err := PartitionFrame(df, pt)
		if err != nil {
			return nil, err
		}
		frames[pt] = part
	}

	// 到诊 + 未到诊 必须等于总数
	if got := frames[Attended].Nrow() + frames[NotAttended].Nrow(); got != views.Total {
		return nil, fmt.Errorf("build views: attended %d + not attended %d != total %d",
			frames[Attended].Nrow(), frames[NotAttended].Nrow(), views.Total)
	}

	for _, pt := range Partitions {
		pv, err := buildPartition(frames[pt], pt, dcfg.AgeLabels)
		if err != nil {
			return nil, fmt.Errorf("build views %s: %w", pt, err)
		}
		views.Partitions[pt] = pv
	}

	bySMS, err := CountsWithin(df, ColSMSReceived, ColNoShow, dcfg.AgeLabels)
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}
	views.NoShowBySMS = bySMS
	return views, nil
}

func buildPartition(df dataframe.DataFrame, pt Partition, stageOrder []string) (*PartitionViews, error) {
	pv := &PartitionViews{Partition: pt, Rows: df.Nrow()}

	for _, keys := range MeanAgeKeySets {
		groups, err := MeanAgeBy(df, keys, stageOrder)
		if err != nil {
			return nil, err
		}
		pv.MeanAge = append(pv.MeanAge, MeanView{Keys: keys, Partition: pt, Groups: groups})
	}

	for _, col := range CountColumns {
		c, err := ValueCounts(df, col, stageOrder)
		if err != nil {
			return nil, err
		}
		c.Partition = pt
		pv.Counts = append(pv.Counts, c)
	}

	if df.Nrow() > 0 {
		ages, err := df.Col(ColAge).Int()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", ColAge, err)
		}
		pv.Ages = ages
	}
	return pv, nil
}
