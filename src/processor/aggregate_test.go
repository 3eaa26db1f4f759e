package processor

import (
	"testing"

	"NoShowInsights/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleaned 直接构造清洗后的表
func cleaned(gender, stages, noShow []string, ages, handicap, sms []int) dataframe.DataFrame {
	zeros := make([]int, len(ages))
	hoods := make([]string, len(ages))
	for i := range hoods {
		hoods[i] = "CENTRO"
	}
	return dataframe.New(
		series.New(gender, series.String, ColGender),
		series.New(ages, series.Int, ColAge),
		series.New(hoods, series.String, ColNeighbourhood),
		series.New(zeros, series.Int, ColHypertension),
		series.New(zeros, series.Int, ColDiabetes),
		series.New(zeros, series.Int, ColAlcoholism),
		series.New(handicap, series.Int, ColHandicap),
		series.New(sms, series.Int, ColSMSReceived),
		series.New(noShow, series.String, ColNoShow),
		series.New(stages, series.String, ColAgeStages),
	)
}

func TestBuildViewsFiveRows(t *testing.T) {
	views, err := BuildViews(cleanFrame(t, fiveRows), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, views.Total)
	assert.Equal(t, 2, views.Part(Attended).Rows)
	assert.Equal(t, 1, views.Part(NotAttended).Rows)
	assert.Equal(t, views.Total, views.Part(Attended).Rows+views.Part(NotAttended).Rows)

	// 按短信分组的到诊计数
	require.Len(t, views.NoShowBySMS, 2)
	assert.Equal(t, "0", views.NoShowBySMS[0].Key)
	assert.Equal(t, []ValueCount{{Value: "No", Count: 1}}, views.NoShowBySMS[0].Counts.Values)
	assert.Equal(t, "1", views.NoShowBySMS[1].Key)
	assert.Equal(t, []ValueCount{{Value: "No", Count: 1}, {Value: "Yes", Count: 1}}, views.NoShowBySMS[1].Counts.Values)

	sms, ok := views.Part(All).Count(ColSMSReceived)
	require.True(t, ok)
	assert.Equal(t, []ValueCount{{Value: "0", Count: 1}, {Value: "1", Count: 2}}, sms.Values)

	stages, ok := views.Part(Attended).Mean(ColAgeStages)
	require.True(t, ok)
	require.Len(t, stages.Groups, 2)
	assert.Equal(t, []string{"Childhood"}, stages.Groups[0].Key)
	assert.InDelta(t, 17.0, stages.Groups[0].MeanAge, 1e-9)
	assert.Equal(t, []string{"Adult"}, stages.Groups[1].Key)
	assert.InDelta(t, 30.0, stages.Groups[1].MeanAge, 1e-9)

	for _, pt := range Partitions {
		pv := views.Part(pt)
		assert.Len(t, pv.MeanAge, len(MeanAgeKeySets))
		assert.Len(t, pv.Counts, len(CountColumns))
		for _, c := range pv.Counts {
			assert.Equal(t, pv.Rows, c.Total(), "%s %s", pt, c.Column)
		}
	}
}

func TestMeanAgeByOrdering(t *testing.T) {
	df := cleaned(
		[]string{"M", "F", "M", "F", "F", "M"},
		[]string{"Elderly", "Childhood", "Adult", "Elderly", "Middle Age Adult", "Childhood"},
		[]string{"No", "No", "Yes", "No", "Yes", "No"},
		[]int{80, 5, 20, 70, 40, 10},
		[]int{1, 0, 0, 1, 0, 0},
		[]int{0, 0, 0, 0, 0, 0},
	)
	order := config.DefaultDataConfig().AgeLabels

	stages, err := MeanAgeBy(df, []string{ColAgeStages}, order)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, "Childhood", stages[0].Key[0])
	assert.Equal(t, "Adult", stages[1].Key[0])
	assert.Equal(t, "Middle Age Adult", stages[2].Key[0])
	assert.Equal(t, "Elderly", stages[3].Key[0])
	assert.InDelta(t, 7.5, stages[0].MeanAge, 1e-9)
	assert.Equal(t, 2, stages[0].Count)
	assert.InDelta(t, 75.0, stages[3].MeanAge, 1e-9)

	pairs, err := MeanAgeBy(df, []string{ColGender, ColHandicap}, order)
	require.NoError(t, err)
	require.Len(t, pairs, 4)
	assert.Equal(t, []string{"F", "0"}, pairs[0].Key)
	assert.InDelta(t, 22.5, pairs[0].MeanAge, 1e-9)
	assert.Equal(t, []string{"F", "1"}, pairs[1].Key)
	assert.Equal(t, []string{"M", "0"}, pairs[2].Key)
	assert.InDelta(t, 15.0, pairs[2].MeanAge, 1e-9)
	assert.Equal(t, []string{"M", "1"}, pairs[3].Key)

	_, err = MeanAgeBy(df, []string{"blood_type"}, order)
	assert.Error(t, err)
}

func TestValueCountsOrdering(t *testing.T) {
	df := dataframe.New(
		series.New([]int{10, 2, 2, 10, 10, 1}, series.Int, "visits"),
	)

	c, err := ValueCounts(df, "visits", nil)
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"1", 1}, {"2", 2}, {"10", 3}}, c.Values)
	assert.Equal(t, []ValueCount{{"10", 3}, {"2", 2}, {"1", 1}}, c.ByFrequency())
	assert.Equal(t, 6, c.Total())
	assert.Equal(t, 0, c.Get("7"))

	frame := c.Frame()
	assert.Equal(t, []string{"visits", "count"}, frame.Names())
	assert.Equal(t, 3, frame.Nrow())
}

func TestBuildViewsSumInvariant(t *testing.T) {
	df := cleaned(
		[]string{"F", "M"},
		[]string{"Adult", "Adult"},
		[]string{"No", "Maybe"},
		[]int{20, 30},
		[]int{0, 0},
		[]int{0, 1},
	)
	_, err := BuildViews(df, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "!= total 2")
}

func TestBuildViewsEmptyPartition(t *testing.T) {
	df := cleaned(
		[]string{"F", "M"},
		[]string{"Adult", "Childhood"},
		[]string{"No", "No"},
		[]int{20, 3},
		[]int{0, 0},
		[]int{0, 1},
	)
	views, err := BuildViews(df, nil)
	require.NoError(t, err)

	missed := views.Part(NotAttended)
	assert.Equal(t, 0, missed.Rows)
	for _, m := range missed.MeanAge {
		assert.Empty(t, m.Groups)
	}
	for _, c := range missed.Counts {
		assert.Empty(t, c.Values)
	}
	assert.Empty(t, missed.Ages)
}

func TestBuildViewsEmptyTable(t *testing.T) {
	csv := rawHeader + "1,1,F,2016-04-29,2016-04-29,-1,CENTRO,0,0,0,0,0,0,No\n"
	views, err := BuildViews(cleanFrame(t, csv), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, views.Total)
	assert.Empty(t, views.NoShowBySMS)

	sections := Questions(views)
	assert.Len(t, sections, 5)
}

func TestBuildViewsMissingColumn(t *testing.T) {
	df := dataframe.New(series.New([]int{1}, series.Int, ColAge))
	_, err := BuildViews(df, nil)
	assert.Error(t, err)
}
