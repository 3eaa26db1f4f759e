package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeHistogram(t *testing.T) {
	ages := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	bins := AgeHistogram(ages, 10)
	require.Len(t, bins, 10)
	assert.InDelta(t, 0.0, bins[0].Lo, 1e-9)
	assert.InDelta(t, 10.0, bins[9].Hi, 1e-9)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, len(ages), total)
	// 最大值落入最后一个区间
	assert.Equal(t, 2, bins[9].Count)

	single := AgeHistogram([]int{42, 42}, 10)
	require.Len(t, single, 10)
	assert.InDelta(t, 41.5, single[0].Lo, 1e-9)
	assert.Equal(t, 2, single[5].Count)

	assert.Nil(t, AgeHistogram(nil, 10))
}

func TestQuestionsSections(t *testing.T) {
	views, err := BuildViews(cleanFrame(t, fiveRows), nil)
	require.NoError(t, err)

	sections := Questions(views)
	require.Len(t, sections, 5)
	for _, s := range sections {
		assert.NotEmpty(t, s.Question)
		assert.NotEmpty(t, s.Tables, s.Title)
		for _, tbl := range s.Tables {
			for _, row := range tbl.Rows {
				assert.Len(t, row, len(tbl.Header), tbl.Name)
			}
		}
	}

	sms := sections[3].Tables[0]
	assert.Equal(t, []string{"sms_received", "No", "Yes"}, sms.Header)
	assert.Equal(t, [][]string{{"0", "1", "0"}, {"1", "1", "1"}}, sms.Rows)
	assert.Equal(t, ColumnChart, sms.Chart)

	attendance := sections[0].Tables[0]
	assert.Equal(t, [][]string{{"No", "2"}, {"Yes", "1"}}, attendance.Rows)

	hoods := sections[4].Tables[0]
	assert.Equal(t, [][]string{{"3", "3"}}, hoods.Rows)

	overall := sections[0].Tables[1]
	assert.Equal(t, "mean age by age stage (all)", overall.Name)
	assert.Equal(t, []string{"Childhood", "17.00", "1"}, overall.Rows[0])
	require.Len(t, overall.Rows, 3)

	describe := sections[0].Tables[2]
	assert.Equal(t, "age describe (all)", describe.Name)
	assert.Equal(t, []string{"count", "3"}, describe.Rows[0])
	assert.Equal(t, []string{"mean", "32.3333"}, describe.Rows[1])
	assert.Equal(t, []string{"max", "50"}, describe.Rows[7])

	stages := sections[0].Tables[3]
	assert.Equal(t, "mean age by age stage (attended)", stages.Name)
	assert.Equal(t, []string{"Childhood", "17.00", "1"}, stages.Rows[0])

	frame := stages.Frame()
	require.NoError(t, frame.Err)
	assert.Equal(t, stages.Header, frame.Names())
}
