package processor

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// DescribeStats 年龄分布统计的行名, 顺序同 pandas describe
var DescribeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// DescribeAges summarises ages as count, mean, sample std, min, quartiles and max.
// Quartiles interpolate linearly between the closest ranks.
func DescribeAges(ages []int) dataframe.DataFrame {
	values := make([]string, len(DescribeStats))
	for i := range values {
		values[i] = "NaN"
	}
	values[0] = strconv.Itoa(len(ages))

	if len(ages) > 0 {
		x := make([]float64, len(ages))
		for i, a := range ages {
			x[i] = float64(a)
		}
		sort.Float64s(x)

		std := math.NaN()
		if len(x) > 1 {
			std = stat.StdDev(x, nil)
		}
		for i, v := range []float64{
			stat.Mean(x, nil),
			std,
			x[0],
			quantile(x, 0.25),
			quantile(x, 0.5),
			quantile(x, 0.75),
			x[len(x)-1],
		} {
			values[i+1] = formatStat(v)
		}
	}

	return dataframe.New(
		series.New(DescribeStats, series.String, "statistic"),
		series.New(values, series.String, ColAge),
	)
}

// quantile 对已排序的 x 做线性插值, 位置为 (n-1)*p
func quantile(x []float64, p float64) float64 {
	h := float64(len(x)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(x) {
		return x[len(x)-1]
	}
	return x[i] + (h-lo)*(x[i+1]-x[i])
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
