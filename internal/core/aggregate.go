package core

import (
	"encoding/json"
	"math"
	"sort"
)

// ChartSeries holds daily totals; Dates[i] pairs with Totals[i].
type ChartSeries struct {
	Dates  []string  `json:"dates"`
	Totals []float64 `json:"totals"`
}

// Aggregate sums the amounts of customerID's transactions per date.
// Dates appear in order of first occurrence, not sorted. An unknown
// customer yields an empty, non-nil series.
func Aggregate(transactions []Transaction, customerID ID) ChartSeries {
	series := ChartSeries{Dates: []string{}, Totals: []float64{}}
	pos := make(map[string]int)

	for _, t := range transactions {
		if t.CustomerID != customerID {
			continue
		}
		i, ok := pos[t.Date]
		if !ok {
			i = len(series.Dates)
			pos[t.Date] = i
			series.Dates = append(series.Dates, t.Date)
			series.Totals = append(series.Totals, 0)
		}
		series.Totals[i] += t.Amount
	}
	return series
}

func (s ChartSeries) Len() int { return len(s.Dates) }

func (s ChartSeries) IsEmpty() bool { return len(s.Dates) == 0 }

// SortedByDate returns a copy ordered by date string. ISO dates sort
// chronologically this way; other formats sort lexically.
func (s ChartSeries) SortedByDate() ChartSeries {
	order := make([]int, len(s.Dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Dates[order[a]] < s.Dates[order[b]]
	})

	out := ChartSeries{
		Dates:  make([]string, len(order)),
		Totals: make([]float64, len(order)),
	}
	for i, j := range order {
		out.Dates[i] = s.Dates[j]
		out.Totals[i] = s.Totals[j]
	}
	return out
}

// MarshalJSON writes non-finite totals as null, the value JSON.stringify
// gives a chart for them. Summing large amounts can overflow to Infinity.
func (s ChartSeries) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Dates  []string   `json:"dates"`
		Totals []*float64 `json:"totals"`
	}{s.Dates, finiteOrNull(s.Totals)})
}

func finiteOrNull(values []float64) []*float64 {
	if values == nil {
		return nil
	}
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsInf(values[i], 0) && !math.IsNaN(values[i]) {
			out[i] = &values[i]
		}
	}
	return out
}
