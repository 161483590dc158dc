package core

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestAggregateScenario(t *testing.T) {
	_, transactions := sampleData()
	got := Aggregate(transactions, "1")
	want := ChartSeries{
		Dates:  []string{"2024-01-01", "2024-01-02"},
		Totals: []float64{75, 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAggregateUnknownCustomer(t *testing.T) {
	_, transactions := sampleData()
	got := Aggregate(transactions, "42")
	if got.Dates == nil || got.Totals == nil {
		t.Fatalf("expected empty non-nil slices, got %+v", got)
	}
	if !got.IsEmpty() || len(got.Totals) != 0 {
		t.Fatalf("expected empty series, got %+v", got)
	}
}

func TestAggregateKeepsFirstOccurrenceOrder(t *testing.T) {
	transactions := []Transaction{
		{ID: "1", CustomerID: "c", Date: "2024-03-05", Amount: 1},
		{ID: "2", CustomerID: "other", Date: "2024-01-01", Amount: 100},
		{ID: "3", CustomerID: "c", Date: "2024-03-01", Amount: 2},
		{ID: "4", CustomerID: "c", Date: "2024-03-05", Amount: 3},
	}
	got := Aggregate(transactions, "c")
	if !reflect.DeepEqual(got.Dates, []string{"2024-03-05", "2024-03-01"}) {
		t.Fatalf("dates: %v", got.Dates)
	}
	if !reflect.DeepEqual(got.Totals, []float64{4, 2}) {
		t.Fatalf("totals: %v", got.Totals)
	}

	sorted := got.SortedByDate()
	if !reflect.DeepEqual(sorted.Dates, []string{"2024-03-01", "2024-03-05"}) {
		t.Fatalf("sorted dates: %v", sorted.Dates)
	}
	if !reflect.DeepEqual(sorted.Totals, []float64{2, 4}) {
		t.Fatalf("sorted totals: %v", sorted.Totals)
	}
	if got.Dates[0] != "2024-03-05" {
		t.Fatalf("SortedByDate must not reorder the receiver")
	}
}

func TestAggregateTotalsMatchPerDateSums(t *testing.T) {
	transactions := []Transaction{
		{ID: "1", CustomerID: "a", Date: "d1", Amount: 0.1},
		{ID: "2", CustomerID: "a", Date: "d2", Amount: 5},
		{ID: "3", CustomerID: "a", Date: "d1", Amount: 0.2},
		{ID: "4", CustomerID: "b", Date: "d1", Amount: 1000},
		{ID: "5", CustomerID: "a", Date: "d2", Amount: -2},
	}
	got := Aggregate(transactions, "a")

	seen := map[string]bool{}
	for i, d := range got.Dates {
		if seen[d] {
			t.Fatalf("duplicate date %q", d)
		}
		seen[d] = true

		var want float64
		for _, tr := range transactions {
			if tr.CustomerID == "a" && tr.Date == d {
				want += tr.Amount
			}
		}
		if got.Totals[i] != want {
			t.Fatalf("date %s: total %v, want %v", d, got.Totals[i], want)
		}
	}
}

func TestAggregateDatesAreExactStrings(t *testing.T) {
	transactions := []Transaction{
		{ID: "1", CustomerID: "a", Date: "2024-01-01", Amount: 1},
		{ID: "2", CustomerID: "a", Date: "2024-1-1", Amount: 1},
	}
	if got := Aggregate(transactions, "a"); got.Len() != 2 {
		t.Fatalf("dates must not be normalized, got %v", got.Dates)
	}
}

func TestAggregateOverflowEncodesAsNull(t *testing.T) {
	transactions := []Transaction{
		{ID: "1", CustomerID: "9", Date: "2024-01-01", Amount: 1e308},
		{ID: "2", CustomerID: "9", Date: "2024-01-01", Amount: 1e308},
		{ID: "3", CustomerID: "9", Date: "2024-01-02", Amount: 4},
	}
	series := Aggregate(transactions, "9")
	if !math.IsInf(series.Totals[0], 1) {
		t.Fatalf("expected plain float overflow to +Inf, got %v", series.Totals[0])
	}

	out, err := json.Marshal(series)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(out), `{"dates":["2024-01-01","2024-01-02"],"totals":[null,4]}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	chart, err := json.Marshal(NewLineChart(series))
	if err != nil {
		t.Fatalf("marshal chart: %v", err)
	}
	if !strings.Contains(string(chart), `"data":[null,4]`) {
		t.Errorf("chart JSON = %s", chart)
	}
}
