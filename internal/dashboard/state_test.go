package dashboard

import (
	"errors"
	"reflect"
	"testing"

	"txdash/internal/core"
)

func fixture() core.Dataset {
	return core.Dataset{
		Customers: []core.Customer{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Bob"}},
		Transactions: []core.Transaction{
			{ID: "10", CustomerID: "1", Date: "2024-01-02", Amount: 50},
			{ID: "11", CustomerID: "2", Date: "2024-01-01", Amount: 25},
			{ID: "12", CustomerID: "1", Date: "2024-01-01", Amount: 10},
		},
	}
}

func TestNewStateIsEmpty(t *testing.T) {
	s := New(false)
	if len(s.Rows()) != 0 || s.HasChart {
		t.Fatalf("unexpected initial state: %+v", s)
	}
}

func TestLoadThenFilterThenSelect(t *testing.T) {
	s := Apply(New(false),
		DatasetLoaded{Dataset: fixture()},
		QueryChanged{Query: "BOB"},
	)
	if len(s.Filtered) != 1 || s.Filtered[0].ID != "11" {
		t.Fatalf("filtered: %+v", s.Filtered)
	}

	s = Update(s, CustomerSelected{CustomerID: "1"})
	if !s.HasChart || s.Selected != "1" {
		t.Fatalf("selection not applied: %+v", s)
	}
	if !reflect.DeepEqual(s.Chart.Dates, []string{"2024-01-02", "2024-01-01"}) {
		t.Fatalf("dates should keep first-occurrence order: %v", s.Chart.Dates)
	}
	if s.ChartTitle != "Transaction History for Alice" {
		t.Fatalf("title: %q", s.ChartTitle)
	}
	// the filter does not reset the chart and vice versa
	if s.Query != "BOB" || len(s.Filtered) != 1 {
		t.Fatalf("selection changed the filter: %+v", s)
	}

	s = Update(s, QueryChanged{Query: ""})
	if len(s.Filtered) != 3 || !s.HasChart {
		t.Fatalf("clearing the query: %+v", s)
	}
}

func TestSortedDatesOptIn(t *testing.T) {
	s := Apply(New(true), DatasetLoaded{Dataset: fixture()}, CustomerSelected{CustomerID: "1"})
	if !reflect.DeepEqual(s.Chart.Dates, []string{"2024-01-01", "2024-01-02"}) {
		t.Fatalf("dates: %v", s.Chart.Dates)
	}
	if !reflect.DeepEqual(s.Chart.Totals, []float64{10, 50}) {
		t.Fatalf("totals: %v", s.Chart.Totals)
	}
}

func TestDatasetFailedLeavesUsableState(t *testing.T) {
	boom := errors.New("boom")
	s := Apply(New(false),
		DatasetLoaded{Dataset: fixture()},
		CustomerSelected{CustomerID: "1"},
		DatasetFailed{Err: boom},
	)
	if !errors.Is(s.LoadErr, boom) {
		t.Fatalf("LoadErr: %v", s.LoadErr)
	}
	if len(s.Rows()) != 0 || s.HasChart {
		t.Fatalf("expected empty dashboard: %+v", s)
	}

	// events after a failure still work
	s = Apply(s, QueryChanged{Query: "x"}, CustomerSelected{CustomerID: "1"})
	if len(s.Filtered) != 0 || !s.Chart.IsEmpty() {
		t.Fatalf("unexpected derived data: %+v", s)
	}
}

func TestUpdateDoesNotMutatePreviousState(t *testing.T) {
	loaded := Update(New(false), DatasetLoaded{Dataset: fixture()})
	filtered := Update(loaded, QueryChanged{Query: "alice"})

	if len(loaded.Filtered) != 3 || loaded.Query != "" {
		t.Fatalf("previous state changed: %+v", loaded)
	}
	if len(filtered.Filtered) != 2 {
		t.Fatalf("filtered: %+v", filtered.Filtered)
	}
}

func TestSelectUnknownCustomer(t *testing.T) {
	s := Apply(New(false), DatasetLoaded{Dataset: fixture()}, CustomerSelected{CustomerID: "404"})
	if !s.HasChart || !s.Chart.IsEmpty() || s.ChartTitle != "Transaction History for " {
		t.Fatalf("unexpected state: %+v", s)
	}
	chart := s.LineChart()
	if len(chart.Labels) != 0 || len(chart.Datasets) != 1 {
		t.Fatalf("chart: %+v", chart)
	}
}
