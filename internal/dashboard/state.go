// Package dashboard holds the view state of the transaction dashboard and
// the pure update function that derives it from events.
//
// The state is a value: Update never mutates its input and returns the
// next state. Derived data (filtered rows, chart) is recomputed from the
// dataset on every relevant event and replaced wholesale.
package dashboard

import (
	"txdash/internal/core"
)

// State is everything the page needs to render.
type State struct {
	Dataset core.Dataset
	// LoadErr is the last fetch failure. It is kept for diagnostics only
	// and never shown to the user.
	LoadErr error

	Query    string
	Filtered []core.Transaction

	Selected   core.ID
	HasChart   bool
	Chart      core.ChartSeries
	SortDates  bool
	ChartTitle string
}

type (
	// Event is one of DatasetLoaded, DatasetFailed, QueryChanged or
	// CustomerSelected.
	Event interface{ isEvent() }

	DatasetLoaded struct{ Dataset core.Dataset }
	DatasetFailed struct{ Err error }
	QueryChanged  struct{ Query string }
	// CustomerSelected is sent when a table row is clicked.
	CustomerSelected struct{ CustomerID core.ID }
)

func (DatasetLoaded) isEvent()    {}
func (DatasetFailed) isEvent()    {}
func (QueryChanged) isEvent()     {}
func (CustomerSelected) isEvent() {}

// New returns an empty state, as shown before the dataset arrives.
func New(sortDates bool) State {
	return clearSelection(State{
		Dataset:   core.Dataset{}.Normalized(),
		Filtered:  []core.Transaction{},
		SortDates: sortDates,
	})
}

// Update applies one event.
func Update(s State, ev Event) State {
	switch e := ev.(type) {
	case DatasetLoaded:
		s.Dataset = e.Dataset.Normalized()
		s.LoadErr = nil
		s.Query = ""
		s.Filtered = core.Filter(s.Dataset.Transactions, s.Dataset.Customers, "")
		s = clearSelection(s)
	case DatasetFailed:
		// collections stay empty; the table renders no rows
		s.Dataset = core.Dataset{}.Normalized()
		s.LoadErr = e.Err
		s.Filtered = []core.Transaction{}
		s = clearSelection(s)
	case QueryChanged:
		s.Query = e.Query
		s.Filtered = core.Filter(s.Dataset.Transactions, s.Dataset.Customers, e.Query)
	case CustomerSelected:
		s = selectCustomer(s, e.CustomerID)
	}
	return s
}

// Apply folds a sequence of events over s.
func Apply(s State, events ...Event) State {
	for _, ev := range events {
		s = Update(s, ev)
	}
	return s
}

// Rows returns the filtered transactions joined with customer names.
func (s State) Rows() []core.DisplayRow {
	return core.DisplayRows(s.Filtered, s.Dataset.Customers)
}

// LineChart returns the chart data for the current selection.
func (s State) LineChart() core.LineChart {
	return core.NewLineChart(s.Chart)
}

func selectCustomer(s State, id core.ID) State {
	series := core.Aggregate(s.Dataset.Transactions, id)
	if s.SortDates {
		series = series.SortedByDate()
	}
	name, _ := s.Dataset.CustomerName(id)

	s.Selected = id
	s.HasChart = true
	s.Chart = series
	s.ChartTitle = core.ChartTitle(name)
	return s
}

func clearSelection(s State) State {
	s.Selected = ""
	s.HasChart = false
	s.Chart = core.ChartSeries{Dates: []string{}, Totals: []float64{}}
	s.ChartTitle = ""
	return s
}
