package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"txdash/internal/core"
	"txdash/internal/dashboard"
	"txdash/internal/log"
)

type indexData struct {
	Query string
	Rows  []core.DisplayRow
	Chart *chartView
}

type transactionsData struct {
	Rows []core.DisplayRow
}

// chartView is what chart.html needs. ChartJSON is the Chart.js "data"
// object, placed in a data attribute for dashboard.js.
type chartView struct {
	CustomerID core.ID
	Title      string
	ChartJSON  string
	Empty      bool
}

func newChartView(id core.ID, title string, series core.ChartSeries) (*chartView, error) {
	data, err := json.Marshal(core.NewLineChart(series))
	if err != nil {
		return nil, fmt.Errorf("encoding chart for customer %s: %w", id, err)
	}
	return &chartView{
		CustomerID: id,
		Title:      title,
		ChartJSON:  string(data),
		Empty:      series.IsEmpty(),
	}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the one-shot population has finished,
// whether or not it succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.store.Ready() {
		http.Error(w, "dataset not loaded yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleIndex renders the full page. ?q= and ?customer_id= restore a
// filter and a selection.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ds, _ := s.store.Snapshot()

	var events []dashboard.Event
	if err := s.store.LastError(); err != nil && ds.IsEmpty() {
		events = append(events, dashboard.DatasetFailed{Err: err})
	} else {
		events = append(events, dashboard.DatasetLoaded{Dataset: ds})
	}
	if q := r.URL.Query().Get("q"); q != "" {
		events = append(events, dashboard.QueryChanged{Query: q})
	}
	if id, err := parseCustomerID(r, ds); err == nil {
		events = append(events, dashboard.CustomerSelected{CustomerID: id})
	}
	state := dashboard.Apply(dashboard.New(s.sortDates), events...)

	data := indexData{Query: state.Query, Rows: state.Rows()}
	if state.HasChart {
		cv, err := newChartView(state.Selected, state.ChartTitle, state.Chart)
		if err != nil {
			s.renderFailed(w, r, "dashboard.html", err)
			return
		}
		data.Chart = cv
	}

	s.writeTemplate(w, r, "dashboard.html", data)
}

// handleTransactions returns the table body for the current filter.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	ds, version := s.store.Snapshot()

	filtered := s.filterCache.GetOrCompute(newFilterKey(version, query), func() []core.Transaction {
		return core.Filter(ds.Transactions, ds.Customers, query)
	})
	log.FromContext(r.Context()).DebugContext(r.Context(), "Transactions filtered",
		log.FieldOperation, log.OpFilter,
		log.FieldQuery, query,
		log.FieldTransactions, len(filtered))

	s.writeTemplate(w, r, "transactions_rows", transactionsData{Rows: core.DisplayRows(filtered, ds.Customers)})
}

// handleChart returns the heading and chart for one customer.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ds, version := s.store.Snapshot()
	id, err := parseCustomerID(r, ds)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	name, _ := ds.CustomerName(id)
	cv, err := newChartView(id, core.ChartTitle(name), s.chartSeries(ds, version, id))
	if err != nil {
		s.renderFailed(w, r, "chart", err)
		return
	}

	body, err := s.render("chart", cv)
	if err != nil {
		s.renderFailed(w, r, "chart", err)
		return
	}
	NewHTMXResponse().
		TriggerCustomerSelected(id).
		BodyHTML(body).
		Write(w)
}

// handleData serves the dataset in the /api/data wire format.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	ds, _ := s.store.Snapshot()
	if err := writeJSON(w, http.StatusOK, ds.Normalized()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Writing dataset failed", log.FieldError, err)
	}
}

// handleChartData serves a customer's series as JSON.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	ds, version := s.store.Snapshot()
	id, err := parseCustomerID(r, ds)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, s.chartSeries(ds, version, id)); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Writing chart failed", log.FieldError, err)
	}
}

func (s *Server) chartSeries(ds core.Dataset, version uint64, id core.ID) core.ChartSeries {
	return s.chartCache.GetOrCompute(chartKey{version: version, customerID: id}, func() core.ChartSeries {
		series := core.Aggregate(ds.Transactions, id)
		if s.sortDates {
			series = series.SortedByDate()
		}
		return series
	})
}

// render executes a template into memory so a failure never leaves a
// half-written page.
func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.render(name, data)
	if err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	errType := log.ErrorTypeInternal
	var jsonErr *json.UnsupportedValueError
	if errors.As(err, &jsonErr) {
		errType = log.ErrorTypeValidation
	}
	fields := log.NewFields()
	fields["template"] = name
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Rendering failed", err, log.OpRender, errType, fields)
	InternalServerError("Something went wrong").Write(w)
}
