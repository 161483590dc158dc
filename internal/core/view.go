package core

import "encoding/json"

// Chart styling used by the dashboard line chart.
const (
	ChartSeriesLabel = "Total Transaction Amount"
	ChartBorderColor = "rgb(75, 192, 192)"
	ChartTension     = 0.1
)

// DisplayRow is a table row with the customer name resolved.
type DisplayRow struct {
	ID           ID
	CustomerID   ID
	CustomerName string // empty when the customer is unknown
	Resolved     bool
	Date         string
	Amount       float64
	AmountText   string
}

// DisplayRows joins transactions with their customers for the table.
func DisplayRows(transactions []Transaction, customers []Customer) []DisplayRow {
	idx := NewCustomerIndex(customers)
	rows := make([]DisplayRow, 0, len(transactions))
	for _, t := range transactions {
		name, ok := idx.Name(t.CustomerID)
		rows = append(rows, DisplayRow{
			ID:           t.ID,
			CustomerID:   t.CustomerID,
			CustomerName: name,
			Resolved:     ok,
			Date:         t.Date,
			Amount:       t.Amount,
			AmountText:   FormatAmount(t.Amount),
		})
	}
	return rows
}

type (
	// LineChart mirrors the Chart.js "data" object for a line chart.
	LineChart struct {
		Labels   []string           `json:"labels"`
		Datasets []LineChartDataset `json:"datasets"`
	}

	LineChartDataset struct {
		Label       string    `json:"label"`
		Data        []float64 `json:"data"`
		Fill        bool      `json:"fill"`
		BorderColor string    `json:"borderColor"`
		Tension     float64   `json:"tension"`
	}
)

// MarshalJSON writes non-finite points as null, see ChartSeries.MarshalJSON.
func (d LineChartDataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label       string     `json:"label"`
		Data        []*float64 `json:"data"`
		Fill        bool       `json:"fill"`
		BorderColor string     `json:"borderColor"`
		Tension     float64    `json:"tension"`
	}{d.Label, finiteOrNull(d.Data), d.Fill, d.BorderColor, d.Tension})
}

// NewLineChart maps a series onto a single-line Chart.js structure.
func NewLineChart(s ChartSeries) LineChart {
	labels := make([]string, len(s.Dates))
	copy(labels, s.Dates)
	data := make([]float64, len(s.Totals))
	copy(data, s.Totals)

	return LineChart{
		Labels: labels,
		Datasets: []LineChartDataset{{
			Label:       ChartSeriesLabel,
			Data:        data,
			Fill:        false,
			BorderColor: ChartBorderColor,
			Tension:     ChartTension,
		}},
	}
}

// ChartTitle is the heading shown above a customer's chart.
func ChartTitle(customerName string) string {
	return "Transaction History for " + customerName
}
