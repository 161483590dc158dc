package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"txdash/internal/core"
)

// parseCustomers converts a values matrix with an id/name header row.
// Rows without an id are skipped.
func parseCustomers(values [][]interface{}) ([]core.Customer, error) {
	out := []core.Customer{}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, "id")
	colName := indexOf(headers, "name")
	if colID == -1 || colName == -1 {
		return nil, fmt.Errorf("unexpected customers header: want id,name; got headers=%v", headers)
	}
	for _, row := range values[1:] {
		id, ok := cellID(safeCell(row, colID))
		if !ok {
			continue
		}
		out = append(out, core.Customer{ID: id, Name: cellString(safeCell(row, colName))})
	}
	return out, nil
}

// parseTransactions converts a values matrix with an
// id/customer_id/date/amount header row. Incomplete rows are skipped.
func parseTransactions(values [][]interface{}) ([]core.Transaction, error) {
	out := []core.Transaction{}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	cols := map[string]int{}
	var missing []string
	for _, h := range []string{"id", "customer_id", "date", "amount"} {
		cols[h] = indexOf(headers, h)
		if cols[h] == -1 {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected transactions header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	for _, row := range values[1:] {
		id, ok := cellID(safeCell(row, cols["id"]))
		if !ok {
			continue
		}
		cust, ok := cellID(safeCell(row, cols["customer_id"]))
		if !ok {
			continue
		}
		date := cellString(safeCell(row, cols["date"]))
		if date == "" {
			continue
		}
		amount, ok := cellAmount(safeCell(row, cols["amount"]))
		if !ok {
			continue
		}
		out = append(out, core.Transaction{ID: id, CustomerID: cust, Date: date, Amount: amount})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(v, target) {
			return i
		}
	}
	return -1
}

func safeCell(row []interface{}, idx int) interface{} {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return nil
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return core.FormatAmount(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func cellID(v interface{}) (core.ID, bool) {
	s := cellString(v)
	if s == "" {
		return "", false
	}
	return core.ID(s), true
}

func cellAmount(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
