package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DecodeReport counts records that were skipped or coerced while decoding.
type DecodeReport struct {
	SkippedCustomers    int
	SkippedTransactions int
	CoercedAmounts      int
	BlankedNames        int // customer names that were present but not strings
}

// Skipped returns the total number of dropped records.
func (r DecodeReport) Skipped() int {
	return r.SkippedCustomers + r.SkippedTransactions
}

type rawPayload struct {
	Customers    json.RawMessage `json:"customers"`
	Transactions json.RawMessage `json:"transactions"`
}

// DecodeDataset reads a /api/data payload into typed records.
//
// Only a payload that is not a JSON object (or whose collections are not
// arrays) is an error. Individual records are handled defensively:
// customers without an id and transactions without id, customer_id, date
// or a numeric amount are skipped; amounts sent as numeric strings are
// coerced; a missing or null customer name decodes as empty, and a name of
// any other non-string type is blanked and counted in BlankedNames.
func DecodeDataset(r io.Reader) (Dataset, DecodeReport, error) {
	var report DecodeReport

	var payload rawPayload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return Dataset{}, report, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	customers, err := rawArray(payload.Customers)
	if err != nil {
		return Dataset{}, report, fmt.Errorf("%w: customers: %v", ErrMalformedInput, err)
	}
	transactions, err := rawArray(payload.Transactions)
	if err != nil {
		return Dataset{}, report, fmt.Errorf("%w: transactions: %v", ErrMalformedInput, err)
	}

	ds := Dataset{
		Customers:    make([]Customer, 0, len(customers)),
		Transactions: make([]Transaction, 0, len(transactions)),
	}

	for _, raw := range customers {
		c, blanked, ok := decodeCustomer(raw)
		if !ok {
			report.SkippedCustomers++
			continue
		}
		if blanked {
			report.BlankedNames++
		}
		ds.Customers = append(ds.Customers, c)
	}

	for _, raw := range transactions {
		t, coerced, ok := decodeTransaction(raw)
		if !ok {
			report.SkippedTransactions++
			continue
		}
		if coerced {
			report.CoercedAmounts++
		}
		ds.Transactions = append(ds.Transactions, t)
	}

	return ds, report, nil
}

func rawArray(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func rawObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// decodeCustomer reports blanked when a name was sent with a type other
// than string or null.
func decodeCustomer(raw json.RawMessage) (c Customer, blanked, ok bool) {
	fields, ok := rawObject(raw)
	if !ok {
		return Customer{}, false, false
	}
	id, err := ParseID(fields["id"])
	if err != nil {
		return Customer{}, false, false
	}
	var name string
	if v, present := fields["name"]; present {
		if err := json.Unmarshal(v, &name); err != nil {
			name = ""
			blanked = true
		}
	}
	return Customer{ID: id, Name: name}, blanked, true
}

func decodeTransaction(raw json.RawMessage) (Transaction, bool, bool) {
	fields, ok := rawObject(raw)
	if !ok {
		return Transaction{}, false, false
	}
	id, err := ParseID(fields["id"])
	if err != nil {
		return Transaction{}, false, false
	}
	customerID, err := ParseID(fields["customer_id"])
	if err != nil {
		return Transaction{}, false, false
	}
	var date string
	if err := json.Unmarshal(fields["date"], &date); err != nil || strings.TrimSpace(date) == "" {
		return Transaction{}, false, false
	}
	amount, coerced, err := parseAmount(fields["amount"])
	if err != nil {
		return Transaction{}, false, false
	}
	return Transaction{ID: id, CustomerID: customerID, Date: date, Amount: amount}, coerced, true
}

// parseAmount accepts a JSON number or a string holding one.
func parseAmount(raw json.RawMessage) (float64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, ErrInvalidAmount
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, ErrInvalidAmount
		}
		return f, true, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false, ErrInvalidAmount
	}
	return f, false, nil
}
