package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

type (
	// ID identifies customers and transactions. Numeric and string ids
	// are both kept as their canonical text, so 7 and "7" are equal.
	ID string

	Customer struct {
		ID   ID     `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID         ID      `json:"id"`
		CustomerID ID      `json:"customer_id"`
		Date       string  `json:"date"` // compared by exact string equality
		Amount     float64 `json:"amount"`
	}

	// Dataset is the payload served at /api/data.
	Dataset struct {
		Customers    []Customer    `json:"customers"`
		Transactions []Transaction `json:"transactions"`
	}
)

var (
	// ErrFetchFailure marks any failure to retrieve or parse the dataset.
	ErrFetchFailure = errors.New("fetch failure")

	ErrEmptyID        = errors.New("empty id")
	ErrInvalidID      = errors.New("invalid id")
	ErrEmptyDate      = errors.New("empty date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrMalformedInput = errors.New("malformed dataset payload")
)

// ParseID converts a raw JSON value (number or string) into an ID.
func ParseID(raw json.RawMessage) (ID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrEmptyID
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", ErrInvalidID
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", ErrEmptyID
		}
		return ID(s), nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return "", ErrInvalidID
	}
	return ID(FormatAmount(f)), nil
}

func (id ID) String() string { return string(id) }

// IsNumeric reports whether the id round-trips as a JSON number.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	f, err := strconv.ParseFloat(string(id), 64)
	return err == nil && FormatAmount(f) == string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (c Customer) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.ID == "" || t.CustomerID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	return nil
}

// IsEmpty reports whether the dataset has no customers and no transactions.
func (d Dataset) IsEmpty() bool {
	return len(d.Customers) == 0 && len(d.Transactions) == 0
}

// CustomerName resolves a customer id; the first customer with the id wins.
func (d Dataset) CustomerName(id ID) (string, bool) {
	for _, c := range d.Customers {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

// ResolveID maps id text from a URL or command line onto the dataset.
// Text naming a customer, or a transaction's customer, exactly is kept
// as is, so the string id "007" stays "007". Otherwise numeric text is
// canonicalised like a decoded JSON number and "1.0" selects customer 1.
func (d Dataset) ResolveID(raw string) ID {
	id := ID(strings.TrimSpace(raw))
	if id == "" || d.hasCustomerID(id) {
		return id
	}
	f, err := strconv.ParseFloat(string(id), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return id
	}
	return ID(FormatAmount(f))
}

func (d Dataset) hasCustomerID(id ID) bool {
	for _, c := range d.Customers {
		if c.ID == id {
			return true
		}
	}
	for _, t := range d.Transactions {
		if t.CustomerID == id {
			return true
		}
	}
	return false
}

// Normalized returns a copy with nil collections replaced by empty ones,
// so the JSON encoding always carries arrays.
func (d Dataset) Normalized() Dataset {
	out := Dataset{
		Customers:    make([]Customer, len(d.Customers)),
		Transactions: make([]Transaction, len(d.Transactions)),
	}
	copy(out.Customers, d.Customers)
	copy(out.Transactions, d.Transactions)
	return out
}
