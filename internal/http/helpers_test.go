package http

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"

	"txdash/internal/core"
)

func TestParseCustomerID(t *testing.T) {
	ds := core.Dataset{Customers: []core.Customer{{ID: "1", Name: "Alice"}, {ID: "007", Name: "Bond"}}}
	tests := []struct {
		raw     string
		want    core.ID
		wantErr error
	}{
		{"1", "1", nil},
		{" 1.0 ", "1", nil},
		{"007", "007", nil},
		{"c-7", "c-7", nil},
		{"NaN", "NaN", nil},
		{"", "", errMissingCustomerID},
		{"   ", "", errMissingCustomerID},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ui/chart?customer_id="+url.QueryEscape(tt.raw), nil)
		got, err := parseCustomerID(r, ds)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%q: err = %v, want %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFilterKeyFoldsCase(t *testing.T) {
	if newFilterKey(3, "ALICE") != newFilterKey(3, "alice") {
		t.Error("keys differing only by case should be equal")
	}
	if newFilterKey(3, "alice") == newFilterKey(4, "alice") {
		t.Error("keys from different dataset versions should differ")
	}
}
