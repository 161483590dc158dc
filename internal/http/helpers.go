package http

import (
	"errors"
	"net/http"
	"strings"

	"txdash/internal/core"
)

var errMissingCustomerID = errors.New("customer_id is required")

// parseCustomerID reads customer_id from the query string and resolves it
// against ds: an exact id wins, numeric text falls back to the canonical
// JSON number form.
func parseCustomerID(r *http.Request, ds core.Dataset) (core.ID, error) {
	id := ds.ResolveID(r.URL.Query().Get("customer_id"))
	if id == "" {
		return "", errMissingCustomerID
	}
	return id, nil
}

// filterKey identifies a cached filter result. Filtering is case-insensitive,
// so the query is stored folded.
type filterKey struct {
	version uint64
	query   string
}

func newFilterKey(version uint64, query string) filterKey {
	return filterKey{version: version, query: strings.ToLower(query)}
}

type chartKey struct {
	version    uint64
	customerID core.ID
}
