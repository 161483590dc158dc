package core

import "strings"

// CustomerIndex groups customers by id, keeping input order per id.
type CustomerIndex map[ID][]Customer

func NewCustomerIndex(customers []Customer) CustomerIndex {
	idx := make(CustomerIndex, len(customers))
	for _, c := range customers {
		idx[c.ID] = append(idx[c.ID], c)
	}
	return idx
}

// Name returns the name of the first customer with the given id.
func (idx CustomerIndex) Name(id ID) (string, bool) {
	cs := idx[id]
	if len(cs) == 0 {
		return "", false
	}
	return cs[0].Name, true
}

// nameContains reports whether any customer with the id has a lowercased
// name containing the already lowercased query.
func (idx CustomerIndex) nameContains(id ID, lowered string) bool {
	for _, c := range idx[id] {
		if strings.Contains(strings.ToLower(c.Name), lowered) {
			return true
		}
	}
	return false
}

// Filter returns the transactions whose customer name or amount text
// contains query, case-insensitively. An empty query keeps everything.
// The result is a new slice in input order; inputs are not modified.
func Filter(transactions []Transaction, customers []Customer, query string) []Transaction {
	lowered := strings.ToLower(query)
	idx := NewCustomerIndex(customers)

	out := make([]Transaction, 0, len(transactions))
	for _, t := range transactions {
		if idx.nameContains(t.CustomerID, lowered) || strings.Contains(FormatAmount(t.Amount), lowered) {
			out = append(out, t)
		}
	}
	return out
}
