// Package medals defines the medal table row and the rules that turn loosely typed
// scraped records into validated rows.
package medals

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeCount = errors.New("medal count is negative")
	ErrTotalMismatch = errors.New("total is not gold + silver + bronze")
)

// Row is one country's line in the medal table.
type Row struct {
	Country string `json:"country"`
	Noc     string `json:"noc"`
	Gold    int    `json:"gold"`
	Silver  int    `json:"silver"`
	Bronze  int    `json:"bronze"`
	Total   int    `json:"total"`
}

// NewRow constructs a row, rejecting negative counts and totals that do not add up.
func NewRow(country, noc string, gold, silver, bronze, total int) (Row, error) {
	if gold < 0 || silver < 0 || bronze < 0 || total < 0 {
		return Row{}, ErrNegativeCount
	}
	if gold+silver+bronze != total {
		return Row{}, fmt.Errorf("%w: %d + %d + %d != %d", ErrTotalMismatch, gold, silver, bronze, total)
	}
	return Row{
		Country: country,
		Noc:     noc,
		Gold:    gold,
		Silver:  silver,
		Bronze:  bronze,
		Total:   total,
	}, nil
}

// Key identifies a row for deduplication.
func (r Row) Key() string {
	return r.Country + "|" + r.Noc
}

// Lookup is the part of the country registry rows are validated against.
type Lookup interface {
	NameToNoc(name string) (string, bool)
	NocToName(noc string) (string, bool)
	NocToRegion(noc string) (string, bool)
}

// Valid reports whether the row holds the total invariant and names a known NOC.
func (r Row) Valid(lookup Lookup) bool {
	if r.Gold < 0 || r.Silver < 0 || r.Bronze < 0 {
		return false
	}
	if r.Gold+r.Silver+r.Bronze != r.Total {
		return false
	}
	_, known := lookup.NocToRegion(r.Noc)
	return known
}
