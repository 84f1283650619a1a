// Package extract recovers medal rows from fetched page content. Each Strategy looks at
// the same content differently: embedded page state, text lines naming a country, or
// rows tagged with a NOC code.
package extract

import (
	"context"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/medals"
)

// MinTableRows is how many valid rows an array needs before it is taken to be the
// medal table rather than an incidental list.
const MinTableRows = 5

const (
	StrategyStructured  = "structured"
	StrategyLineKeyword = "line-keyword"
	StrategyTaggedRow   = "tagged-row"
)

// Registry is the country registry as the extractors need it.
type Registry interface {
	medals.Lookup
	IsKnown(noc string) bool
	Names() []string
}

type Strategy interface {
	Name() string
	// Extract returns deduplicated rows sorted in medal table order.
	Extract(ctx context.Context, content string) []medals.Row
}

// Default returns every strategy, in the order they are tried.
func Default(reg Registry, tel telemetry.API) []Strategy {
	return []Strategy{
		NewStructured(reg, tel),
		NewLineKeyword(reg, tel),
		NewTaggedRow(reg, tel),
	}
}

func knownOnly(reg Registry, rows []medals.Row) []medals.Row {
	out := make([]medals.Row, 0, len(rows))
	for _, row := range rows {
		if row.Valid(reg) {
			out = append(out, row)
		}
	}
	return out
}
