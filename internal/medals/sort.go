package medals

import (
	"cmp"
	"slices"
)

// Compare orders rows the way a medal table is ranked: total, gold, silver and bronze
// descending, then country name ascending.
func Compare(a, b Row) int {
	if c := cmp.Compare(b.Total, a.Total); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Gold, a.Gold); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Silver, a.Silver); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Bronze, a.Bronze); c != 0 {
		return c
	}
	return cmp.Compare(a.Country, b.Country)
}

// Sort sorts rows in place by Compare.
func Sort(rows []Row) {
	slices.SortStableFunc(rows, Compare)
}

// Dedupe keeps one row per (country, noc), preferring the highest total, the first
// occurrence wins ties. The order of first appearance is preserved.
func Dedupe(rows []Row) []Row {
	index := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		i, seen := index[row.Key()]
		if !seen {
			index[row.Key()] = len(out)
			out = append(out, row)
			continue
		}
		if out[i].Total < row.Total {
			out[i] = row
		}
	}
	return out
}

// KeepFirst keeps the first row seen for each (country, noc).
func KeepFirst(rows []Row) []Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.Key()]; ok {
			continue
		}
		seen[row.Key()] = struct{}{}
		out = append(out, row)
	}
	return out
}
