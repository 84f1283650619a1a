package medals

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNewRow(t *testing.T) {
	row, err := NewRow("Norway", "NOR", 3, 2, 1, 6)
	require.NoError(t, err)
	require.Equal(t, Row{Country: "Norway", Noc: "NOR", Gold: 3, Silver: 2, Bronze: 1, Total: 6}, row)

	_, err = NewRow("Norway", "NOR", 3, 2, 1, 7)
	require.True(t, errors.Is(err, ErrTotalMismatch))

	_, err = NewRow("Norway", "NOR", -1, 2, 1, 2)
	require.True(t, errors.Is(err, ErrNegativeCount))
}

func TestSort(t *testing.T) {
	rows := []Row{
		{Country: "Austria", Gold: 1, Silver: 1, Bronze: 1, Total: 3},
		{Country: "Norway", Gold: 5, Silver: 0, Bronze: 0, Total: 5},
		{Country: "Canada", Gold: 2, Silver: 1, Bronze: 0, Total: 3},
		{Country: "Belgium", Gold: 1, Silver: 1, Bronze: 1, Total: 3},
		{Country: "Japan", Gold: 2, Silver: 0, Bronze: 1, Total: 3},
		{Country: "Italy", Gold: 0, Silver: 0, Bronze: 9, Total: 9},
	}
	Sort(rows)

	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Country
	}
	expected := []string{"Italy", "Norway", "Canada", "Japan", "Austria", "Belgium"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortOrderingProperty(t *testing.T) {
	rndm := rand.New(rand.NewSource(42))
	countries := []string{"Austria", "Canada", "France", "Germany", "Italy", "Japan", "Norway", "Sweden"}

	rows := make([]Row, 200)
	for i := range rows {
		g, s, b := rndm.Intn(4), rndm.Intn(4), rndm.Intn(4)
		rows[i] = Row{
			Country: countries[rndm.Intn(len(countries))],
			Gold:    g,
			Silver:  s,
			Bronze:  b,
			Total:   g + s + b,
		}
	}
	Sort(rows)

	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		require.LessOrEqual(t, Compare(a, b), 0)
		if a.Total != b.Total {
			require.Greater(t, a.Total, b.Total)
			continue
		}
		if a.Gold != b.Gold {
			require.Greater(t, a.Gold, b.Gold)
			continue
		}
		if a.Silver != b.Silver {
			require.Greater(t, a.Silver, b.Silver)
			continue
		}
		if a.Bronze != b.Bronze {
			require.Greater(t, a.Bronze, b.Bronze)
			continue
		}
		require.LessOrEqual(t, a.Country, b.Country)
	}
}

func TestDedupe(t *testing.T) {
	rows := []Row{
		{Country: "Norway", Noc: "NOR", Gold: 1, Total: 1},
		{Country: "Sweden", Noc: "SWE", Gold: 2, Total: 2},
		{Country: "Norway", Noc: "NOR", Gold: 4, Total: 4},
		{Country: "Norway", Noc: "NOR", Gold: 3, Total: 3},
		{Country: "Sweden", Noc: "SWE", Silver: 2, Total: 2},
	}

	expected := []Row{
		{Country: "Norway", Noc: "NOR", Gold: 4, Total: 4},
		{Country: "Sweden", Noc: "SWE", Gold: 2, Total: 2},
	}
	if diff := cmp.Diff(expected, Dedupe(rows)); diff != "" {
		t.Fatalf("dedupe mismatch (-want +got):\n%s", diff)
	}

	expectedFirst := []Row{
		{Country: "Norway", Noc: "NOR", Gold: 1, Total: 1},
		{Country: "Sweden", Noc: "SWE", Gold: 2, Total: 2},
	}
	if diff := cmp.Diff(expectedFirst, KeepFirst(rows)); diff != "" {
		t.Fatalf("keep first mismatch (-want +got):\n%s", diff)
	}
}
