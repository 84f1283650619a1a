package extract

import (
	"context"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/medals"
	"medaltable/internal/registry"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLineKeywordParseLine(t *testing.T) {
	l := NewLineKeyword(registry.Default(), telemetry.NewRecorder())

	cases := []struct {
		line     string
		expected medals.Row
		ok       bool
	}{
		{
			line:     "Norway 10 5 3 18",
			expected: medals.Row{Country: "Norway", Noc: "NOR", Gold: 10, Silver: 5, Bronze: 3, Total: 18},
			ok:       true,
		},
		{
			line:     "USA United States 10 5 3 18",
			expected: medals.Row{Country: "United States", Noc: "USA", Gold: 10, Silver: 5, Bronze: 3, Total: 18},
			ok:       true,
		},
		{
			line:     "| Czech Republic | 1 | 0 | 2 | 3 |",
			expected: medals.Row{Country: "Czechia", Noc: "CZE", Gold: 1, Silver: 0, Bronze: 2, Total: 3},
			ok:       true,
		},
		{
			line:     "switzerland 2 2 2 6",
			expected: medals.Row{Country: "Switzerland", Noc: "SUI", Gold: 2, Silver: 2, Bronze: 2, Total: 6},
			ok:       true,
		},
		// the total does not add up
		{line: "Norway 10 5 3 17"},
		// not enough numbers
		{line: "Norway 10 5 3"},
		// no medals at all
		{line: "Norway 0 0 0 0"},
		// no country
		{line: "Atlantis 1 1 1 3"},
		// the first country is used and its numbers do not add up
		{line: "1 Norway 10 5 3 18"},
	}

	for _, test := range cases {
		row, ok := l.ParseLine(test.line)
		require.Equal(t, test.ok, ok, test.line)
		if diff := cmp.Diff(test.expected, row); diff != "" {
			t.Fatalf("%q: row mismatch (-want +got):\n%s", test.line, diff)
		}
	}
}

func TestLineKeywordPrefersLongerNames(t *testing.T) {
	reg := registry.New(registry.Tables{
		Names:   map[string]string{"Korea": "PRK", "South Korea": "KOR"},
		Nocs:    map[string]string{"PRK": "North Korea", "KOR": "South Korea"},
		Regions: map[string]string{"PRK": "KP", "KOR": "KR"},
	})
	l := NewLineKeyword(reg, telemetry.NewRecorder())

	name, ok := l.MatchCountry("south korea 1 2 3 6")
	require.True(t, ok)
	require.Equal(t, "South Korea", name)

	row, ok := l.ParseLine("South Korea 1 2 3 6")
	require.True(t, ok)
	require.Equal(t, "KOR", row.Noc)

	row, ok = l.ParseLine("Korea DPR 1 0 0 1")
	require.True(t, ok)
	require.Equal(t, "PRK", row.Noc)
	require.Equal(t, "North Korea", row.Country)
}

func TestLineKeywordExtract(t *testing.T) {
	l := NewLineKeyword(registry.Default(), telemetry.NewRecorder())

	content := `Milano Cortina 2026 medal table
Norway 1 0 0 1
Sweden 2 2 2 6
Norway 9 9 9 27
Italy 3 1 1 5
Updated 2026-02-10`

	expected := []medals.Row{
		{Country: "Sweden", Noc: "SWE", Gold: 2, Silver: 2, Bronze: 2, Total: 6},
		{Country: "Italy", Noc: "ITA", Gold: 3, Silver: 1, Bronze: 1, Total: 5},
		{Country: "Norway", Noc: "NOR", Gold: 1, Silver: 0, Bronze: 0, Total: 1},
	}
	if diff := cmp.Diff(expected, l.Extract(context.Background(), content)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLineKeywordExtractFromMarkup(t *testing.T) {
	l := NewLineKeyword(registry.Default(), telemetry.NewRecorder())

	content := `<table>
<tr><th>Team</th><th>G</th><th>S</th><th>B</th><th>Total</th></tr>
<tr><td>Norway</td><td>10</td><td>5</td><td>3</td><td>18</td></tr>
<tr><td>Austria</td><td>4</td><td>4</td><td>1</td><td>9</td></tr>
</table>`

	rows := l.Extract(context.Background(), content)
	require.Len(t, rows, 2)
	require.Equal(t, "Norway", rows[0].Country)
	require.Equal(t, 18, rows[0].Total)
	require.Equal(t, "Austria", rows[1].Country)
	require.Equal(t, 9, rows[1].Total)
}

func TestParseIntegers(t *testing.T) {
	numbers, ok := ParseIntegers("a12b 3 x45", 0)
	require.True(t, ok)
	require.Equal(t, []int{12, 3, 45}, numbers)

	numbers, ok = ParseIntegers("a12b 3 x45", 2)
	require.True(t, ok)
	require.Equal(t, []int{12, 3}, numbers)

	numbers, ok = ParseIntegers("none", 4)
	require.True(t, ok)
	require.Empty(t, numbers)

	_, ok = ParseIntegers("Norway 99999999999999999999999 1 1 1", 4)
	require.False(t, ok)

	numbers, ok = ParseIntegers("Norway 10 5 3 18 id=12345678901234567890", 4)
	require.True(t, ok)
	require.Equal(t, []int{10, 5, 3, 18}, numbers)

	_, ok = ParseIntegers("Norway 10 5 3 18 id=12345678901234567890", 0)
	require.False(t, ok)
}

func TestParseLineIgnoresTrailingNumbers(t *testing.T) {
	strategy := NewLineKeyword(registry.Default(), telemetry.NewRecorder())

	row, ok := strategy.ParseLine("Norway 10 5 3 18 id=12345678901234567890")
	require.True(t, ok)
	require.Equal(t, "NOR", row.Noc)
	require.Equal(t, "Norway", row.Country)
	require.Equal(t, 10, row.Gold)
	require.Equal(t, 5, row.Silver)
	require.Equal(t, 3, row.Bronze)
	require.Equal(t, 18, row.Total)

	_, ok = strategy.ParseLine("Norway 10 5 99999999999999999999999 18")
	require.False(t, ok)
}
