package extract

import (
	"context"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/htmlutil"
	"medaltable/internal/medals"
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.opentelemetry.io/otel/attribute"
)

const report_line_keyword_markdown = "line-keyword.markdown"

var integerRegex = regexp.MustCompile(`\d+`)

// LineKeyword reads one row per line of text: the first country name found in the line
// and the first four integers after it.
type LineKeyword struct {
	reg Registry
	tel telemetry.API
	// names and their lowercase forms, longest first
	names   []string
	lowered []string
}

func NewLineKeyword(reg Registry, tel telemetry.API) *LineKeyword {
	assert.NotNil(reg)
	assert.NotNil(tel)

	names := reg.Names()
	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = strings.ToLower(name)
	}
	return &LineKeyword{
		reg:     reg,
		tel:     tel,
		names:   names,
		lowered: lowered,
	}
}

func (l *LineKeyword) Name() string {
	return StrategyLineKeyword
}

func (l *LineKeyword) Extract(ctx context.Context, content string) []medals.Row {
	_, span := tracer.Start(ctx, "LineKeyword.Extract")
	defer span.End()

	lines := splitLines(content)
	if htmlutil.LooksLikeMarkup(content) {
		markdown, err := htmltomarkdown.ConvertString(content)
		if err != nil {
			l.tel.ReportDebug(report_line_keyword_markdown, err)
		} else {
			lines = append(lines, splitLines(markdown)...)
		}
	}

	var rows []medals.Row
	for _, line := range lines {
		row, ok := l.ParseLine(line)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	rows = medals.KeepFirst(rows)
	medals.Sort(rows)

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows
}

// MatchCountry returns the longest registry name contained in line, ignoring case.
func (l *LineKeyword) MatchCountry(line string) (string, bool) {
	lowered := strings.ToLower(line)
	for i, name := range l.lowered {
		if strings.Contains(lowered, name) {
			return l.names[i], true
		}
	}
	return "", false
}

// ParseLine reads a row from a single line. Only the first matching country is
// considered, if its numbers do not add up the line yields nothing.
func (l *LineKeyword) ParseLine(line string) (medals.Row, bool) {
	name, ok := l.MatchCountry(line)
	if !ok {
		return medals.Row{}, false
	}

	numbers, ok := ParseIntegers(line, 4)
	if !ok || len(numbers) < 4 {
		return medals.Row{}, false
	}

	noc, ok := l.reg.NameToNoc(name)
	if !ok || !l.reg.IsKnown(noc) {
		return medals.Row{}, false
	}
	if canonical, ok := l.reg.NocToName(noc); ok {
		name = canonical
	}

	row, err := medals.NewRow(name, noc, numbers[0], numbers[1], numbers[2], numbers[3])
	if err != nil || row.Total == 0 {
		return medals.Row{}, false
	}
	return row, true
}

// ParseIntegers returns the first limit runs of digits in line, or every run when limit
// is not positive. Runs past the limit are never parsed, so only a run that is kept and
// does not fit an int fails the line.
func ParseIntegers(line string, limit int) ([]int, bool) {
	if limit <= 0 {
		limit = -1
	}
	runs := integerRegex.FindAllString(line, limit)
	numbers := make([]int, 0, len(runs))
	for _, run := range runs {
		n, err := strconv.Atoi(run)
		if err != nil {
			return nil, false
		}
		numbers = append(numbers, n)
	}
	return numbers, true
}

func splitLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
