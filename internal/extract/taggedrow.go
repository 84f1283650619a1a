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

	"go.opentelemetry.io/otel/attribute"
)

const report_tagged_row_parse_page = "tagged-row.parse-page"

// a NOC code, a country name, then gold, silver, bronze and total
var taggedRowRegex = regexp.MustCompile(
	`\b([A-Z]{3})\b\s+([A-Za-z][A-Za-z .'\-()]{1,60}?)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`,
)

// TaggedRow scans the page's visible text, and then its raw content, for rows of the
// form "NOR Norway 10 5 3 18".
type TaggedRow struct {
	reg Registry
	tel telemetry.API
}

func NewTaggedRow(reg Registry, tel telemetry.API) *TaggedRow {
	assert.NotNil(reg)
	assert.NotNil(tel)
	return &TaggedRow{reg: reg, tel: tel}
}

func (t *TaggedRow) Name() string {
	return StrategyTaggedRow
}

func (t *TaggedRow) Extract(ctx context.Context, content string) []medals.Row {
	ctx, span := tracer.Start(ctx, "TaggedRow.Extract")
	defer span.End()

	text := content
	doc, err := htmlutil.Parse(content)
	if err != nil {
		t.tel.ReportWarning(report_tagged_row_parse_page, err)
	} else {
		text = htmlutil.StripMarkup(ctx, doc) + "\n" + content
	}

	rows := ParseTaggedRows(text, t.reg)
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows
}

// ParseTaggedRows returns the valid tagged rows in text, later duplicates are skipped.
func ParseTaggedRows(text string, reg Registry) []medals.Row {
	var rows []medals.Row
	for _, groups := range taggedRowRegex.FindAllStringSubmatch(text, -1) {
		noc := groups[1]
		if !reg.IsKnown(noc) {
			continue
		}

		var counts [4]int
		valid := true
		for i := range counts {
			n, err := strconv.Atoi(groups[3+i])
			if err != nil {
				valid = false
				break
			}
			counts[i] = n
		}
		if !valid {
			continue
		}

		country := strings.TrimSpace(groups[2])
		if canonical, ok := reg.NocToName(noc); ok {
			country = canonical
		}
		row, err := medals.NewRow(country, noc, counts[0], counts[1], counts[2], counts[3])
		if err != nil || row.Total == 0 {
			continue
		}
		rows = append(rows, row)
	}

	rows = medals.KeepFirst(rows)
	medals.Sort(rows)
	return rows
}
