package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/telemetry"
	"medaltable/internal/htmlutil"
	"medaltable/internal/medals"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_structured_parse_page = "structured.parse-page"
	report_structured_next_data  = "structured.next-data"
)

var tracer = otel.Tracer("medaltable/internal/extract")

var nextDataRegex = regexp.MustCompile(`(?s)__NEXT_DATA__\s*=\s*(\{.*\});?`)

// Structured searches the JSON embedded in a page's script blocks for arrays that
// look like a medal table.
type Structured struct {
	reg        Registry
	normalizer medals.Normalizer
	tel        telemetry.API
}

func NewStructured(reg Registry, tel telemetry.API) *Structured {
	assert.NotNil(reg)
	assert.NotNil(tel)
	return &Structured{
		reg:        reg,
		normalizer: medals.NewNormalizer(reg, tel),
		tel:        tel,
	}
}

func (s *Structured) Name() string {
	return StrategyStructured
}

func (s *Structured) Extract(ctx context.Context, content string) []medals.Row {
	ctx, span := tracer.Start(ctx, "Structured.Extract")
	defer span.End()

	doc, err := htmlutil.Parse(content)
	if err != nil {
		s.tel.ReportWarning(report_structured_parse_page, err)
		return nil
	}

	var collected []medals.Row
	for _, block := range htmlutil.ScriptBlocks(ctx, doc) {
		if strings.HasPrefix(block, "{") || strings.HasPrefix(block, "[") {
			value, err := decodeJSON(block)
			if err == nil {
				collected = append(collected, s.Walk(value)...)
			}
		}

		groups := nextDataRegex.FindStringSubmatch(block)
		if len(groups) < 2 {
			continue
		}
		value, err := s.decodeNextData(groups[1])
		if err != nil {
			s.tel.ReportDebug(report_structured_next_data, err)
			continue
		}
		collected = append(collected, s.Walk(value)...)
	}

	rows := knownOnly(s.reg, medals.Dedupe(collected))
	medals.Sort(rows)

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows
}

func (s *Structured) decodeNextData(raw string) (any, error) {
	value, err := decodeJSON(raw)
	if err == nil {
		return value, nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, errors.Join(err, repairErr)
	}
	return decodeJSON(repaired)
}

// Walk searches node depth first. An array that normalizes into at least MinTableRows
// rows is taken as a medal table and not descended into further, otherwise each of its
// elements is searched. Every value of an object is searched, scalars are ignored.
func (s *Structured) Walk(node any) []medals.Row {
	var out []medals.Row
	s.walk(node, &out)
	return out
}

func (s *Structured) walk(node any, out *[]medals.Row) {
	switch value := node.(type) {
	case []any:
		rows := s.normalizer.Normalize(value)
		if len(rows) >= MinTableRows {
			*out = append(*out, rows...)
			return
		}
		for _, item := range value {
			s.walk(item, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			s.walk(value[key], out)
		}
	}
}

// decodeJSON parses a single JSON value, numbers are kept as json.Number and trailing
// content is an error.
func decodeJSON(raw string) (any, error) {
	decoder := json.NewDecoder(bytes.NewBufferString(raw))
	decoder.UseNumber()

	var value any
	err := decoder.Decode(&value)
	if err != nil {
		return nil, err
	}
	_, err = decoder.Token()
	if err != io.EOF {
		return nil, errors.New("unexpected content after json value")
	}
	return value, nil
}
