package medals

import (
	"encoding/json"
	"math"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/telemetry"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const report_normalizer_unresolved = "normalizer.unresolved-country"

var (
	goldKeys    = []string{"gold", "g", "medalsGold"}
	silverKeys  = []string{"silver", "s", "medalsSilver"}
	bronzeKeys  = []string{"bronze", "b", "medalsBronze"}
	countryKeys = []string{"country", "name", "team", "nocName"}
	nocKeys     = []string{"noc", "code", "nocCode", "countryCode"}
)

// eventKeywords never appear in a country name but are common in event titles that sit
// next to country totals in page data.
var eventKeywords = []string{
	"ski",
	"snowboard",
	"biathlon",
	"curling",
	"bobsleigh",
	"luge",
	"skeleton",
	"hockey",
	"skating",
	"freestyle",
	"women",
	"men",
	"mixed",
	"relay",
	"final",
	"qualification",
	"event",
}

// IsLikelyEventName reports whether value reads like an event title instead of a country.
func IsLikelyEventName(value string) bool {
	text := strings.ToLower(value)
	for _, keyword := range eventKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

var parentheticalRegex = regexp.MustCompile(`\s*\([^)]+\)\s*`)

// SanitizeCountryName drops parenthetical annotations, turns underscores into spaces
// and collapses whitespace.
func SanitizeCountryName(raw string) string {
	name := norm.NFKC.String(raw)
	name = parentheticalRegex.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.Join(strings.Fields(name), " ")
}

var nocShapeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Normalizer turns loosely typed records into validated rows.
type Normalizer struct {
	lookup Lookup
	tel    telemetry.API
}

func NewNormalizer(lookup Lookup, tel telemetry.API) Normalizer {
	assert.NotNil(lookup)
	assert.NotNil(tel)
	return Normalizer{lookup: lookup, tel: tel}
}

// Normalize returns the valid rows among records, in input order. Anything that is not
// an object, or does not describe a known country with at least one medal, is dropped.
func (n Normalizer) Normalize(records []any) []Row {
	var out []Row
	for _, record := range records {
		object, ok := record.(map[string]any)
		if !ok {
			continue
		}
		row, ok := n.NormalizeRecord(object)
		if !ok {
			continue
		}
		out = append(out, row)
	}
	return out
}

// NormalizeRecord validates a single record.
func (n Normalizer) NormalizeRecord(record map[string]any) (Row, bool) {
	gold, goldOk := coerceCount(firstPresent(record, goldKeys))
	silver, silverOk := coerceCount(firstPresent(record, silverKeys))
	bronze, bronzeOk := coerceCount(firstPresent(record, bronzeKeys))

	rawCountry, _ := firstPresent(record, countryKeys)
	country := SanitizeCountryName(stringify(rawCountry))

	rawNoc, _ := firstPresent(record, nocKeys)
	code := strings.ToUpper(strings.TrimSpace(stringify(rawNoc)))

	noc := n.resolveNoc(country, code)
	if country == "" && noc != "" {
		country, _ = n.lookup.NocToName(noc)
	}

	if country == "" || !goldOk || !silverOk || !bronzeOk || noc == "" {
		if country != "" && noc == "" {
			n.reportUnresolved(country)
		}
		return Row{}, false
	}
	if IsLikelyEventName(country) {
		return Row{}, false
	}

	if canonical, ok := n.lookup.NocToName(noc); ok {
		country = canonical
	}
	row, err := NewRow(country, noc, gold, silver, bronze, gold+silver+bronze)
	if err != nil || row.Total == 0 {
		return Row{}, false
	}
	return row, true
}

func (n Normalizer) resolveNoc(country, code string) string {
	if nocShapeRegex.MatchString(code) {
		if _, known := n.lookup.NocToRegion(code); known {
			return code
		}
	}
	noc, _ := n.lookup.NameToNoc(country)
	return noc
}

type suggester interface {
	Suggest(name string) (string, float64)
}

// reportUnresolved surfaces names that look like a misspelt country, they are still dropped.
func (n Normalizer) reportUnresolved(country string) {
	s, ok := n.lookup.(suggester)
	if !ok || IsLikelyEventName(country) {
		return
	}
	suggestion, score := s.Suggest(country)
	if score >= 0.9 {
		n.tel.ReportDebug(report_normalizer_unresolved, country, suggestion, score)
	}
}

// firstPresent returns the value of the first key that is present and not null.
func firstPresent(record map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		value, ok := record[key]
		if ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

// coerceCount converts a medal count the way a lenient number cast would: absent is 0,
// numeric strings are parsed, booleans are 0 or 1. Counts must end up non-negative
// whole numbers.
func coerceCount(value any, present bool) (int, bool) {
	if !present {
		return 0, true
	}

	var number float64
	switch v := value.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, false
		}
		number = parsed
	case float64:
		number = v
	case float32:
		number = float64(v)
	case int:
		number = float64(v)
	case int64:
		number = float64(v)
	case bool:
		if v {
			number = 1
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		number = parsed
	default:
		return 0, false
	}

	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	if number < 0 || number != math.Trunc(number) || number > math.MaxInt32 {
		return 0, false
	}
	return int(number), true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
