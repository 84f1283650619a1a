// Package registry holds the immutable country identity tables: display names,
// NOC codes and region codes. A Registry is built once and shared read-only.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	_ "embed"

	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"
)

//go:embed countries.json5
var embeddedTables []byte

// Tables is the raw form of a Registry.
type Tables struct {
	Names   map[string]string `json:"names"`
	Nocs    map[string]string `json:"nocs"`
	Regions map[string]string `json:"regions"`
}

type Registry struct {
	nameToNoc   map[string]string
	nocToName   map[string]string
	nocToRegion map[string]string
	// display names ordered longest first so that longer names win substring matches
	names []string
}

// New copies the given tables into a Registry.
func New(tables Tables) *Registry {
	r := &Registry{
		nameToNoc:   make(map[string]string, len(tables.Names)),
		nocToName:   make(map[string]string, len(tables.Nocs)),
		nocToRegion: make(map[string]string, len(tables.Regions)),
	}
	for name, noc := range tables.Names {
		r.nameToNoc[name] = noc
		r.names = append(r.names, name)
	}
	for noc, name := range tables.Nocs {
		r.nocToName[noc] = name
	}
	for noc, region := range tables.Regions {
		r.nocToRegion[noc] = region
	}

	sort.Slice(r.names, func(i, j int) bool {
		li := utf8.RuneCountInString(r.names[i])
		lj := utf8.RuneCountInString(r.names[j])
		if li != lj {
			return li > lj
		}
		return r.names[i] < r.names[j]
	})

	return r
}

// Parse builds a Registry out of json5 encoded tables.
func Parse(data []byte) (*Registry, error) {
	var tables Tables
	err := json5.Unmarshal(data, &tables)
	if err != nil {
		return nil, fmt.Errorf("parse country tables: %w", err)
	}
	return New(tables), nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded country tables.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(embeddedTables)
		if err != nil {
			panic(err)
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

func (r *Registry) NameToNoc(name string) (string, bool) {
	noc, ok := r.nameToNoc[name]
	return noc, ok
}

func (r *Registry) NocToName(noc string) (string, bool) {
	name, ok := r.nocToName[noc]
	return name, ok
}

func (r *Registry) NocToRegion(noc string) (string, bool) {
	region, ok := r.nocToRegion[noc]
	return region, ok
}

// IsKnown reports whether the NOC has a region code, which is what makes it a real NOC.
func (r *Registry) IsKnown(noc string) bool {
	_, ok := r.nocToRegion[noc]
	return ok
}

// Names returns every display name, longest first.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Suggest returns the display name most similar to name and its Jaro-Winkler similarity.
func (r *Registry) Suggest(name string) (string, float64) {
	var best string
	var bestScore float64
	for _, candidate := range r.names {
		score := matchr.JaroWinkler(name, candidate, false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}
