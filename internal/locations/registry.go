// Package locations holds the allow-list of service locations reviews may
// be filtered by or submitted for.
package locations

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var defaultLocations = []string{
	"albuquerque, new mexico",
	"carlsbad, california",
	"chula vista, california",
	"colorado springs, colorado",
	"denver, colorado",
	"el cajon, california",
	"el paso, texas",
	"escondido, california",
	"fresno, california",
	"la mesa, california",
	"las vegas, nevada",
	"los angeles, california",
	"oceanside, california",
	"phoenix, arizona",
	"sacramento, california",
	"salt lake city, utah",
	"san diego, california",
	"tucson, arizona",
}

// Registry is immutable once built and safe for concurrent reads.
type Registry struct {
	set map[string]struct{}
}

func New(entries ...string) *Registry {
	r := &Registry{set: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if n := Normalize(e); n != "" {
			r.set[n] = struct{}{}
		}
	}
	return r
}

// Default returns the built-in allow-list.
func Default() *Registry { return New(defaultLocations...) }

type fileFormat struct {
	Locations []string `toml:"locations"`
}

// LoadFile reads a TOML file of the form:
//
//	locations = ["denver, colorado", "tucson, arizona"]
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading locations file: %w", err)
	}
	var f fileFormat
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing locations file %s: %w", path, err)
	}
	r := New(f.Locations...)
	if r.Len() == 0 {
		return nil, fmt.Errorf("locations file %s lists no locations", path)
	}
	return r, nil
}

// Normalize trims and lower-cases a location for comparison.
func Normalize(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}

func (r *Registry) IsAllowed(location string) bool {
	_, ok := r.set[Normalize(location)]
	return ok
}

func (r *Registry) Len() int { return len(r.set) }

// Entries returns the canonical entries in sorted order.
func (r *Registry) Entries() []string {
	out := make([]string, 0, len(r.set))
	for k := range r.set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
