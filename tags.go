package ltn

import "github.com/paulmach/osm"

// Tags is a thin, query-friendly wrapper around osm.Tags, giving the
// classification code in mapmodel.go and loader.go a consistent
// is/has/is-any vocabulary instead of scattering TagMap.Find calls.
type Tags osm.Tags

func (t Tags) Find(key string) string {
	return osm.Tags(t).Find(key)
}

func (t Tags) Has(key string) bool {
	return t.Find(key) != ""
}

func (t Tags) Is(key, value string) bool {
	return t.Find(key) == value
}

func (t Tags) IsAny(key string, values ...string) bool {
	v := t.Find(key)
	for _, want := range values {
		if v == want {
			return true
		}
	}
	return false
}

var (
	junctionTypes = map[string]struct{}{
		"circular":   {},
		"roundabout": {},
	}

	negligibleHighwayTags = map[string]struct{}{
		"path":         {},
		"construction": {},
		"proposed":     {},
		"raceway":      {},
		"bridleway":    {},
		"rest_area":    {},
		"road":         {},
		"abandoned":    {},
		"planned":      {},
		"trailhead":    {},
		"stairs":       {},
		"dismantled":   {},
		"disused":      {},
		"razed":        {},
		"access":       {},
		"corridor":     {},
		"stop":         {},
	}

	// See ref.: https://wiki.openstreetmap.org/wiki/Tag:oneway%3Dreversible
	onewayReversible = map[string]struct{}{
		"reversible":  {},
		"alternating": {},
	}

	// barrierTagsAsNoEntry mirrors scrape.rs: every barrier=* value becomes
	// a NoEntry modal filter at build time except "gate", which is assumed
	// openable and not scraped as a baseline filter.
	barrierTagsExcluded = map[string]struct{}{
		"gate": {},
	}
)
