package ltn

// buildConfig mirrors the teacher's Parser functional-options pattern
// (parser.go's WithXxx constructors), generalized to the Map Model
// Builder's tunables instead of a traffic-assignment Parser's.
type buildConfig struct {
	snapCapMeters      float64
	mainRoadPenalty    float64
	maxShortcutsPerPair int
	maxShortcutHops    int
	verbose            bool
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		snapCapMeters:       50,
		mainRoadPenalty:     1,
		maxShortcutsPerPair: 5,
		maxShortcutHops:     40,
		verbose:             false,
	}
}

// BuildOption configures NewProject the way parser.go's functional options
// configure NewParser.
type BuildOption func(*buildConfig)

// WithSnapCapMeters overrides the spatial snap cap referenced by §4.2's
// Snap contract and §9's "spatial snap cap must be exposed as a
// configuration constant" design note.
func WithSnapCapMeters(m float64) BuildOption {
	return func(c *buildConfig) { c.snapCapMeters = m }
}

// WithMainRoadPenalty sets the default main-road penalty multiplier P used
// when callers of Route don't override it.
func WithMainRoadPenalty(p float64) BuildOption {
	return func(c *buildConfig) { c.mainRoadPenalty = p }
}

// WithMaxShortcutsPerPair caps K in the shortcut enumeration (§4.4.5,
// §9 "Shortcut enumeration is expensive; cap K and path length").
func WithMaxShortcutsPerPair(k int) BuildOption {
	return func(c *buildConfig) { c.maxShortcutsPerPair = k }
}

// WithMaxShortcutHops caps the path length explored by the K-shortest-path
// search per border-intersection pair.
func WithMaxShortcutHops(n int) BuildOption {
	return func(c *buildConfig) { c.maxShortcutHops = n }
}

// WithVerbose toggles the teacher's fmt.Printf-based progress logging.
func WithVerbose(v bool) BuildOption {
	return func(c *buildConfig) { c.verbose = v }
}
