package pkgmodel

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Register resolves a name collision against whatever is already in
// Dependencies and records the winner, implementing spec §4.1 step 5's
// tie-break rule: the higher semver version wins; ties favor the
// incumbent. PackageGraph's node_modules traversal registers every
// non-app candidate through it; FileInventory's nested-package discovery
// does not use it and applies its own collision rule instead.
//
// Register returns the Package that ended up ShadowedByDiverged, or nil if
// p simply claimed a free name.
func (g *Graph) Register(p *Package) *Package {
	incumbent, exists := g.Dependencies[p.Name]
	if !exists {
		p.Availability = Available
		g.Dependencies[p.Name] = p
		return nil
	}

	if compareVersions(p.Version, incumbent.Version) > 0 {
		incumbent.Availability = ShadowedByDiverged
		p.Availability = Available
		g.Dependencies[p.Name] = p
		return incumbent
	}

	p.Availability = ShadowedByDiverged
	return p
}

// compareVersions is semver.Compare over version strings that may omit the
// required "v" prefix (package.json versions never carry one), backed by
// golang.org/x/mod/semver for the total order spec §4.1 requires.
func compareVersions(a, b string) int {
	return semver.Compare(normalizeVersion(a), normalizeVersion(b))
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "v0.0.0"
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
