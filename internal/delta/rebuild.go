package delta

import "github.com/nativescript-oss/livesync/pkg/pkgmodel"

// Rebuild runs the full rebuild cycle for platform: BuildDelta,
// RebuildDelta against what's already on disk, then Apply. It returns the
// applied delta so callers can check ChangedScripts (spec §4.4's build
// vs. no-op distinction).
func (p *Planner) Rebuild(graph *pkgmodel.Graph, platform pkgmodel.Platform) (*Delta, error) {
	desired := p.BuildDelta(graph, platform)
	applied, err := p.RebuildDelta(desired)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(applied); err != nil {
		return nil, err
	}
	return applied, nil
}
