package packagegraph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// rawManifest mirrors the JSON shape of the package.json subset the engine
// depends on (spec §6): version, dependencies, and an optional framework
// block carrying an id and per-platform version specs.
type rawManifest struct {
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
	NativeScript *struct {
		ID        string            `json:"id"`
		Platforms map[string]string `json:"platforms"`
	} `json:"nativescript"`
}

// ParseManifest decodes a package.json document, tolerating a leading
// UTF-8 BOM (spec §4.1 step 3). A malformed manifest is fatal to the
// rebuild (spec §7: ManifestParse). Exported so fileinventory can parse a
// nested package.json discovered mid-walk without duplicating the schema.
func ParseManifest(data []byte) (*pkgmodel.Manifest, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid package.json: %w", err)
	}

	m := &pkgmodel.Manifest{
		Version:      raw.Version,
		Dependencies: raw.Dependencies,
	}

	// Dependencies is a map; Go map iteration order is unspecified, so
	// DependencyOrder is built from a second, deterministic pass: we can't
	// recover the original document order from a decoded map, so we fall
	// back to sorted key order. This affects only iteration order within a
	// single manifest, never which package wins a name collision (that is
	// decided by semver in PackageGraph step 5), so determinism, not
	// document fidelity, is what matters here.
	m.DependencyOrder = sortedKeys(raw.Dependencies)

	if raw.NativeScript != nil {
		fb := &pkgmodel.FrameworkBlock{
			ID:        raw.NativeScript.ID,
			Platforms: make(map[pkgmodel.Platform]string, len(raw.NativeScript.Platforms)),
		}
		for platform, spec := range raw.NativeScript.Platforms {
			fb.Platforms[pkgmodel.Platform(platform)] = spec
		}
		m.Framework = fb
	}

	return m, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
