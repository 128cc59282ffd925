// Package selector implements the package-selection algorithm of
// spec.md §4.6: picking, out of a set of upstream assets, the subset that
// best matches a caller's distribution and architecture.
package selector

import (
	"sort"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
)

// Select runs the five-step algorithm against candidates for target dist d.
func Select(candidates []pkgobject.Package, d models.Dist) []pkgobject.Package {
	// Step 1: type-compatible set.
	typeCompatible := make([]pkgobject.Package, 0, len(candidates))
	for _, p := range candidates {
		if p.Type().CompatibleWith(d.Family) {
			typeCompatible = append(typeCompatible, p)
		}
	}

	// Step 2: family-match subset S.
	var familyMatch []pkgobject.Package
	for _, p := range typeCompatible {
		if pd := p.Distribution(); pd != nil && pd.SameFamily(d) {
			familyMatch = append(familyMatch, p)
		}
	}

	// Step 3: distro-agnostic fallback.
	if len(familyMatch) == 0 {
		return pkgobject.SortByFilename(typeCompatible)
	}

	// Step 4: per-name closest-lower-or-equal, then per-(name,arch) pick highest.
	byName := make(map[string][]pkgobject.Package)
	for _, p := range familyMatch {
		byName[p.Name()] = append(byName[p.Name()], p)
	}

	var kept []pkgobject.Package
	for _, group := range byName {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Distribution().Compare(*group[j].Distribution()) > 0
		})

		var eligible []pkgobject.Package
		for _, p := range group {
			if p.Distribution().Compare(d) <= 0 {
				eligible = append(eligible, p)
			}
		}
		// Tumbleweed and similarly version-less families compare equal
		// (nil <= nil), so every family match stays eligible there; a
		// versioned family with no release older-or-equal than d yields
		// no pick for this name group, which is the correct outcome.

		byArch := make(map[models.Arch]pkgobject.Package)
		archOrder := make(map[models.Arch]int)
		for i, p := range eligible {
			if _, seen := archOrder[p.Arch()]; !seen {
				archOrder[p.Arch()] = i
				byArch[p.Arch()] = p
			}
		}
		for _, p := range byArch {
			kept = append(kept, p)
		}
	}

	// Step 5: filename-sorted union.
	return pkgobject.SortByFilename(kept)
}
