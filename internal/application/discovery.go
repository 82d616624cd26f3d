package application

import (
	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// DiscoverByConvention returns one variant per run whose name matches conv.
// Override roots are left empty; callers attach them by identifier.
func DiscoverByConvention(runs []domain.RunRef, conv domain.NamingConvention) []domain.Variant {
	seen := make(map[string]struct{}, len(runs))
	var variants []domain.Variant
	for _, ref := range runs {
		id, version, ok := conv.Match(ref)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		variants = append(variants, domain.Variant{ID: id, Version: version, Run: ref})
	}
	domain.SortVariants(variants)
	return variants
}

// DiscoverVariants merges the explicit registry with the variants found by
// the naming convention. Registry entries win for the same identifier.
// The result is sorted by version and is the same for the same Registration.
func DiscoverVariants(reg Registration) []domain.Variant {
	byID := make(map[string]domain.Variant)
	for _, v := range reg.Registry() {
		if roots, ok := reg.Overrides(v.ID); ok && !v.HasOverride() {
			v.Sources = roots.Sources
			v.Outputs = roots.Outputs
		}
		byID[v.ID] = v
	}

	if !reg.DiscoveryDisabled {
		for _, v := range DiscoverByConvention(reg.Runs.Names(), reg.Convention) {
			if _, registered := byID[v.ID]; registered {
				continue
			}
			if roots, ok := reg.Overrides(v.ID); ok {
				v.Sources = roots.Sources
				v.Outputs = roots.Outputs
			}
			byID[v.ID] = v
		}
	}

	variants := make([]domain.Variant, 0, len(byID))
	for _, v := range byID {
		variants = append(variants, v)
	}
	domain.SortVariants(variants)
	return variants
}
