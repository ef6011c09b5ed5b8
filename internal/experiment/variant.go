// internal/experiment/variant.go
package experiment

import (
	"hash/fnv"

	"github.com/FairForge/foresight/internal/sections"
)

// Variant identifies a homepage layout experiment arm.
type Variant string

const (
	// VariantA keeps the generated section order.
	VariantA Variant = "A"
	// VariantB surfaces the local spotlight section first.
	VariantB Variant = "B"
)

// Bucket returns the deterministic experiment bucket [0, 100) for an
// identifier. FNV-1a is stable across processes and deployments, which is
// what keeps assignments sticky.
func Bucket(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % 100)
}

// Assign buckets an identifier into a variant: [0, 50) is A, [50, 100) is B.
func Assign(id string) Variant {
	if Bucket(id) < 50 {
		return VariantA
	}
	return VariantB
}

// Apply reorders sections for the given variant. Variant A returns the
// input unchanged; variant B moves local_spotlight to the front, keeping
// the relative order of everything else.
func Apply(variant Variant, list []sections.Section) []sections.Section {
	if variant != VariantB {
		return list
	}

	reordered := make([]sections.Section, 0, len(list))
	for _, s := range list {
		if s.Kind == sections.KindLocalSpotlight {
			reordered = append([]sections.Section{s}, reordered...)
			continue
		}
		reordered = append(reordered, s)
	}
	return reordered
}
