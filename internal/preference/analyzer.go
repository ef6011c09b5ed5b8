// internal/preference/analyzer.go
package preference

import (
	"strings"

	"github.com/FairForge/foresight/internal/behavior"
)

// Signal source weights. A stored long-term pattern counts for more than a
// one-off click; an explicit user-set preference outweighs everything.
const (
	WeightSearch   = 2.0
	WeightClick    = 1.0
	WeightPattern  = 3.0
	WeightExplicit = 5.0
)

// categoryKeywords maps a business category to the keywords that signal it.
var categoryKeywords = map[string][]string{
	"restaurants":   {"restaurant", "cafe", "bar", "food", "dining", "pizza", "sushi", "coffee", "bakery", "taco", "burger", "thai", "brunch"},
	"shopping":      {"shop", "store", "boutique", "mall", "market", "retail", "clothing", "grocery"},
	"services":      {"plumber", "electrician", "lawyer", "accountant", "repair", "cleaning", "contractor", "locksmith"},
	"health":        {"doctor", "dentist", "clinic", "pharmacy", "hospital", "therapist", "chiropractor"},
	"beauty":        {"salon", "spa", "barber", "nails", "massage", "hair"},
	"automotive":    {"mechanic", "auto", "car wash", "tires", "oil change", "dealership"},
	"entertainment": {"theater", "cinema", "museum", "arcade", "bowling", "concert", "nightlife"},
	"fitness":       {"gym", "yoga", "pilates", "crossfit", "fitness", "martial arts", "climbing"},
}

// categoryOrder fixes iteration order over categoryKeywords so insertion
// order into score maps, and therefore tie-breaking, is deterministic.
var categoryOrder = []string{
	"restaurants", "shopping", "services", "health",
	"beauty", "automotive", "entertainment", "fitness",
}

var locationKeywords = map[string][]string{
	"downtown":   {"downtown", "city center", "central"},
	"midtown":    {"midtown"},
	"uptown":     {"uptown"},
	"westside":   {"westside", "west side", "west end"},
	"eastside":   {"eastside", "east side", "east end"},
	"suburbs":    {"suburb", "suburban"},
	"waterfront": {"waterfront", "harbor", "marina", "beach"},
}

var locationOrder = []string{
	"downtown", "midtown", "uptown", "westside", "eastside", "suburbs", "waterfront",
}

var priceKeywords = map[string][]string{
	"budget":   {"cheap", "budget", "affordable", "inexpensive", "deal"},
	"moderate": {"moderate", "mid-range", "reasonable"},
	"premium":  {"luxury", "upscale", "premium", "fine dining", "high-end"},
}

var priceOrder = []string{"budget", "moderate", "premium"}

var featureKeywords = map[string][]string{
	"delivery":     {"delivery", "delivers"},
	"takeout":      {"takeout", "take out", "to go"},
	"outdoor":      {"outdoor", "patio", "terrace", "rooftop"},
	"parking":      {"parking"},
	"pet_friendly": {"pet friendly", "dog friendly"},
	"open_late":    {"open late", "late night", "24 hour"},
}

var featureOrder = []string{"delivery", "takeout", "outdoor", "parking", "pet_friendly", "open_late"}

// Input is everything the analyzer considers for one user/session.
type Input struct {
	Events         []behavior.Event
	StoredPatterns []string
	ExplicitPrefs  []string
}

// InputFromProfile builds analyzer input from a session's event log and its
// persisted profile.
func InputFromProfile(events []behavior.Event, profile *behavior.UserProfile) Input {
	in := Input{Events: events}
	if profile != nil {
		in.StoredPatterns = append(in.StoredPatterns, profile.SearchPatterns...)
		in.StoredPatterns = append(in.StoredPatterns, profile.FrequentPaths...)
		in.ExplicitPrefs = append(in.ExplicitPrefs, profile.PreferredCategories...)
	}
	return in
}

// Preferences is the analyzer's output: weighted scores per dimension plus
// a confidence estimate.
type Preferences struct {
	BusinessTypes *ScoreMap
	Locations     *ScoreMap
	PriceRanges   *ScoreMap
	Features      *ScoreMap

	// Confidence is a hand-tuned heuristic in [0, 1], not a calibrated
	// probability. Treat it as a coarse signal-strength indicator only.
	Confidence float64
}

// Analyze converts behavior into weighted preferences. Pure function: no
// I/O, deterministic for a given input.
func Analyze(in Input) Preferences {
	p := Preferences{
		BusinessTypes: NewScoreMap(),
		Locations:     NewScoreMap(),
		PriceRanges:   NewScoreMap(),
		Features:      NewScoreMap(),
	}

	interactions := 0
	for _, evt := range in.Events {
		signal := evt.Signal()
		if signal == "" {
			continue
		}
		interactions++

		weight := WeightClick
		if evt.Kind == behavior.EventSearchQuery {
			weight = WeightSearch
		}
		p.scoreSignal(signal, weight)
	}

	for _, pattern := range in.StoredPatterns {
		p.scoreSignal(pattern, WeightPattern)
	}

	for _, pref := range in.ExplicitPrefs {
		// Explicit preferences name a category directly; fall back to
		// keyword matching for free-text values.
		if _, known := categoryKeywords[pref]; known {
			p.BusinessTypes.Add(pref, WeightExplicit)
		} else {
			p.scoreSignal(pref, WeightExplicit)
		}
	}

	p.Confidence = confidence(interactions, p)
	return p
}

func (p *Preferences) scoreSignal(signal string, weight float64) {
	text := strings.ToLower(signal)

	for _, category := range categoryOrder {
		if matchesAny(text, categoryKeywords[category]) {
			p.BusinessTypes.Add(category, weight)
		}
	}
	for _, location := range locationOrder {
		if matchesAny(text, locationKeywords[location]) {
			p.Locations.Add(location, weight)
		}
	}
	for _, price := range priceOrder {
		if matchesAny(text, priceKeywords[price]) {
			p.PriceRanges.Add(price, weight)
		}
	}
	for _, feature := range featureOrder {
		if matchesAny(text, featureKeywords[feature]) {
			p.Features.Add(feature, weight)
		}
	}
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// confidence blends interaction volume, preference breadth and the
// strength of the dominant category, each term capped so no single source
// can saturate the score.
func confidence(interactions int, p Preferences) float64 {
	distinct := p.BusinessTypes.Len() + p.Locations.Len() + p.PriceRanges.Len() + p.Features.Len()

	score := min(float64(interactions)*0.05, 0.3) +
		min(float64(distinct)*0.1, 0.4) +
		min(p.BusinessTypes.MaxWeight()*0.05, 0.3)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
