// internal/preference/scores.go
package preference

// ScoreMap accumulates non-negative weights per label while remembering
// first-insertion order. Ties in Top/TopN resolve to the label inserted
// first; arbitrary, but deterministic and documented.
type ScoreMap struct {
	order   []string
	weights map[string]float64
}

// NewScoreMap creates an empty score map.
func NewScoreMap() *ScoreMap {
	return &ScoreMap{weights: make(map[string]float64)}
}

// Add accumulates weight for label. Negative weights are ignored so that
// accumulated scores stay monotonically non-negative.
func (s *ScoreMap) Add(label string, weight float64) {
	if label == "" || weight < 0 {
		return
	}
	if _, exists := s.weights[label]; !exists {
		s.order = append(s.order, label)
	}
	s.weights[label] += weight
}

// Get returns the accumulated weight for label.
func (s *ScoreMap) Get(label string) float64 {
	return s.weights[label]
}

// Len returns the number of distinct labels.
func (s *ScoreMap) Len() int {
	return len(s.order)
}

// Labels returns labels in first-insertion order.
func (s *ScoreMap) Labels() []string {
	return append([]string(nil), s.order...)
}

// Top returns the highest-weighted label, or "" when empty.
func (s *ScoreMap) Top() string {
	top := s.TopN(1)
	if len(top) == 0 {
		return ""
	}
	return top[0]
}

// TopN returns up to n labels in descending weight order. Equal weights
// keep insertion order (stable selection).
func (s *ScoreMap) TopN(n int) []string {
	if n <= 0 || len(s.order) == 0 {
		return nil
	}

	sorted := append([]string(nil), s.order...)
	// Insertion sort keeps equal-weight labels in insertion order.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && s.weights[sorted[j]] > s.weights[sorted[j-1]]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// MaxWeight returns the largest accumulated weight.
func (s *ScoreMap) MaxWeight() float64 {
	var max float64
	for _, w := range s.weights {
		if w > max {
			max = w
		}
	}
	return max
}
