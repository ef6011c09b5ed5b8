// internal/behavior/profile.go
package behavior

import (
	"time"
)

const (
	// profileListMax is the append threshold for profile lists.
	profileListMax = 50
	// profileListTrim is the size lists are cut back to once they exceed
	// profileListMax. The gap between the two avoids re-trimming on every
	// single append.
	profileListTrim = 25
)

// UserProfile is the persisted long-term aggregate for one user or
// anonymous session. Lists are ordered most-recent-last and capped.
type UserProfile struct {
	UserID              string    `json:"user_id"`
	FrequentPaths       []string  `json:"frequent_paths"`
	SearchPatterns      []string  `json:"search_patterns"`
	PreferredCategories []string  `json:"preferred_categories"`
	SessionCount        int       `json:"session_count"`
	LastVisit           time.Time `json:"last_visit"`
}

// NewUserProfile creates an empty profile for the given identifier.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:              userID,
		FrequentPaths:       make([]string, 0),
		SearchPatterns:      make([]string, 0),
		PreferredCategories: make([]string, 0),
	}
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.FrequentPaths = append([]string(nil), p.FrequentPaths...)
	cp.SearchPatterns = append([]string(nil), p.SearchPatterns...)
	cp.PreferredCategories = append([]string(nil), p.PreferredCategories...)
	return &cp
}

// appendCapped appends value to list, trimming to the most recent
// profileListTrim entries once the list grows past profileListMax.
func appendCapped(list []string, value string) []string {
	list = append(list, value)
	if len(list) > profileListMax {
		list = append([]string(nil), list[len(list)-profileListTrim:]...)
	}
	return list
}
