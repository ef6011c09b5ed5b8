// internal/sections/memory_store.go
package sections

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests. Not a
// production backend: no persistence, linear scans.
type MemoryStore struct {
	mu         sync.RWMutex
	businesses []Business
	created    map[string]time.Time
	categories map[string]Category
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		created:    make(map[string]time.Time),
		categories: make(map[string]Category),
	}
}

// AddBusiness registers a listing. Category counts update automatically.
func (m *MemoryStore) AddBusiness(b Business, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.URL == "" {
		b.URL = "/biz/" + b.ID
	}
	m.businesses = append(m.businesses, b)
	m.created[b.ID] = createdAt

	cat := m.categories[b.Category]
	cat.Slug = b.Category
	if cat.Name == "" {
		cat.Name = titleize(b.Category)
	}
	cat.Count++
	m.categories[b.Category] = cat
}

// BusinessesByCategory returns the top-rated listings in any of the given
// categories, optionally filtered by location.
func (m *MemoryStore) BusinessesByCategory(ctx context.Context, categories []string, location string, limit int) ([]Business, error) {
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Business
	for _, b := range m.businesses {
		if _, ok := wanted[b.Category]; !ok {
			continue
		}
		if location != "" && b.Location != location {
			continue
		}
		out = append(out, b)
	}
	return topRated(out, limit), nil
}

// FeaturedBusinesses returns the top-rated listings overall.
func (m *MemoryStore) FeaturedBusinesses(ctx context.Context, location string, limit int) ([]Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Business
	for _, b := range m.businesses {
		if location != "" && b.Location != location {
			continue
		}
		out = append(out, b)
	}
	return topRated(out, limit), nil
}

// CategoriesBySlug returns the known categories among slugs, in slug order.
func (m *MemoryStore) CategoriesBySlug(ctx context.Context, slugs []string) ([]Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Category
	for _, slug := range slugs {
		if cat, ok := m.categories[slug]; ok {
			out = append(out, cat)
		}
	}
	return out, nil
}

// TrendingBusinesses returns recently added listings ordered by review count.
func (m *MemoryStore) TrendingBusinesses(ctx context.Context, location string, since time.Time, limit int) ([]Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Business
	for _, b := range m.businesses {
		if m.created[b.ID].Before(since) {
			continue
		}
		if location != "" && b.Location != location {
			continue
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reviews > out[j].Reviews
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func topRated(items []Business, limit int) []Business {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Rating > items[j].Rating
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func titleize(slug string) string {
	if slug == "" {
		return ""
	}
	b := []byte(slug)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// SeedSampleData fills the store with a small demo dataset so the service
// serves meaningful sections without a database.
func (m *MemoryStore) SeedSampleData() {
	now := time.Now()
	samples := []struct {
		b   Business
		age time.Duration
	}{
		{Business{ID: "b1", Name: "Luigi's Pizza", Category: "restaurants", Location: "downtown", Rating: 4.7, Reviews: 312}, 48 * time.Hour},
		{Business{ID: "b2", Name: "Sakura Sushi", Category: "restaurants", Location: "midtown", Rating: 4.8, Reviews: 201}, 30 * 24 * time.Hour},
		{Business{ID: "b3", Name: "The Daily Grind", Category: "restaurants", Location: "downtown", Rating: 4.5, Reviews: 158}, 12 * time.Hour},
		{Business{ID: "b4", Name: "Vogue Boutique", Category: "shopping", Location: "uptown", Rating: 4.3, Reviews: 87}, 60 * 24 * time.Hour},
		{Business{ID: "b5", Name: "Corner Market", Category: "shopping", Location: "downtown", Rating: 4.1, Reviews: 64}, 24 * time.Hour},
		{Business{ID: "b6", Name: "Ace Plumbing", Category: "services", Location: "suburbs", Rating: 4.6, Reviews: 143}, 90 * 24 * time.Hour},
		{Business{ID: "b7", Name: "Summit Gym", Category: "fitness", Location: "midtown", Rating: 4.4, Reviews: 229}, 72 * time.Hour},
		{Business{ID: "b8", Name: "Harbor Spa", Category: "beauty", Location: "waterfront", Rating: 4.9, Reviews: 95}, 36 * time.Hour},
	}
	for _, s := range samples {
		m.AddBusiness(s.b, now.Add(-s.age))
	}
}
