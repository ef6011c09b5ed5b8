// internal/sections/types.go
package sections

import (
	"context"
	"time"
)

// Kind names a homepage section.
type Kind string

const (
	KindHero           Kind = "hero"
	KindFeatured       Kind = "featured_businesses"
	KindCategoryRecs   Kind = "category_recommendations"
	KindLocalSpotlight Kind = "local_spotlight"
	KindTrending       Kind = "trending"
	KindRecommended    Kind = "recommended"
)

// Business is one directory listing as the section generators see it.
type Business struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Location string  `json:"location"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews"`
	URL      string  `json:"url"`
}

// Category is a browsable business category.
type Category struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Store is the read-only business/category data collaborator. The
// generator owns no schema; implementations may be Postgres-backed or
// in-memory.
type Store interface {
	BusinessesByCategory(ctx context.Context, categories []string, location string, limit int) ([]Business, error)
	FeaturedBusinesses(ctx context.Context, location string, limit int) ([]Business, error)
	CategoriesBySlug(ctx context.Context, slugs []string) ([]Category, error)
	TrendingBusinesses(ctx context.Context, location string, since time.Time, limit int) ([]Business, error)
}

// Metadata records which signals produced a section.
type Metadata struct {
	Signals    []string `json:"signals,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Section is one homepage content block. Sections are immutable once
// generated; lower Priority renders first.
type Section struct {
	Kind         Kind       `json:"kind"`
	Title        string     `json:"title"`
	Priority     int        `json:"priority"`
	Personalized bool       `json:"personalized"`
	Layout       string     `json:"layout"`
	Items        []Business `json:"items,omitempty"`
	Categories   []Category `json:"categories,omitempty"`
	Metadata     Metadata   `json:"metadata"`
}
