// internal/sections/generator.go
package sections

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/FairForge/foresight/internal/preference"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config configures the section generator.
type Config struct {
	// CacheTTL bounds how long an assembled section list is reused.
	CacheTTL time.Duration
	// CacheEntries caps the section list cache.
	CacheEntries int
	// TrendingWindow is how far back "trending" looks.
	TrendingWindow time.Duration
	// ItemLimit is the per-section item count.
	ItemLimit int
	// MinRecommendConfidence gates the recommended section; weak signal
	// produces no recommendations rather than bad ones.
	MinRecommendConfidence float64
}

// ApplyDefaults fills in default values.
func (c *Config) ApplyDefaults() {
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheEntries == 0 {
		c.CacheEntries = 1024
	}
	if c.TrendingWindow == 0 {
		c.TrendingWindow = 7 * 24 * time.Hour
	}
	if c.ItemLimit == 0 {
		c.ItemLimit = 8
	}
	if c.MinRecommendConfidence == 0 {
		c.MinRecommendConfidence = 0.3
	}
}

// Generator assembles ordered homepage section lists from preference data.
// It never returns an error: failed section queries drop that section, and
// in the worst case the homepage degrades to a single default hero.
type Generator struct {
	store  Store
	logger *zap.Logger
	cfg    Config
	cache  *listCache
	group  singleflight.Group
}

// NewGenerator creates a section generator over the given store.
func NewGenerator(store Store, cfg Config, logger *zap.Logger) *Generator {
	cfg.ApplyDefaults()
	return &Generator{
		store:  store,
		logger: logger,
		cfg:    cfg,
		cache:  newListCache(cfg.CacheTTL, cfg.CacheEntries),
	}
}

// Generate returns the ordered section list for one homepage request.
// Results are cached per (userKey, location); concurrent misses for the
// same key share one generation.
func (g *Generator) Generate(ctx context.Context, userKey, location string, prefs preference.Preferences) []Section {
	cacheKey := userKey + "|" + location

	if cached, hit := g.cache.get(cacheKey); hit {
		return cached
	}

	result, _, _ := g.group.Do(cacheKey, func() (interface{}, error) {
		built := g.build(ctx, location, prefs)
		g.cache.put(cacheKey, built)
		return built, nil
	})
	return result.([]Section)
}

func (g *Generator) build(ctx context.Context, location string, prefs preference.Preferences) []Section {
	generators := []func(context.Context, string, preference.Preferences) *Section{
		g.generateHero,
		g.generateFeatured,
		g.generateCategoryRecs,
		g.generateLocalSpotlight,
		g.generateTrending,
		g.generateRecommended,
	}

	var built []Section
	for _, gen := range generators {
		if section := gen(ctx, location, prefs); section != nil {
			built = append(built, *section)
		}
	}

	if len(built) == 0 {
		built = []Section{defaultHero()}
	}

	sort.SliceStable(built, func(i, j int) bool {
		return built[i].Priority < built[j].Priority
	})
	return built
}

func (g *Generator) generateHero(ctx context.Context, location string, prefs preference.Preferences) *Section {
	hero := defaultHero()
	if top := prefs.BusinessTypes.Top(); top != "" {
		hero.Title = fmt.Sprintf("Find the best %s near you", top)
		hero.Personalized = true
		hero.Metadata = Metadata{Signals: []string{top}, Confidence: prefs.Confidence}
	}
	return &hero
}

func defaultHero() Section {
	return Section{
		Kind:     KindHero,
		Title:    "Discover great local businesses",
		Priority: 1,
		Layout:   "banner",
	}
}

func (g *Generator) generateFeatured(ctx context.Context, location string, prefs preference.Preferences) *Section {
	topCategories := prefs.BusinessTypes.TopN(3)

	if len(topCategories) > 0 {
		items, err := g.store.BusinessesByCategory(ctx, topCategories, location, g.cfg.ItemLimit)
		if err != nil {
			g.logger.Warn("personalized featured query failed, falling back",
				zap.Strings("categories", topCategories), zap.Error(err))
		} else if len(items) > 0 {
			return &Section{
				Kind:         KindFeatured,
				Title:        "Featured for you",
				Priority:     2,
				Personalized: true,
				Layout:       "grid",
				Items:        items,
				Metadata:     Metadata{Signals: topCategories, Confidence: prefs.Confidence},
			}
		}
	}

	// General fallback: top-rated businesses regardless of preference.
	items, err := g.store.FeaturedBusinesses(ctx, location, g.cfg.ItemLimit)
	if err != nil {
		g.logger.Warn("general featured query failed", zap.Error(err))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &Section{
		Kind:     KindFeatured,
		Title:    "Featured businesses",
		Priority: 2,
		Layout:   "grid",
		Items:    items,
		Metadata: Metadata{Confidence: prefs.Confidence},
	}
}

func (g *Generator) generateCategoryRecs(ctx context.Context, location string, prefs preference.Preferences) *Section {
	slugs := prefs.BusinessTypes.TopN(3)
	if len(slugs) == 0 {
		return nil
	}

	categories, err := g.store.CategoriesBySlug(ctx, slugs)
	if err != nil {
		g.logger.Warn("category recommendations query failed", zap.Error(err))
		return nil
	}
	if len(categories) == 0 {
		return nil
	}
	return &Section{
		Kind:         KindCategoryRecs,
		Title:        "Categories you might like",
		Priority:     3,
		Personalized: true,
		Layout:       "chips",
		Categories:   categories,
		Metadata:     Metadata{Signals: slugs, Confidence: prefs.Confidence},
	}
}

func (g *Generator) generateLocalSpotlight(ctx context.Context, location string, prefs preference.Preferences) *Section {
	if location == "" {
		return nil
	}

	items, err := g.store.FeaturedBusinesses(ctx, location, g.cfg.ItemLimit)
	if err != nil {
		g.logger.Warn("local spotlight query failed", zap.String("location", location), zap.Error(err))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &Section{
		Kind:         KindLocalSpotlight,
		Title:        fmt.Sprintf("Spotlight on %s", location),
		Priority:     4,
		Personalized: true,
		Layout:       "carousel",
		Items:        items,
		Metadata:     Metadata{Signals: []string{"location:" + location}, Confidence: prefs.Confidence},
	}
}

func (g *Generator) generateTrending(ctx context.Context, location string, prefs preference.Preferences) *Section {
	since := time.Now().Add(-g.cfg.TrendingWindow)
	items, err := g.store.TrendingBusinesses(ctx, location, since, g.cfg.ItemLimit)
	if err != nil {
		g.logger.Warn("trending query failed", zap.Error(err))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &Section{
		Kind:     KindTrending,
		Title:    "Trending now",
		Priority: 5,
		Layout:   "carousel",
		Items:    items,
		Metadata: Metadata{Confidence: prefs.Confidence},
	}
}

func (g *Generator) generateRecommended(ctx context.Context, location string, prefs preference.Preferences) *Section {
	if prefs.Confidence < g.cfg.MinRecommendConfidence {
		return nil
	}

	categories := prefs.BusinessTypes.TopN(5)
	if len(categories) == 0 {
		return nil
	}

	items, err := g.store.BusinessesByCategory(ctx, categories, location, g.cfg.ItemLimit)
	if err != nil {
		g.logger.Warn("recommended query failed", zap.Error(err))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &Section{
		Kind:         KindRecommended,
		Title:        "Recommended for you",
		Priority:     6,
		Personalized: true,
		Layout:       "grid",
		Items:        items,
		Metadata:     Metadata{Signals: categories, Confidence: prefs.Confidence},
	}
}
