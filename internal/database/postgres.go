// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FairForge/foresight/internal/behavior"
	"github.com/FairForge/foresight/internal/sections"
	"github.com/lib/pq" // also registers the PostgreSQL driver
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// Postgres backs both the business/category read queries and user profile
// persistence.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a new PostgreSQL connection.
func NewPostgres(cfg Config) (*Postgres, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping verifies the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// CreateTables creates the necessary database tables.
func (p *Postgres) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			slug VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			business_count INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS businesses (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(255) NOT NULL REFERENCES categories(slug),
			location VARCHAR(255) NOT NULL DEFAULT '',
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			reviews INT NOT NULL DEFAULT 0,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id VARCHAR(255) PRIMARY KEY,
			profile JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_businesses_category_location
			ON businesses (category, location)`,
		`CREATE INDEX IF NOT EXISTS idx_businesses_created_at
			ON businesses (created_at)`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	return nil
}

// BusinessesByCategory returns businesses in any of the given categories,
// optionally restricted to a location, best rated first.
func (p *Postgres) BusinessesByCategory(ctx context.Context, categories []string, location string, limit int) ([]sections.Business, error) {
	query := `
		SELECT id, name, category, location, rating, reviews
		FROM businesses
		WHERE category = ANY($1)
		  AND ($2 = '' OR location = $2)
		ORDER BY rating DESC, reviews DESC
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, query, pq.Array(categories), location, limit)
	if err != nil {
		return nil, fmt.Errorf("businesses by category: %w", err)
	}
	return scanBusinesses(rows)
}

// FeaturedBusinesses returns featured businesses, best rated first.
func (p *Postgres) FeaturedBusinesses(ctx context.Context, location string, limit int) ([]sections.Business, error) {
	query := `
		SELECT id, name, category, location, rating, reviews
		FROM businesses
		WHERE featured = TRUE
		  AND ($1 = '' OR location = $1)
		ORDER BY rating DESC, reviews DESC
		LIMIT $2
	`
	rows, err := p.db.QueryContext(ctx, query, location, limit)
	if err != nil {
		return nil, fmt.Errorf("featured businesses: %w", err)
	}
	return scanBusinesses(rows)
}

// CategoriesBySlug returns the categories matching the given slugs.
func (p *Postgres) CategoriesBySlug(ctx context.Context, slugs []string) ([]sections.Category, error) {
	query := `
		SELECT slug, name, business_count
		FROM categories
		WHERE slug = ANY($1)
	`
	rows, err := p.db.QueryContext(ctx, query, pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("categories by slug: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []sections.Category
	for rows.Next() {
		var c sections.Category
		if err := rows.Scan(&c.Slug, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// TrendingBusinesses returns recently added businesses ranked by review
// velocity. Recency is best-effort; eventual consistency is acceptable.
func (p *Postgres) TrendingBusinesses(ctx context.Context, location string, since time.Time, limit int) ([]sections.Business, error) {
	query := `
		SELECT id, name, category, location, rating, reviews
		FROM businesses
		WHERE created_at >= $1
		  AND ($2 = '' OR location = $2)
		ORDER BY reviews DESC, rating DESC
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, query, since, location, limit)
	if err != nil {
		return nil, fmt.Errorf("trending businesses: %w", err)
	}
	return scanBusinesses(rows)
}

func scanBusinesses(rows *sql.Rows) ([]sections.Business, error) {
	defer func() { _ = rows.Close() }()

	var businesses []sections.Business
	for rows.Next() {
		var b sections.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.Category, &b.Location, &b.Rating, &b.Reviews); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		b.URL = "/biz/" + b.ID
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}

// Get implements behavior.ProfileStore.
func (p *Postgres) Get(ctx context.Context, key string) (*behavior.UserProfile, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT profile FROM user_profiles WHERE user_id = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var profile behavior.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// Put implements behavior.ProfileStore.
func (p *Postgres) Put(ctx context.Context, key string, profile *behavior.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, profile, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET profile = EXCLUDED.profile, updated_at = NOW()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}
