// Package pghybrid implements the hybrid search boundary on Postgres with
// pgvector: vector similarity and full-text rankings are computed per query
// and fused by reciprocal rank, with metadata pre-filters applied to both
// modalities.
package pghybrid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"savouragent/recipes"
	"savouragent/search"
)

const (
	defaultVectorPenalty   = 50
	defaultFulltextPenalty = 50
)

// Embedder turns text into a query/document vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// Store is a pgvector-backed hybrid recipe index. It implements
// search.Searcher for queries and recipes.Sink for ingestion.
type Store struct {
	pool     *pgxpool.Pool
	embedder Embedder

	// Reciprocal-rank fusion penalties per modality.
	VectorPenalty   int
	FulltextPenalty int
}

func NewStore(pool *pgxpool.Pool, embedder Embedder) *Store {
	return &Store{
		pool:            pool,
		embedder:        embedder,
		VectorPenalty:   defaultVectorPenalty,
		FulltextPenalty: defaultFulltextPenalty,
	}
}

// Connect opens a pooled connection to the recipe database.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Search embeds the query, ranks candidates by vector distance and by
// full-text relevance under the same pre-filters, fuses the two rankings
// with 1/(rank+penalty) scoring, and returns the top k documents.
func (s *Store) Search(ctx context.Context, query string, k int, filters search.Filters) ([]search.Document, error) {
	if k <= 0 {
		k = 10
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	where, args := buildFilterClause(filters, 4)
	sql := fmt.Sprintf(`
WITH filtered AS (
    SELECT * FROM recipes %s
),
vector_ranked AS (
    SELECT id, row_number() OVER (ORDER BY embedding <=> $1) AS rank
    FROM filtered
    ORDER BY embedding <=> $1
    LIMIT $2
),
text_ranked AS (
    SELECT id, row_number() OVER (
        ORDER BY ts_rank(fts, plainto_tsquery('english', $3)) DESC
    ) AS rank
    FROM filtered
    WHERE fts @@ plainto_tsquery('english', $3)
    LIMIT $2
)
SELECT r.id, r.title, r.search_description, r.display_description,
       r.servings, r.total_time, r.difficulty_level, r.ingredient_names,
       r.quantities, r.meal_types, r.course_types, r.dietary_restrictions,
       COALESCE(1.0 / (v.rank + %d), 0) + COALESCE(1.0 / (t.rank + %d), 0) AS score
FROM vector_ranked v
FULL OUTER JOIN text_ranked t USING (id)
JOIN recipes r USING (id)
ORDER BY score DESC
LIMIT $2`, where, s.VectorPenalty, s.FulltextPenalty)

	queryArgs := append([]any{embedding, k, query}, args...)
	rows, err := s.pool.Query(ctx, sql, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("hybrid search query: %w", err)
	}
	defer rows.Close()

	var docs []search.Document
	for rows.Next() {
		var id, title, searchDesc, displayDesc, difficulty string
		var servings, totalTime int
		var ingredientNames, quantities, mealTypes, courseTypes, dietary []string
		var score float64
		if err := rows.Scan(
			&id, &title, &searchDesc, &displayDesc,
			&servings, &totalTime, &difficulty, &ingredientNames,
			&quantities, &mealTypes, &courseTypes, &dietary,
			&score,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		docs = append(docs, search.Document{
			Content: searchDesc,
			Metadata: map[string]any{
				"uuid":                 id,
				"title":                title,
				"display_description":  displayDesc,
				"servings":             servings,
				"total_time":           totalTime,
				"difficulty_level":     difficulty,
				"ingredient_names":     ingredientNames,
				"quantities":           quantities,
				"meal_types":           mealTypes,
				"course_types":         courseTypes,
				"dietary_restrictions": dietary,
				"fusion_score":         score,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	slog.Info("SEARCH: Hybrid query complete", "query", query, "k", k, "hits", len(docs))
	return docs, nil
}

// Upsert bulk-loads records, embedding each search description. Re-ingesting
// the same source overwrites in place thanks to deterministic IDs.
func (s *Store) Upsert(ctx context.Context, records []recipes.Record) error {
	pgxBatch := &pgx.Batch{}
	for i := range records {
		r := &records[i]
		embedding, err := s.embedder.Embed(ctx, r.SearchDescription)
		if err != nil {
			return fmt.Errorf("embed record %s: %w", r.ID, err)
		}
		pgxBatch.Queue(`
INSERT INTO recipes (
    id, title, search_description, display_description,
    servings, total_time, difficulty_level, cooking_method,
    equipment, cleanup_effort, meal_types, course_types,
    dietary_restrictions, ingredient_names, quantities, record, embedding
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    search_description = EXCLUDED.search_description,
    display_description = EXCLUDED.display_description,
    servings = EXCLUDED.servings,
    total_time = EXCLUDED.total_time,
    difficulty_level = EXCLUDED.difficulty_level,
    cooking_method = EXCLUDED.cooking_method,
    equipment = EXCLUDED.equipment,
    cleanup_effort = EXCLUDED.cleanup_effort,
    meal_types = EXCLUDED.meal_types,
    course_types = EXCLUDED.course_types,
    dietary_restrictions = EXCLUDED.dietary_restrictions,
    ingredient_names = EXCLUDED.ingredient_names,
    quantities = EXCLUDED.quantities,
    record = EXCLUDED.record,
    embedding = EXCLUDED.embedding`,
			r.ID, r.Title, r.SearchDescription, r.DisplayDescription,
			r.Servings, r.TotalMinutes(), r.Difficulty, r.CookingMethod,
			r.Equipment, r.CleanupEffort, r.MealTypes, r.CourseTypes,
			r.DietaryRestrictions, r.IngredientNames(), r.Quantities(), r, embedding,
		)
	}

	br := s.pool.SendBatch(ctx, pgxBatch)
	defer br.Close()
	for i := 0; i < len(records); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert record %d: %w", i, err)
		}
	}
	return nil
}
