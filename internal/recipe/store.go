package recipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"hashrecipe/internal/locale"
)

// CorpusStore defines the operations needed to load localized snapshots
// from an external source.
type CorpusStore interface {
	LoadCorpus(ctx context.Context, loc locale.Locale) ([]Recipe, error)
	SaveCorpus(ctx context.Context, loc locale.Locale, recipes []Recipe) error
	Count(ctx context.Context) (int, error)
}

// PostgresStore implements CorpusStore for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// Compile-time interface check.
var _ CorpusStore = (*PostgresStore)(nil)

// NewPostgresStore connects to the database and creates the recipes table if needed.
func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT NOT NULL,
		locale TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		calories INTEGER NOT NULL,
		time_minutes INTEGER NOT NULL,
		ingredients JSONB NOT NULL,
		instructions JSONB NOT NULL,
		image_url TEXT,
		fingerprint TEXT NOT NULL,
		tags JSONB NOT NULL,
		PRIMARY KEY (id, locale)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create recipes table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// recipeRow is the database shape of a Recipe.
type recipeRow struct {
	ID           string `db:"id"`
	Title        string `db:"title"`
	Calories     int    `db:"calories"`
	TimeMinutes  int    `db:"time_minutes"`
	Ingredients  []byte `db:"ingredients"`
	Instructions []byte `db:"instructions"`
	ImageURL     string `db:"image_url"`
	Fingerprint  string `db:"fingerprint"`
	Tags         []byte `db:"tags"`
}

func (row recipeRow) toRecipe() (Recipe, error) {
	r := Recipe{
		ID:          row.ID,
		Title:       row.Title,
		Calories:    row.Calories,
		TimeMinutes: row.TimeMinutes,
		ImageURL:    row.ImageURL,
		Fingerprint: row.Fingerprint,
	}
	if err := json.Unmarshal(row.Ingredients, &r.Ingredients); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal ingredients of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Instructions, &r.Instructions); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal instructions of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Tags, &r.Tags); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal tags of %s: %w", row.ID, err)
	}
	return r, nil
}

func newRecipeRow(r Recipe) (recipeRow, error) {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return recipeRow{}, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return recipeRow{}, fmt.Errorf("failed to marshal instructions: %w", err)
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return recipeRow{}, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return recipeRow{
		ID:           r.ID,
		Title:        r.Title,
		Calories:     r.Calories,
		TimeMinutes:  r.TimeMinutes,
		Ingredients:  ingredients,
		Instructions: instructions,
		ImageURL:     r.ImageURL,
		Fingerprint:  r.Fingerprint,
		Tags:         tags,
	}, nil
}

// LoadCorpus returns the snapshot for loc in stored position order.
func (s *PostgresStore) LoadCorpus(ctx context.Context, loc locale.Locale) ([]Recipe, error) {
	var rows []recipeRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, title, calories, time_minutes, ingredients, instructions, image_url, fingerprint, tags FROM recipes WHERE locale = $1 ORDER BY position",
		string(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus %s: %w", loc, err)
	}

	recipes := make([]Recipe, 0, len(rows))
	for _, row := range rows {
		r, err := row.toRecipe()
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// SaveCorpus replaces the snapshot for loc.
func (s *PostgresStore) SaveCorpus(ctx context.Context, loc locale.Locale, recipes []Recipe) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM recipes WHERE locale = $1", string(loc)); err != nil {
		return fmt.Errorf("failed to clear corpus %s: %w", loc, err)
	}

	for pos, r := range recipes {
		row, err := newRecipeRow(r)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO recipes (id, locale, position, title, calories, time_minutes, ingredients, instructions, image_url, fingerprint, tags) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
			row.ID,
			string(loc),
			pos,
			row.Title,
			row.Calories,
			row.TimeMinutes,
			row.Ingredients,
			row.Instructions,
			row.ImageURL,
			row.Fingerprint,
			row.Tags,
		)
		if err != nil {
			return fmt.Errorf("failed to save recipe %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit corpus %s: %w", loc, err)
	}
	return nil
}

// Count returns the number of stored rows across all locales.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM recipes"); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// LoadCatalog reads every supported locale from store and validates the result.
func LoadCatalog(ctx context.Context, store CorpusStore) (*SnapshotCatalog, error) {
	snapshots := make(map[locale.Locale][]Recipe)
	for _, loc := range locale.Supported() {
		recipes, err := store.LoadCorpus(ctx, loc)
		if err != nil {
			return nil, err
		}
		snapshots[loc] = recipes
	}
	return NewCatalog(snapshots)
}

// Seed writes every snapshot of c into an empty store. It reports whether
// anything was written.
func Seed(ctx context.Context, store CorpusStore, c Catalog) (bool, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	for _, loc := range c.Locales() {
		if err := store.SaveCorpus(ctx, loc, c.Corpus(loc)); err != nil {
			return false, err
		}
	}
	return true, nil
}
