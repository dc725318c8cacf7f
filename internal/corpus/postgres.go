package corpus

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DDL for the corpus tables. BIGSERIAL ids preserve insertion order, which
// the corrector relies on for deterministic tie-breaking.
const ddlCorpus = `
CREATE TABLE IF NOT EXISTS reference_sentences (
    id     BIGSERIAL PRIMARY KEY,
    corpus TEXT      NOT NULL,
    text   TEXT      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reference_sentences_corpus
    ON reference_sentences (corpus);

CREATE TABLE IF NOT EXISTS vocabulary_words (
    id     BIGSERIAL PRIMARY KEY,
    corpus TEXT      NOT NULL,
    word   TEXT      NOT NULL,
    UNIQUE (corpus, word)
);
`

// Store is a PostgreSQL-backed corpus snapshot store. It persists reference
// sentences and vocabulary words per named corpus and reads them back in
// insertion order.
//
// All methods are safe for concurrent use; the underlying [pgxpool.Pool]
// handles connection management.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the PostgreSQL database at dsn, verifies the
// connection, and ensures the corpus schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("corpus store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("corpus store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("corpus store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlCorpus); err != nil {
		pool.Close()
		return nil, fmt.Errorf("corpus store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Snapshot reads the named corpus and returns it as an immutable [Snapshot].
// Sentences come back in insertion order. A name with no stored sentences
// yields an empty snapshot, not an error — an empty corpus is a legal state
// the corrector handles by leaving hypotheses unchanged.
func (s *Store) Snapshot(ctx context.Context, name string) (Snapshot, error) {
	snap := Snapshot{Name: name}

	rows, err := s.pool.Query(ctx,
		`SELECT text FROM reference_sentences WHERE corpus = $1 ORDER BY id`, name)
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus store: query sentences: %w", err)
	}
	snap.Sentences, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus store: collect sentences: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT word FROM vocabulary_words WHERE corpus = $1 ORDER BY id`, name)
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus store: query vocabulary: %w", err)
	}
	snap.Words, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus store: collect vocabulary: %w", err)
	}

	return snap, nil
}

// SaveSnapshot replaces the stored corpus named snap.Name with snap's
// contents in a single transaction. Rebuilding a corpus therefore never
// exposes a half-written state to concurrent [Store.Snapshot] readers.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("corpus store: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx,
		`DELETE FROM reference_sentences WHERE corpus = $1`, snap.Name); err != nil {
		return fmt.Errorf("corpus store: clear sentences: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM vocabulary_words WHERE corpus = $1`, snap.Name); err != nil {
		return fmt.Errorf("corpus store: clear vocabulary: %w", err)
	}

	for _, sentence := range snap.Sentences {
		if _, err := tx.Exec(ctx,
			`INSERT INTO reference_sentences (corpus, text) VALUES ($1, $2)`,
			snap.Name, sentence); err != nil {
			return fmt.Errorf("corpus store: insert sentence: %w", err)
		}
	}
	for _, word := range snap.Words {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vocabulary_words (corpus, word) VALUES ($1, $2)
			 ON CONFLICT (corpus, word) DO NOTHING`,
			snap.Name, word); err != nil {
			return fmt.Errorf("corpus store: insert word: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("corpus store: commit: %w", err)
	}
	return nil
}

// Ping verifies the database connection. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
