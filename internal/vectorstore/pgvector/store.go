// Package pgvector stores vector collections in PostgreSQL with the pgvector extension. Every
// collection is a table with a fixed-size vector column.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/similarity"
)

// pointNamespace derives stable row ids from point ids.
var pointNamespace = uuid.MustParse("6f1c0c8e-33a4-4f57-9a3e-7c1f8d0b5a21")

// Store is a similarity.Store backed by a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to dsn, makes sure the vector extension exists and registers its types on every
// pooled connection.
func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, matcherr.NewConfigurationError("vector-store.dsn", "VECTOR_STORE_DSN is not set")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := ensureExtension(ctx, dsn); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.AfterConnect = pgxvec.RegisterTypes

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Debug("connected to vector store")

	return &Store{pool: pool, logger: log}, nil
}

func ensureExtension(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func table(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// EnsureCollection implements similarity.Store.
func (s *Store) EnsureCollection(ctx context.Context, name string, size int) error {
	if size <= 0 {
		return fmt.Errorf("collection %s: invalid size %d", name, size)
	}

	current, err := s.collectionSize(ctx, name)
	if err != nil {
		return err
	}

	if current == size {
		s.logger.Debug("reusing collection", zap.String("collection", name), zap.Int("size", size))
		return nil
	}

	if current > 0 {
		s.logger.Info("collection size changed, recreating",
			zap.String("collection", name), zap.Int("was", current), zap.Int("size", size))
		if err := s.DeleteCollection(ctx, name); err != nil {
			return err
		}
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			seq bigserial,
			point_id text NOT NULL,
			payload text NOT NULL,
			embedding vector(%d) NOT NULL
		)`, table(name), size))
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	return nil
}

// collectionSize returns the declared vector size of the collection, or 0 when it does not exist.
func (s *Store) collectionSize(ctx context.Context, name string) (int, error) {
	var size int
	err := s.pool.QueryRow(ctx, `
		SELECT a.atttypmod FROM pg_attribute a
		WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding' AND NOT a.attisdropped`,
		table(name),
	).Scan(&size)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("inspect collection %s: %w", name, err)
	}
	return size, nil
}

// Upsert implements similarity.Store. All points are sent in one batch and every statement
// result is read before returning.
func (s *Store) Upsert(ctx context.Context, name string, points []similarity.Point) error {
	if len(points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, point_id, payload, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, embedding = EXCLUDED.embedding`,
		table(name))

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query, uuid.NewSHA1(pointNamespace, []byte(p.ID)), p.ID, p.Text, pgv.NewVector(p.Vector))
	}

	results := s.pool.SendBatch(ctx, batch)
	for _, p := range points {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upsert point %s: %w", p.ID, err)
		}
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	return nil
}

// Search implements similarity.Store. Score is 1 minus the cosine distance.
func (s *Store) Search(ctx context.Context, name string, query embedding.Vector, limit int) ([]similarity.Hit, error) {
	// LIMIT NULL returns every row.
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT point_id, (1 - (embedding <=> $1)) AS score, payload
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`, table(name)),
		pgv.NewVector(query), limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", name, err)
	}
	defer rows.Close()

	hits := []similarity.Hit{}
	for rows.Next() {
		var (
			hit   similarity.Hit
			score *float64
		)
		if err := rows.Scan(&hit.ID, &score, &hit.Text); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		// Distance is NaN for zero vectors; score them like Cosine does.
		if score != nil && !math.IsNaN(*score) {
			hit.Score = *score
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}

	return hits, nil
}

// DeleteCollection implements similarity.Store.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table(name))); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	return nil
}

var _ similarity.Store = (*Store)(nil)
