package database

import (
	"context"
	"errors"
	"fmt"

	"pdf-qa-assistant/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultTable is the table holding the chunk vectors
const DefaultTable = "pdf_chunks"

// VectorStore keeps chunk embeddings in PostgreSQL using pgvector.
// The table is dropped and recreated on every Reset, so nothing survives a rebuild.
// The table has no ANN index: Search scans every row and returns the exact top k.
type VectorStore struct {
	Pool      *pgxpool.Pool
	table     string
	dimension int
}

// NewVectorStore creates a new database connection
func NewVectorStore(ctx context.Context, connStr string) (*VectorStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &VectorStore{Pool: pool, table: DefaultTable}, nil
}

// WithTable selects the table used by the store; empty keeps the current one
func (db *VectorStore) WithTable(name string) *VectorStore {
	if name != "" {
		db.table = name
	}
	return db
}

// Reset recreates the chunk table for vectors of the given dimension
func (db *VectorStore) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}

	if _, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	table := pgx.Identifier{db.table}.Sanitize()
	if _, err := db.Pool.Exec(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("failed to drop %s: %w", db.table, err)
	}

	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE %s (
            id UUID PRIMARY KEY,
            position INTEGER NOT NULL,
            content TEXT NOT NULL,
            source TEXT NOT NULL,
            page_number INTEGER NOT NULL,
            page_offset INTEGER NOT NULL,
            embedding vector(%d) NOT NULL
        )`, table, dimension))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", db.table, err)
	}

	db.dimension = dimension
	return nil
}

// Add stores chunks in a single batch
func (db *VectorStore) Add(ctx context.Context, chunks []models.TextChunk) error {
	if db.dimension == 0 {
		return errors.New("vector store not initialized")
	}

	table := pgx.Identifier{db.table}.Sanitize()
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != db.dimension {
			return fmt.Errorf("chunk %s has dimension %d, expected %d", chunk.ID, len(chunk.Embedding), db.dimension)
		}
		batch.Queue(`
            INSERT INTO `+table+` (id, position, content, source, page_number, page_offset, embedding)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `,
			chunk.ID,
			chunk.Metadata.Position,
			chunk.Content,
			chunk.Metadata.Source,
			chunk.Metadata.PageNumber,
			chunk.Metadata.Offset,
			toVector(chunk.Embedding))
	}

	br := db.Pool.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to store chunk: %w", err)
		}
	}
	return br.Close()
}

// Search finds the k chunks closest to vector by cosine distance
func (db *VectorStore) Search(ctx context.Context, vector []float64, k int) ([]models.ScoredChunk, error) {
	if len(vector) != db.dimension {
		return nil, fmt.Errorf("query has dimension %d, expected %d", len(vector), db.dimension)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, position, content, source, page_number, page_offset,
		       1 - (embedding <=> $1) AS similarity
		FROM `+pgx.Identifier{db.table}.Sanitize()+`
		ORDER BY embedding <=> $1, position
		LIMIT $2
	`, toVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var sc models.ScoredChunk
		if err := rows.Scan(
			&sc.Chunk.ID,
			&sc.Chunk.Metadata.Position,
			&sc.Chunk.Content,
			&sc.Chunk.Metadata.Source,
			&sc.Chunk.Metadata.PageNumber,
			&sc.Chunk.Metadata.Offset,
			&sc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// Count returns the number of stored chunks
func (db *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM `+pgx.Identifier{db.table}.Sanitize()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (db *VectorStore) Close() {
	db.Pool.Close()
}

func toVector(v []float64) pgvector.Vector {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return pgvector.NewVector(f)
}
