package store

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/bmrcheck/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// VectorStore is a knowledge base kept in a pgvector table. Metadata is
// loaded once by Open and served from memory; only Search hits the database.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	meta   map[int64]models.ChunkMeta
}

func applyDefaults(config *VectorStoreConfig) {
	if config.TableName == "" {
		config.TableName = "master_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text and text-embedding-004
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
}

// NewWithConfig connects to the database without touching the schema.
func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	applyDefaults(&config)

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &VectorStore{
		config: config,
		pool:   pool,
		meta:   map[int64]models.ChunkMeta{},
	}, nil
}

// Open connects and loads the chunk metadata.
func Open(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	vs, err := NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := vs.loadMeta(ctx); err != nil {
		vs.Close()
		return nil, err
	}
	return vs, nil
}

// Initialize creates the extension and table if they do not exist. The
// vector index is built by Store once the table holds data.
func (vs *VectorStore) Initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_index BIGINT PRIMARY KEY,
			chunk_id TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// ivfflatLists follows the pgvector guideline of rows/1000 lists, at least 1.
func ivfflatLists(rows int) int {
	return max(1, rows/1000)
}

// Store replaces the table contents with the chunks of doc, BatchSize rows
// per round trip, and rebuilds the ivfflat index over the new rows. It runs
// in one transaction, so readers see either the old or the new master.
func (vs *VectorStore) Store(ctx context.Context, doc models.ProcessedDocument) error {
	if len(doc.Chunks) != len(doc.Embedding) {
		return fmt.Errorf("chunk count %d does not match embedding count %d", len(doc.Chunks), len(doc.Embedding))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	indexName := vs.config.TableName + "_embedding_idx"
	if _, err := tx.Exec(ctx, fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName)); err != nil {
		return fmt.Errorf("failed to drop index: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName)); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (chunk_index, chunk_id, source, content, embedding)
		VALUES ($1, $2, $3, $4, $5)`,
		vs.config.TableName)

	for start := 0; start < len(doc.Chunks); start += vs.config.BatchSize {
		end := min(start+vs.config.BatchSize, len(doc.Chunks))

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			c := doc.Chunks[i]
			batch.Queue(stmt,
				int64(c.ChunkIndex),
				c.ChunkID,
				sanitizeUTF8(c.Source),
				sanitizeUTF8(c.Text),
				pgvector.NewVector(doc.Embedding[i]),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert chunks %d-%d: %w", start, end-1, err)
		}
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX %s
		ON %s
		USING ivfflat (embedding vector_l2_ops)
		WITH (lists = %d)`,
		indexName, vs.config.TableName, ivfflatLists(len(doc.Chunks)))
	if _, err := tx.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (vs *VectorStore) loadMeta(ctx context.Context) error {
	query := fmt.Sprintf(`SELECT chunk_index, chunk_id, source, content FROM %s ORDER BY chunk_index`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}
	defer rows.Close()

	meta := map[int64]models.ChunkMeta{}
	for rows.Next() {
		var idx int64
		var m models.ChunkMeta
		if err := rows.Scan(&idx, &m.ChunkID, &m.Source, &m.Text); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		m.ChunkIndex = int(idx)
		meta[idx] = m
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}

	vs.meta = meta
	return nil
}

// Search returns squared L2 distances so scores line up with FlatIndex.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]float32, []int64, error) {
	if k <= 0 {
		return nil, nil, nil
	}

	query := fmt.Sprintf(`
		SELECT chunk_index, power(embedding <-> $1, 2)
		FROM %s
		ORDER BY embedding <-> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var distances []float32
	var indices []int64
	for rows.Next() {
		var idx int64
		var dist float64
		if err := rows.Scan(&idx, &dist); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		distances = append(distances, float32(dist))
		indices = append(indices, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	distances, indices = pad(distances, indices, k)
	return distances, indices, nil
}

// pad fills results up to k with index -1.
func pad(distances []float32, indices []int64, k int) ([]float32, []int64) {
	for len(indices) < k {
		distances = append(distances, math.MaxFloat32)
		indices = append(indices, -1)
	}
	return distances, indices
}

func (vs *VectorStore) Lookup(idx int64) (models.ChunkMeta, bool) {
	m, ok := vs.meta[idx]
	return m, ok
}

func (vs *VectorStore) Len() int { return len(vs.meta) }

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeUTF8 drops invalid bytes, which Postgres rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
