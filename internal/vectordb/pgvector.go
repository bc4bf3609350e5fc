package vectordb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ziadkadry99/course-assistant/internal/embeddings"
)

// PGIndex implements Index on PostgreSQL with the pgvector extension.
// Rows are ordered by a BIGSERIAL column, which doubles as the insertion
// sequence for tie-breaking.
type PGIndex struct {
	pool     *pgxpool.Pool
	table    string
	embedder embeddings.Embedder

	mu     sync.RWMutex
	exists bool
}

// NewPGIndex connects to dsn. The table is created on the first Add.
func NewPGIndex(ctx context.Context, dsn, table string, embedder embeddings.Embedder) (*PGIndex, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PGIndex{
		pool:     pool,
		table:    pgx.Identifier{table}.Sanitize(),
		embedder: embedder,
	}, nil
}

func (p *PGIndex) LoadOrInit(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var found bool
	err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, p.table).Scan(&found)
	if err != nil {
		return fmt.Errorf("check index table: %w", err)
	}
	if !found {
		return nil
	}

	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM `+p.table).Scan(&n); err != nil {
		return fmt.Errorf("count index rows: %w", err)
	}
	p.exists = n > 0
	return nil
}

func (p *PGIndex) create(ctx context.Context, dims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq        BIGSERIAL PRIMARY KEY,
			id         TEXT NOT NULL UNIQUE,
			source     TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.table, dims),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index table: %w", err)
		}
	}
	return nil
}

func (p *PGIndex) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			texts = append(texts, c.Text)
		}
	}
	var vecs [][]float32
	if len(texts) > 0 {
		var err error
		vecs, err = p.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vecs), len(texts))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	batch := &pgx.Batch{}
	next := 0
	dims := 0
	for _, c := range chunks {
		vec := c.Embedding
		if len(vec) == 0 {
			vec = vecs[next]
			next++
		}
		if dims == 0 {
			dims = len(vec)
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		v := pgvector.NewVector(vec)
		batch.Queue(
			`INSERT INTO `+p.table+` (id, source, content, embedding) VALUES ($1, $2, $3, $4)`,
			id, c.Source, c.Text, &v,
		)
	}

	if !p.exists {
		if err := p.create(ctx, dims); err != nil {
			return err
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close insert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	p.exists = true
	return nil
}

func (p *PGIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.exists {
		return nil, ErrNotReady
	}
	if k <= 0 {
		return nil, nil
	}

	vec, err := embeddings.EmbedOne(ctx, p.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv := pgvector.NewVector(vec)

	rows, err := p.pool.Query(ctx,
		`SELECT seq, id, source, content, 1 - (embedding <=> $1) AS similarity
		 FROM `+p.table+`
		 ORDER BY embedding <=> $1, seq
		 LIMIT $2`,
		&qv, k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sim float64
		if err := rows.Scan(&r.Seq, &r.Chunk.ID, &r.Chunk.Source, &r.Chunk.Text, &sim); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Similarity = float32(sim)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *PGIndex) Exists() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exists
}

func (p *PGIndex) Count() int {
	if !p.Exists() {
		return 0
	}
	var n int
	if err := p.pool.QueryRow(context.Background(), `SELECT count(*) FROM `+p.table).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (p *PGIndex) Stats() Stats {
	return Stats{Backend: "pgvector", Exists: p.Exists(), Chunks: p.Count()}
}

func (p *PGIndex) Close() error {
	p.pool.Close()
	return nil
}
