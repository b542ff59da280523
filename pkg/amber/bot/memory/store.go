// Package memory – store.go implements the SQLite-backed semantic memory.
// Each record pairs a conversational utterance (or learned fact) with its
// embedding, stored as a JSON-encoded float32 array. Retrieval is an
// in-process cosine-similarity scan over the user's records, which is fine
// for the expected low-thousands per user. The scan is isolated behind
// rankBySimilarity so an ANN index could replace it without touching callers.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// Role identifies who produced a record's content.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Record is one persisted memory: an utterance or learned fact plus its
// embedding. Records are append-only; they are never updated or deleted.
type Record struct {
	ID        string
	UserID    string
	Role      Role
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Store is the interface the assistant core depends on.
type Store interface {
	Add(ctx context.Context, content, userID string, role Role) (*Record, error)
	Query(ctx context.Context, text, userID string, limit int) ([]Record, error)
}

// SQLiteStore persists memory records in SQLite.
type SQLiteStore struct {
	db       *sql.DB
	embedder EmbeddingProvider
	logger   *slog.Logger
}

// NewSQLiteStore opens (or creates) the memory database.
func NewSQLiteStore(dbPath string, embedder EmbeddingProvider, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates the memories table and index.
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add embeds content and persists one record. An embedding failure does not
// lose the record: the zero vector is stored instead, which ranks as "no
// similarity" in every future query.
func (s *SQLiteStore) Add(ctx context.Context, content, userID string, role Role) (*Record, error) {
	vec := s.embedText(ctx, content)

	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}

	embJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, role, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, string(rec.Role), rec.Content, string(embJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return rec, nil
}

// Query embeds text and returns the user's top records by cosine similarity,
// descending. Records whose stored embedding has zero norm (a past embedding
// failure) never match. Limit defaults to 3.
func (s *SQLiteStore) Query(ctx context.Context, text, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 3
	}

	queryVec := s.embedText(ctx, text)
	if norm(queryVec) == 0 {
		// Embedding failed — degrade to "no matches" rather than erroring
		// out of the response path.
		return nil, nil
	}

	records, err := s.loadUserRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	return rankBySimilarity(queryVec, records, limit), nil
}

// CountForUser returns the number of records stored for a user.
func (s *SQLiteStore) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memories WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// embedText embeds a single text, substituting the zero vector on failure.
// The failure is logged here so callers stay on the happy path.
func (s *SQLiteStore) embedText(ctx context.Context, text string) []float32 {
	embeddings, err := s.embedder.Embed(ctx, []string{text})
	if err != nil || len(embeddings) == 0 || len(embeddings[0]) == 0 {
		if err != nil {
			s.logger.Warn("embedding failed, using zero vector", "error", err)
		}
		return make([]float32, s.embedder.Dimensions())
	}
	return embeddings[0]
}

// loadUserRecords fetches all of a user's records, newest first.
func (s *SQLiteStore) loadUserRecords(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, embedding, created_at
		FROM memories
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var role, embJSON, createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &role, &r.Content, &embJSON, &createdAt); err != nil {
			continue
		}
		r.Role = Role(role)
		if err := json.Unmarshal([]byte(embJSON), &r.Embedding); err != nil {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// rankBySimilarity scores records against the query vector and returns the
// top limit by descending cosine similarity. Zero-norm record embeddings are
// skipped entirely (no similarity), never scored as NaN. Ties break toward
// the more recent record; records arrive newest-first, and the sort is
// stable, so recency is preserved for equal scores.
func rankBySimilarity(queryVec []float32, records []Record, limit int) []Record {
	type scored struct {
		rec   Record
		score float64
	}

	var candidates []scored
	for _, r := range records {
		if norm(r.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{rec: r, score: cosineSimilarity(queryVec, r.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.rec)
	}
	return results
}

// ---------- Math Helpers ----------

// cosineSimilarity computes the cosine similarity between two vectors:
// dot(a,b) / (norm(a) * norm(b)). Mismatched lengths or a zero-norm input
// return 0 rather than NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// norm computes the L2 norm of a vector.
func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
