// Package memory implements the agent's persistent episodic memory.
//
// It uses SQLite (pure-Go driver) with three tables: memories for episodic
// entries, error_patterns for learned failure/solution pairs, and tasks for
// pre-analysis context. The store assumes a single writer per goroutine and
// tolerates eventually consistent reads from the background monitor.
package memory

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/drover/internal/config"
)

// timeLayout is fixed-width, unlike RFC3339Nano, so lexicographic order on
// the TEXT timestamp columns matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is a single episodic memory row. Entries are never mutated after
// creation; re-storing identical content is an idempotent upsert.
type Entry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Category   string         `json:"category"`
	Content    map[string]any `json:"content"`
	Importance float64        `json:"importance"`
	Tags       []string       `json:"tags"`
	Success    bool           `json:"success"`
}

// ErrorPattern is a learned (error type, context) -> solution row. One row
// per key pair; later writes overwrite.
type ErrorPattern struct {
	ID            string    `json:"id"`
	ErrorType     string    `json:"error_type"`
	ErrorContext  string    `json:"error_context"`
	Solution      string    `json:"solution"`
	Effectiveness float64   `json:"effectiveness"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskContext is advisory pre-analysis metadata for a goal.
type TaskContext struct {
	TaskID          string    `json:"task_id"`
	Description     string    `json:"description"`
	ComplexityScore float64   `json:"complexity_score"`
	EstimatedSteps  int       `json:"estimated_steps"`
	Dependencies    []string  `json:"dependencies"`
	CreatedAt       time.Time `json:"created_at"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	Artifacts       []string  `json:"artifacts"`
}

// QueryOptions filters a memory query.
type QueryOptions struct {
	Category      string
	Tags          []string
	MinImportance float64
	Limit         int
}

// Stats aggregates store-wide counters.
type Stats struct {
	TotalMemories      int            `json:"total_memories"`
	SuccessfulMemories int            `json:"successful_memories"`
	ErrorPatterns      int            `json:"error_patterns"`
	Categories         map[string]int `json:"categories"`
}

// Store wraps the SQLite database. Safe for one writer at a time; the mutex
// serializes writes from the loop and the monitor.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
	cfg    config.MemoryConfig
}

// New opens (creating if needed) the database at cfg.Path and migrates it.
func New(cfg config.MemoryConfig, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open memory database %s: %w", cfg.Path, err)
	}
	// modernc sqlite is safest with a single connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger.Named("memory"), cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		importance REAL NOT NULL,
		tags TEXT NOT NULL,
		success INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
	CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance);

	CREATE TABLE IF NOT EXISTS error_patterns (
		id TEXT PRIMARY KEY,
		error_type TEXT NOT NULL,
		error_context TEXT NOT NULL,
		solution TEXT NOT NULL,
		effectiveness REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_error_patterns_type ON error_patterns(error_type);

	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		complexity_score REAL NOT NULL,
		estimated_steps INTEGER NOT NULL,
		dependencies TEXT NOT NULL,
		created_at TEXT NOT NULL,
		status TEXT NOT NULL,
		progress REAL NOT NULL,
		artifacts TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate memory schema: %w", err)
	}
	return nil
}

// contentID derives a stable id from category, canonical content, and the
// creation instant, so identical re-stores in the same instant collapse into
// one row.
func contentID(category string, content map[string]any, ts time.Time) string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(category)
	for _, k := range keys {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		if data, err := json.Marshal(content[k]); err == nil {
			sb.Write(data)
		}
	}
	sb.WriteString("|")
	sb.WriteString(ts.Format(time.RFC3339))

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Record stores one memory entry and returns its id. Importance is clamped
// to [0,1].
func (s *Store) Record(category string, content map[string]any, importance float64, tags []string, success bool) (string, error) {
	if importance < 0 {
		importance = 0
	} else if importance > 1 {
		importance = 1
	}
	if tags == nil {
		tags = []string{}
	}
	now := time.Now().UTC()
	id := contentID(category, content, now)

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal memory content: %w", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal memory tags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO memories (id, timestamp, category, content, importance, tags, success)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, now.Format(timeLayout), category, string(contentJSON),
		importance, string(tagsJSON), boolToInt(success))
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}
	return id, nil
}

// Query returns entries matching the filters, ordered by importance then
// recency. Tag filtering keeps entries sharing at least one requested tag.
func (s *Store) Query(opts QueryOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := "SELECT id, timestamp, category, content, importance, tags, success FROM memories WHERE importance >= ?"
	args := []any{opts.MinImportance}
	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}
	query += " ORDER BY importance DESC, timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			ts          string
			contentJSON string
			tagsJSON    string
			success     int
		)
		if err := rows.Scan(&e.ID, &ts, &e.Category, &contentJSON, &e.Importance, &tagsJSON, &success); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		e.Success = success != 0
		if err := json.Unmarshal([]byte(contentJSON), &e.Content); err != nil {
			s.logger.Warn("Skipping memory with undecodable content", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			e.Tags = nil
		}

		if len(opts.Tags) > 0 && !tagOverlap(e.Tags, opts.Tags) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func tagOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// LearnFromError records a solution for an (error type, context) pair. The id
// is derived from the key alone, so later writes overwrite.
func (s *Store) LearnFromError(errorType, errorContext, solution string, effectiveness float64) error {
	sum := sha256.Sum256([]byte(errorType + "_" + errorContext))
	id := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO error_patterns (id, error_type, error_context, solution, effectiveness, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, errorType, errorContext, solution, effectiveness, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert error pattern: %w", err)
	}
	return nil
}

// ErrorSolutions returns known solutions for an error type, optionally
// narrowed by a substring match on the recorded context, most effective first.
func (s *Store) ErrorSolutions(errorType, contextSubstring string) ([]ErrorPattern, error) {
	query := "SELECT id, error_type, error_context, solution, effectiveness, created_at FROM error_patterns WHERE error_type = ?"
	args := []any{errorType}
	if contextSubstring != "" {
		query += " AND error_context LIKE ?"
		args = append(args, "%"+contextSubstring+"%")
	}
	query += " ORDER BY effectiveness DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error patterns: %w", err)
	}
	defer rows.Close()

	var patterns []ErrorPattern
	for rows.Next() {
		var p ErrorPattern
		var ts string
		if err := rows.Scan(&p.ID, &p.ErrorType, &p.ErrorContext, &p.Solution, &p.Effectiveness, &ts); err != nil {
			return nil, fmt.Errorf("scan error pattern: %w", err)
		}
		p.CreatedAt, _ = time.Parse(timeLayout, ts)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// StoreTask persists pre-analysis context for a goal.
func (s *Store) StoreTask(task TaskContext) error {
	deps, err := json.Marshal(task.Dependencies)
	if err != nil {
		return fmt.Errorf("marshal task dependencies: %w", err)
	}
	artifacts, err := json.Marshal(task.Artifacts)
	if err != nil {
		return fmt.Errorf("marshal task artifacts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO tasks (task_id, description, complexity_score, estimated_steps, dependencies, created_at, status, progress, artifacts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskID, task.Description, task.ComplexityScore, task.EstimatedSteps,
		string(deps), task.CreatedAt.UTC().Format(timeLayout), task.Status,
		task.Progress, string(artifacts))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask fetches one task context, or nil when absent.
func (s *Store) GetTask(taskID string) (*TaskContext, error) {
	row := s.db.QueryRow(`
		SELECT task_id, description, complexity_score, estimated_steps, dependencies, created_at, status, progress, artifacts
		FROM tasks WHERE task_id = ?`, taskID)

	var (
		t         TaskContext
		deps      string
		ts        string
		artifacts string
	)
	err := row.Scan(&t.TaskID, &t.Description, &t.ComplexityScore, &t.EstimatedSteps, &deps, &ts, &t.Status, &t.Progress, &artifacts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.CreatedAt, _ = time.Parse(timeLayout, ts)
	_ = json.Unmarshal([]byte(deps), &t.Dependencies)
	_ = json.Unmarshal([]byte(artifacts), &t.Artifacts)
	return &t, nil
}

// ContextSummary builds a text block of relevant past experience for prompt
// assembly. It never fails; on query errors it returns an empty string.
func (s *Store) ContextSummary(goal string) string {
	entries, err := s.Query(QueryOptions{
		MinImportance: 0.3,
		Limit:         s.cfg.ContextItems,
	})
	if err != nil {
		s.logger.Warn("Context summary query failed", zap.Error(err))
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Relevant Past Experiences:\n")
	shown := 0
	for _, e := range entries {
		if !e.Success {
			continue
		}
		data, err := json.Marshal(e.Content)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", e.Category, truncate(string(data), 200)))
		shown++
		if shown >= s.cfg.ContextItems/2 {
			break
		}
	}
	if shown == 0 {
		return ""
	}

	recent, err := s.Query(QueryOptions{Category: "tool_usage", Limit: 5})
	if err == nil && len(recent) > 0 {
		sb.WriteString("Recent Tool Activity:\n")
		for _, e := range recent {
			if tool, ok := e.Content["tool"].(string); ok {
				sb.WriteString(fmt.Sprintf("  - %s\n", tool))
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Cleanup deletes entries older than the eviction horizon whose importance is
// below the floor. Returns the number of rows removed.
func (s *Store) Cleanup() (int64, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.EvictionAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"DELETE FROM memories WHERE timestamp < ? AND importance < ?",
		cutoff.Format(timeLayout), s.cfg.ImportanceFloor)
	if err != nil {
		return 0, fmt.Errorf("evict memories: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("Evicted aged memories", zap.Int64("count", n))
	}
	return n, nil
}

// GetStats aggregates store counters.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{Categories: map[string]int{}}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&stats.TotalMemories); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM memories WHERE success = 1").Scan(&stats.SuccessfulMemories); err != nil {
		return nil, fmt.Errorf("count successful memories: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM error_patterns").Scan(&stats.ErrorPatterns); err != nil {
		return nil, fmt.Errorf("count error patterns: %w", err)
	}

	rows, err := s.db.Query("SELECT category, COUNT(*) FROM memories GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		stats.Categories[category] = count
	}
	return stats, rows.Err()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
