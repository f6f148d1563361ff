package context_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
)

// PostgresStore implements Store over a pgx connection pool. Records are
// stored as JSONB documents keyed by user id, so field names round-trip
// exactly as the file store writes them.
type PostgresStore struct {
	db  *pgxpool.Pool
	log logger.Logger
}

// NewPostgresStore creates a new Postgres-backed context store.
func NewPostgresStore(db *pgxpool.Pool, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: log,
	}
}

// GetUserPreferences returns the user's preference patterns.
func (s *PostgresStore) GetUserPreferences(ctx context.Context, userID string) ([]context_provider.PreferencePattern, error) {
	rows, err := s.db.Query(ctx,
		`SELECT pattern FROM user_preferences WHERE user_id = $1 ORDER BY category, value`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query user preferences: %w", err)
	}
	defer rows.Close()

	var patterns []context_provider.PreferencePattern
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan preference pattern: %w", err)
		}
		var pattern context_provider.PreferencePattern
		if err := json.Unmarshal(raw, &pattern); err != nil {
			return nil, fmt.Errorf("unmarshal preference pattern: %w", err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, rows.Err()
}

// StoreUserPreference upserts one pattern keyed by (user, category, value).
func (s *PostgresStore) StoreUserPreference(ctx context.Context, userID string, pattern context_provider.PreferencePattern) error {
	raw, err := json.Marshal(pattern)
	if err != nil {
		return fmt.Errorf("marshal preference pattern: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO user_preferences (user_id, category, value, pattern)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, category, value) DO UPDATE SET pattern = EXCLUDED.pattern`,
		userID, pattern.Category, pattern.Value, raw)
	if err != nil {
		return fmt.Errorf("store user preference: %w", err)
	}
	return nil
}

// GetConversationData returns the most recent turns, oldest first, up to limit.
func (s *PostgresStore) GetConversationData(ctx context.Context, userID string, limit int) ([]context_provider.ConversationTurn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT turn FROM (
		     SELECT id, turn FROM conversation_turns
		     WHERE user_id = $1 ORDER BY id DESC LIMIT $2
		 ) recent ORDER BY id ASC`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []context_provider.ConversationTurn
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		var turn context_provider.ConversationTurn
		if err := json.Unmarshal(raw, &turn); err != nil {
			return nil, fmt.Errorf("unmarshal conversation turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// StoreConversationData appends one turn.
func (s *PostgresStore) StoreConversationData(ctx context.Context, userID string, turn context_provider.ConversationTurn) error {
	raw, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal conversation turn: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO conversation_turns (user_id, created_at, turn) VALUES ($1, $2, $3)`,
		userID, turn.Timestamp, raw)
	if err != nil {
		return fmt.Errorf("store conversation turn: %w", err)
	}
	return nil
}

// GetUserProfile returns the stored profile, or (nil, nil) when absent.
func (s *PostgresStore) GetUserProfile(ctx context.Context, userID string) (*context_provider.UserProfile, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT profile FROM user_profiles WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user profile: %w", err)
	}

	var profile context_provider.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal user profile: %w", err)
	}
	return &profile, nil
}

// SaveUserProfile persists the merged profile.
func (s *PostgresStore) SaveUserProfile(ctx context.Context, userID string, profile context_provider.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal user profile: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO user_profiles (user_id, profile, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = now()`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}
	return nil
}

// StoreMemoryEntry upserts one memory entry by id.
func (s *PostgresStore) StoreMemoryEntry(ctx context.Context, userID string, entry context_provider.MemoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal memory entry: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO memory_entries (user_id, memory_id, content, created_at, entry)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, memory_id) DO UPDATE SET
		     content = EXCLUDED.content, entry = EXCLUDED.entry`,
		userID, entry.ID, entry.Content, entry.CreatedAt, raw)
	if err != nil {
		return fmt.Errorf("store memory entry: %w", err)
	}
	return nil
}

// GetMemories returns stored memories, newest first, up to limit.
func (s *PostgresStore) GetMemories(ctx context.Context, userID string, limit int) ([]context_provider.MemoryEntry, error) {
	query := `SELECT entry FROM memory_entries
		 WHERE user_id = $1 ORDER BY created_at DESC, memory_id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	return scanMemoryRows(rows)
}

// SearchMemories returns memories whose content or tags match any query word,
// newest first, up to limit.
func (s *PostgresStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]context_provider.MemoryEntry, error) {
	queryWords := extractWords(query)
	if len(queryWords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	// One ILIKE clause per query word, checked against content and the tags array.
	conditions := make([]string, 0, len(queryWords))
	args := []any{userID}
	for word := range queryWords {
		args = append(args, "%"+word+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(content ILIKE $%d OR entry->>'tags' ILIKE $%d)", idx, idx))
	}
	args = append(args, limit)

	sql := fmt.Sprintf(
		`SELECT entry FROM memory_entries
		 WHERE user_id = $1 AND (%s)
		 ORDER BY created_at DESC, memory_id LIMIT $%d`,
		strings.Join(conditions, " OR "), len(args))

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	return scanMemoryRows(rows)
}

// DeleteMemoryEntry removes one memory entry. Absent entries are ignored.
func (s *PostgresStore) DeleteMemoryEntry(ctx context.Context, userID, memoryID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM memory_entries WHERE user_id = $1 AND memory_id = $2`,
		userID, memoryID)
	if err != nil {
		return fmt.Errorf("delete memory entry: %w", err)
	}
	return nil
}

// GetContextSummary returns the stored summary of the given type.
func (s *PostgresStore) GetContextSummary(ctx context.Context, userID, summaryType string) (string, bool, error) {
	var summary string
	err := s.db.QueryRow(ctx,
		`SELECT summary FROM context_summaries WHERE user_id = $1 AND summary_type = $2`,
		userID, summaryType).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query context summary: %w", err)
	}
	return summary, true, nil
}

// StoreContextSummary persists one summary.
func (s *PostgresStore) StoreContextSummary(ctx context.Context, userID, summaryType, summary string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO context_summaries (user_id, summary_type, summary, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, summary_type) DO UPDATE SET
		     summary = EXCLUDED.summary, updated_at = now()`,
		userID, summaryType, summary)
	if err != nil {
		return fmt.Errorf("store context summary: %w", err)
	}
	return nil
}

// ListUsers returns every user id with stored state.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id FROM user_profiles
		 UNION SELECT user_id FROM memory_entries
		 UNION SELECT user_id FROM conversation_turns
		 UNION SELECT user_id FROM user_preferences
		 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, userID)
	}
	return users, rows.Err()
}

func scanMemoryRows(rows pgx.Rows) ([]context_provider.MemoryEntry, error) {
	var entries []context_provider.MemoryEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		var entry context_provider.MemoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal memory entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
