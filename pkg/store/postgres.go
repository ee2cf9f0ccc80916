package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// DefaultPostgresConfig returns a config with sensible defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		Database:        "quicknotes",
		User:            "quicknotes",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		ConnectTimeout:  10 * time.Second,
	}
}

// ConnectionString builds a PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// Validate checks required fields.
func (c *PostgresConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS meetings (
	id           TEXT PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL,
	title        TEXT NOT NULL,
	language     TEXT NOT NULL DEFAULT '',
	audio_path   TEXT NOT NULL DEFAULT '',
	segments     JSONB NOT NULL DEFAULT '[]',
	summary      JSONB NOT NULL DEFAULT '[]',
	tags         JSONB NOT NULL DEFAULT '[]',
	status       TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS action_items (
	id          TEXT PRIMARY KEY,
	meeting_id  TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	seq         INT NOT NULL,
	description TEXT NOT NULL,
	assignee    TEXT NOT NULL DEFAULT '',
	due_date    DATE,
	priority    TEXT NOT NULL,
	completed   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS chunks (
	meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	seq        INT NOT NULL,
	text       TEXT NOT NULL,
	embedding  JSONB NOT NULL,
	PRIMARY KEY (meeting_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_action_items_meeting ON action_items(meeting_id);
`

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPostgresStore connects to PostgreSQL and bootstraps the schema.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig, logger logging.Logger) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Info("database connected",
		logging.F("host", cfg.Host),
		logging.F("database", cfg.Database))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// SaveMeeting inserts or fully replaces a meeting record.
func (s *PostgresStore) SaveMeeting(ctx context.Context, m *note.Meeting) error {
	segments, err := json.Marshal(m.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	summary, err := json.Marshal(m.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO meetings (id, created_at, title, language, audio_path, segments, summary, tags, status, failed_stage, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			language = EXCLUDED.language,
			audio_path = EXCLUDED.audio_path,
			segments = EXCLUDED.segments,
			summary = EXCLUDED.summary,
			tags = EXCLUDED.tags,
			status = EXCLUDED.status,
			failed_stage = EXCLUDED.failed_stage,
			error = EXCLUDED.error`,
		m.ID, m.CreatedAt, m.Title, m.Language, m.AudioPath, segments, summary, tags,
		string(m.Status), string(m.FailedStage), m.Error)
	if err != nil {
		return fmt.Errorf("save meeting: %w", err)
	}
	return nil
}

// GetMeeting returns a meeting by id.
func (s *PostgresStore) GetMeeting(ctx context.Context, id string) (*note.Meeting, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, created_at, title, language, audio_path, segments, summary, tags, status, failed_stage, error
		FROM meetings WHERE id = $1`, id)

	m, err := scanMeeting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("meeting %s: %w", id, qnerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// ListMeetings returns all meetings, newest first.
func (s *PostgresStore) ListMeetings(ctx context.Context) ([]*note.Meeting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, title, language, audio_path, segments, summary, tags, status, failed_stage, error
		FROM meetings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// SearchMeetings returns meetings containing the keyword in title,
// transcript, or summary, newest first.
func (s *PostgresStore) SearchMeetings(ctx context.Context, keyword string) ([]*note.Meeting, error) {
	pattern := "%" + keyword + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, title, language, audio_path, segments, summary, tags, status, failed_stage, error
		FROM meetings
		WHERE title ILIKE $1 OR segments::text ILIKE $1 OR summary::text ILIKE $1
		ORDER BY created_at DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search meetings: %w", err)
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// DeleteMeeting removes a meeting; action items and chunks cascade.
func (s *PostgresStore) DeleteMeeting(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %s: %w", id, qnerrors.ErrNotFound)
	}
	return nil
}

// ReplaceActionItems swaps a meeting's action item set in one transaction.
func (s *PostgresStore) ReplaceActionItems(ctx context.Context, meetingID string, items []note.ActionItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM action_items WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("clear action items: %w", err)
	}
	for i, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO action_items (id, meeting_id, seq, description, assignee, due_date, priority, completed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, meetingID, i, item.Description, item.Assignee, item.DueDate,
			string(item.Priority), item.Completed)
		if err != nil {
			return fmt.Errorf("insert action item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ListActionItems returns a meeting's action items in extraction order.
func (s *PostgresStore) ListActionItems(ctx context.Context, meetingID string) ([]note.ActionItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, meeting_id, description, assignee, due_date, priority, completed
		FROM action_items WHERE meeting_id = $1 ORDER BY seq`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	defer rows.Close()

	var items []note.ActionItem
	for rows.Next() {
		var item note.ActionItem
		var priority string
		if err := rows.Scan(&item.ID, &item.MeetingID, &item.Description, &item.Assignee,
			&item.DueDate, &priority, &item.Completed); err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		item.Priority = note.Priority(priority)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ToggleActionItem flips the completion flag and returns the updated item.
func (s *PostgresStore) ToggleActionItem(ctx context.Context, itemID string) (*note.ActionItem, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE action_items SET completed = NOT completed
		WHERE id = $1
		RETURNING id, meeting_id, description, assignee, due_date, priority, completed`, itemID)

	var item note.ActionItem
	var priority string
	err := row.Scan(&item.ID, &item.MeetingID, &item.Description, &item.Assignee,
		&item.DueDate, &priority, &item.Completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("action item %s: %w", itemID, qnerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("toggle action item: %w", err)
	}
	item.Priority = note.Priority(priority)
	return &item, nil
}

// ReplaceChunks swaps a meeting's chunk set in one transaction.
func (s *PostgresStore) ReplaceChunks(ctx context.Context, meetingID string, chunks []note.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for _, c := range chunks {
		embedding, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO chunks (meeting_id, seq, text, embedding)
			VALUES ($1, $2, $3, $4)`,
			meetingID, c.Seq, c.Text, embedding); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ListChunks returns all chunks across meetings.
func (s *PostgresStore) ListChunks(ctx context.Context) ([]note.Chunk, error) {
	rows, err := s.pool.Query(ctx, `SELECT meeting_id, seq, text, embedding FROM chunks ORDER BY meeting_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []note.Chunk
	for rows.Next() {
		var c note.Chunk
		var embedding []byte
		if err := rows.Scan(&c.MeetingID, &c.Seq, &c.Text, &embedding); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(embedding, &c.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunks removes a meeting's chunks.
func (s *PostgresStore) DeleteChunks(ctx context.Context, meetingID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*note.Meeting, error) {
	var m note.Meeting
	var segments, summary, tags []byte
	var status, failedStage string
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.Title, &m.Language, &m.AudioPath,
		&segments, &summary, &tags, &status, &failedStage, &m.Error); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(segments, &m.Segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	if err := json.Unmarshal(summary, &m.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if err := json.Unmarshal(tags, &m.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	m.Status = note.Status(status)
	m.FailedStage = note.Stage(failedStage)
	return &m, nil
}

func collectMeetings(rows pgx.Rows) ([]*note.Meeting, error) {
	var meetings []*note.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}
