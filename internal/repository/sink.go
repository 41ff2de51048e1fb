package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type column struct {
	name    string
	sqlType string
}

// tableSchemas fixes the column set per metadata table. EnsureTable refuses
// tables it does not know about so a typo in a table name fails loudly
// instead of creating an empty orphan table.
var tableSchemas = map[string][]column{
	"plan_metadata": {
		{"invocation_id", "TEXT"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"summary", "TEXT"},
		{"facts", "TEXT"},
		{"inferences", "TEXT"},
		{"execution_time", "TEXT"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
	"mcq_metadata": {
		{"invocation_id", "TEXT"},
		{"question_type", "TEXT"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"mcq", "TEXT"},
		{"mcq_answer", "TEXT"},
		{"attempt", "INTEGER"},
		{"chunk", "TEXT"},
		{"execution_time", "TEXT"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
	"evaluation_metadata": {
		{"invocation_id", "TEXT"},
		{"question_type", "TEXT"},
		{"mcq", "TEXT"},
		{"mcq_answer", "TEXT"},
		{"source", "TEXT"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"evaluation", "TEXT"},
		{"revised_mcq", "TEXT"},
		{"revised_answer", "TEXT"},
		{"reasoning", "TEXT"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
	"ranking_metadata": {
		{"invocation_id", "TEXT"},
		{"question_type", "TEXT"},
		{"candidates", "TEXT"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"selected_index", "INTEGER"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
	"workflow_metadata": {
		{"invocation_id", "TEXT"},
		{"output", "TEXT"},
		{"execution_time", "TEXT"},
	},
	"syntactic_analysis_metadata": {
		{"invocation_id", "TEXT"},
		{"question_stem", "TEXT"},
		{"options", "TEXT"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"syntactic_rule", "TEXT"},
		{"confidence", "TEXT"},
		{"reasoning", "TEXT"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
	"candidate_shortening_metadata": {
		{"invocation_id", "TEXT"},
		{"option_to_shorten", "TEXT"},
		{"syntactic_rule", "TEXT"},
		{"min_target", "INTEGER"},
		{"max_target", "INTEGER"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"candidates", "TEXT"},
		{"reasoning", "TEXT"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
	"candidate_selection_metadata": {
		{"invocation_id", "TEXT"},
		{"option_to_shorten", "TEXT"},
		{"syntactic_rule", "TEXT"},
		{"min_target", "INTEGER"},
		{"max_target", "INTEGER"},
		{"candidates", "TEXT"},
		{"system_prompt", "TEXT"},
		{"user_prompt", "TEXT"},
		{"model", "TEXT"},
		{"completion", "TEXT"},
		{"best_candidate", "TEXT"},
		{"reasoning", "TEXT"},
		{"input_tokens", "INTEGER"},
		{"output_tokens", "INTEGER"},
	},
}

// SQLiteSink implements domain.MetadataSink backed by a single SQLite file.
// Every row gets a ULID id and an ISO-8601 insertion timestamp.
type SQLiteSink struct {
	db *sqlx.DB

	mu      sync.Mutex
	ensured map[string]bool
}

// Open connects to the SQLite database file, creating it if missing.
func Open(databaseFile string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", databaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", databaseFile, err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteSink creates a sink over an open connection.
func NewSQLiteSink(db *sqlx.DB) *SQLiteSink {
	return &SQLiteSink{db: db, ensured: make(map[string]bool)}
}

var _ domain.MetadataSink = (*SQLiteSink)(nil)

// EnsureTable creates the table if it does not exist yet.
func (s *SQLiteSink) EnsureTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[table] {
		return nil
	}

	schema, ok := tableSchemas[table]
	if !ok {
		return domain.NewSinkError(table, fmt.Errorf("unknown table %q", table))
	}

	defs := make([]string, 0, len(schema)+2)
	defs = append(defs, "id TEXT PRIMARY KEY")
	for _, col := range schema {
		defs = append(defs, col.name+" "+col.sqlType)
	}
	defs = append(defs, "timestamp TEXT")

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return domain.NewSinkError(table, err)
	}
	s.ensured[table] = true
	return nil
}

// Insert writes one record. Record keys outside the table schema are ignored;
// schema columns missing from the record are stored as NULL.
func (s *SQLiteSink) Insert(ctx context.Context, record map[string]any, table string) error {
	schema, ok := tableSchemas[table]
	if !ok {
		return domain.NewSinkError(table, fmt.Errorf("unknown table %q", table))
	}
	if err := s.EnsureTable(ctx, table); err != nil {
		return err
	}

	names := make([]string, 0, len(schema)+2)
	placeholders := make([]string, 0, len(schema)+2)
	values := make([]any, 0, len(schema)+2)

	names = append(names, "id", "timestamp")
	placeholders = append(placeholders, "?", "?")
	values = append(values, util.NewULID(), time.Now().Format(time.RFC3339Nano))

	for _, col := range schema {
		names = append(names, col.name)
		placeholders = append(placeholders, "?")
		values = append(values, record[col.name])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
		return domain.NewSinkError(table, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
