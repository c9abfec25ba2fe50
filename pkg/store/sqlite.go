// Package store provides SQLite-backed persistence for questionnaire
// definitions and in-progress responses. It satisfies the formstate
// provider interfaces so an engine can load its definition and prior
// response straight from the database, and offers a change handler that
// autosaves drafts as the form is filled.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formstate/pkg/fhir"
	"github.com/goliatone/go-formstate/pkg/formstate"
)

// ErrNotFound reports a reference that matched no stored resource.
var ErrNotFound = errors.New("store: resource not found")

// schemaV1 defines the initial database schema. Resources persist as JSON
// documents; the extracted columns exist only for lookup.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS questionnaires (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	resource_json   TEXT NOT NULL,
	updated_at_unix INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_questionnaires_url ON questionnaires(url);

CREATE TABLE IF NOT EXISTS responses (
	id              TEXT PRIMARY KEY,
	questionnaire   TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	resource_json   TEXT NOT NULL,
	updated_at_unix INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_responses_questionnaire ON responses(questionnaire);
`

// Store wraps a SQLite database holding FHIR resources.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

var (
	_ formstate.DefinitionProvider = (*Store)(nil)
	_ formstate.ResponseLoader     = (*Store)(nil)
)

// Option mutates a Store during Open.
type Option func(*Store)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (or creates) a SQLite database at the given path with
// recommended pragmas and runs the schema migration.
func Open(path string, options ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// WAL allows concurrent reads but a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaV1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveQuestionnaire upserts a definition keyed by its id, assigning one
// when missing. Returns the id the definition is stored under.
func (s *Store) SaveQuestionnaire(ctx context.Context, q *fhir.Questionnaire) (string, error) {
	if q == nil {
		return "", errors.New("store: questionnaire is nil")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("store: encode questionnaire: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questionnaires (id, url, title, status, resource_json, updated_at_unix)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			status = excluded.status,
			resource_json = excluded.resource_json,
			updated_at_unix = excluded.updated_at_unix`,
		q.ID, q.URL, q.Title, q.Status, string(payload), s.now().Unix())
	if err != nil {
		return "", fmt.Errorf("store: save questionnaire %s: %w", q.ID, err)
	}

	s.logger.Debug().Str("questionnaire", q.ID).Msg("questionnaire saved")
	return q.ID, nil
}

// SaveResponse upserts a response keyed by its id, assigning one when
// missing. Returns the id the response is stored under.
func (s *Store) SaveResponse(ctx context.Context, qr *fhir.QuestionnaireResponse) (string, error) {
	if qr == nil {
		return "", errors.New("store: response is nil")
	}
	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}

	payload, err := json.Marshal(qr)
	if err != nil {
		return "", fmt.Errorf("store: encode response: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responses (id, questionnaire, status, resource_json, updated_at_unix)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			questionnaire = excluded.questionnaire,
			status = excluded.status,
			resource_json = excluded.resource_json,
			updated_at_unix = excluded.updated_at_unix`,
		qr.ID, qr.Questionnaire, qr.Status, string(payload), s.now().Unix())
	if err != nil {
		return "", fmt.Errorf("store: save response %s: %w", qr.ID, err)
	}
	return qr.ID, nil
}

// ResolveDefinition loads a questionnaire by reference: a bare id, a
// "Questionnaire/<id>" reference, or a canonical url.
func (s *Store) ResolveDefinition(ctx context.Context, ref string) (*fhir.Questionnaire, error) {
	if ref == "" {
		return nil, errors.New("store: questionnaire reference is required")
	}
	id := ref
	if rest, ok := strings.CutPrefix(ref, "Questionnaire/"); ok {
		id = rest
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT resource_json FROM questionnaires WHERE id = ? OR url = ? LIMIT 1`, id, ref)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: questionnaire %q: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("store: load questionnaire %q: %w", ref, err)
	}

	var q fhir.Questionnaire
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return nil, fmt.Errorf("store: decode questionnaire %q: %w", ref, err)
	}
	return &q, nil
}

// ResolveResponse loads a prior response by id. A missing row is not an
// error: the engine starts a fresh response in that case.
func (s *Store) ResolveResponse(ctx context.Context, ref string) (*fhir.QuestionnaireResponse, error) {
	if ref == "" {
		return nil, nil
	}
	id := ref
	if rest, ok := strings.CutPrefix(ref, "QuestionnaireResponse/"); ok {
		id = rest
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT resource_json FROM responses WHERE id = ? LIMIT 1`, id)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load response %q: %w", ref, err)
	}

	var qr fhir.QuestionnaireResponse
	if err := json.Unmarshal([]byte(payload), &qr); err != nil {
		return nil, fmt.Errorf("store: decode response %q: %w", ref, err)
	}
	return &qr, nil
}

// ResponseSink returns a change handler that autosaves every emitted
// response document. Save failures are logged, never propagated: a broken
// autosave must not take the form down mid-fill.
func (s *Store) ResponseSink(ctx context.Context) formstate.ChangeHandler {
	return func(qr *fhir.QuestionnaireResponse) {
		if _, err := s.SaveResponse(ctx, qr); err != nil {
			s.logger.Error().Err(err).Msg("autosave response failed")
		}
	}
}
