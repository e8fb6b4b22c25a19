// Package store records transcripts and clip manifests in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/transcript"
)

// connectTimeout bounds the initial ping.
const connectTimeout = 10 * time.Second

// Recorder persists pipeline artifacts.
type Recorder interface {
	SaveTranscript(ctx context.Context, source string, tr transcript.Transcript) (string, error)
	SaveClips(ctx context.Context, transcriptID, source string, results []clip.Result) error
	Transcript(ctx context.Context, id string) (Record, error)
}

// Record is a stored transcript.
type Record struct {
	ID         string                `json:"id"`
	Source     string                `json:"source"`
	Transcript transcript.Transcript `json:"transcript"`
	CreatedAt  time.Time             `json:"created_at"`
}

// querier is the subset of *pgxpool.Pool used here.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Compile-time interface compliance checks.
var (
	_ querier  = (*pgxpool.Pool)(nil)
	_ Recorder = (*Postgres)(nil)
)

// Postgres stores artifacts through a pgx connection pool.
type Postgres struct {
	db    querier
	pool  *pgxpool.Pool // nil when built from a querier in tests
	newID func() string
}

// Open connects to databaseURL, verifies the connection and creates the
// schema if needed.
func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}

	s := newPostgres(pool)
	s.pool = pool
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgres(db querier) *Postgres {
	return &Postgres{db: db, newID: uuid.NewString}
}

// Close releases the pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transcripts (
		id                UUID PRIMARY KEY,
		source            TEXT NOT NULL,
		text              TEXT NOT NULL,
		duration_estimate DOUBLE PRECISION NOT NULL,
		chunks            INTEGER NOT NULL,
		skipped_chunks    INTEGER NOT NULL,
		words             JSONB NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS clips (
		id            UUID PRIMARY KEY,
		transcript_id UUID REFERENCES transcripts(id) ON DELETE SET NULL,
		source        TEXT NOT NULL,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL,
		start_time    DOUBLE PRECISION NOT NULL,
		end_time      DOUBLE PRECISION NOT NULL,
		social_score  DOUBLE PRECISION NOT NULL,
		video_path    TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS clips_transcript_id_idx ON clips (transcript_id)`,
}

// EnsureSchema creates the tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveTranscript inserts tr and returns its new id.
func (s *Postgres) SaveTranscript(ctx context.Context, source string, tr transcript.Transcript) (string, error) {
	words := tr.Words
	if words == nil {
		words = []transcript.WordSpan{}
	}
	wordsJSON, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("encode words: %w", err)
	}

	id := s.newID()
	_, err = s.db.Exec(ctx,
		`INSERT INTO transcripts (id, source, text, duration_estimate, chunks, skipped_chunks, words)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, source, tr.Text, tr.DurationEstimate, tr.Chunks, tr.Skipped, wordsJSON)
	if err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return id, nil
}

// SaveClips inserts one row per result in a single batch. An empty
// transcriptID stores the clips unlinked.
func (s *Postgres) SaveClips(ctx context.Context, transcriptID, source string, results []clip.Result) (err error) {
	if len(results) == 0 {
		return nil
	}

	var tid *string
	if transcriptID != "" {
		tid = &transcriptID
	}

	b := &pgx.Batch{}
	for _, r := range results {
		b.Queue(`INSERT INTO clips (id, transcript_id, source, title, description, start_time, end_time, social_score, video_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.newID(), tid, source, r.Title, r.Description, r.StartTime, r.EndTime, r.SocialScore, r.VideoPath)
	}

	br := s.db.SendBatch(ctx, b)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("save clips: %w", closeErr)
		}
	}()
	for i := range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save clip %d: %w", i+1, err)
		}
	}
	return nil
}

// Transcript loads a stored transcript by id.
func (s *Postgres) Transcript(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("transcript %q: %w", id, ErrNotFound)
	}

	var (
		rec       Record
		wordsJSON []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, source, text, duration_estimate, chunks, skipped_chunks, words, created_at
		 FROM transcripts WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Source, &rec.Transcript.Text, &rec.Transcript.DurationEstimate,
			&rec.Transcript.Chunks, &rec.Transcript.Skipped, &wordsJSON, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("transcript %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load transcript: %w", err)
	}
	if err := json.Unmarshal(wordsJSON, &rec.Transcript.Words); err != nil {
		return Record{}, fmt.Errorf("decode words: %w", err)
	}
	return rec, nil
}
