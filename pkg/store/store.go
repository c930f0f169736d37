// Package store persists extraction results to Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yurifrl/brokerfacts/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS statement_facts (
	fact_key             TEXT        PRIMARY KEY,
	run_id               UUID        NOT NULL,
	document             TEXT        NOT NULL,
	dialect              TEXT        NOT NULL,
	account_key          TEXT        NOT NULL,
	statement_date       DATE,
	prior_period_value   NUMERIC(18,2),
	current_period_value NUMERIC(18,2),
	short_term_gain      NUMERIC(18,2),
	short_term_gain_ytd  NUMERIC(18,2),
	long_term_gain       NUMERIC(18,2),
	long_term_gain_ytd   NUMERIC(18,2),
	extracted_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsert = `
INSERT INTO statement_facts (
	fact_key, run_id, document, dialect, account_key, statement_date,
	prior_period_value, current_period_value,
	short_term_gain, short_term_gain_ytd, long_term_gain, long_term_gain_ytd
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (fact_key) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	document = EXCLUDED.document,
	statement_date = EXCLUDED.statement_date,
	prior_period_value = EXCLUDED.prior_period_value,
	current_period_value = EXCLUDED.current_period_value,
	short_term_gain = EXCLUDED.short_term_gain,
	short_term_gain_ytd = EXCLUDED.short_term_gain_ytd,
	long_term_gain = EXCLUDED.long_term_gain,
	long_term_gain_ytd = EXCLUDED.long_term_gain_ytd,
	extracted_at = now()`

// Row is one statement_facts row. Nil pointers are stored as NULL.
type Row struct {
	FactKey            string
	RunID              uuid.UUID
	Document           string
	Dialect            string
	AccountKey         string
	StatementDate      *time.Time
	PriorPeriodValue   *float64
	CurrentPeriodValue *float64
	ShortTermGain      *float64
	ShortTermGainYTD   *float64
	LongTermGain       *float64
	LongTermGainYTD    *float64
}

func (r Row) args() []any {
	return []any{
		r.FactKey, r.RunID, r.Document, r.Dialect, r.AccountKey, r.StatementDate,
		r.PriorPeriodValue, r.CurrentPeriodValue,
		r.ShortTermGain, r.ShortTermGainYTD, r.LongTermGain, r.LongTermGainYTD,
	}
}

// factKey identifies one account period: dialect, account and statement date.
// Account keys are short and file names repeat across directories, so neither
// is enough alone. An undated statement falls back to its document name.
func factKey(dialect string, key models.AccountKey, date, document string) string {
	if date == "" {
		date = document
	}
	return dialect + "/" + string(key) + "/" + date
}

// Rows flattens results into table rows, in document then account order.
func Rows(runID uuid.UUID, results ...models.Result) []Row {
	var rows []Row
	for _, res := range results {
		for _, rec := range res.Records() {
			row := Row{
				FactKey:            factKey(res.Dialect, rec.Key, rec.StatementDate.Or(""), res.Document),
				RunID:              runID,
				Document:           res.Document,
				Dialect:            res.Dialect,
				AccountKey:         string(rec.Key),
				PriorPeriodValue:   rec.PriorPeriodValue.Ptr(),
				CurrentPeriodValue: rec.CurrentPeriodValue.Ptr(),
				ShortTermGain:      rec.ShortTermGain.Ptr(),
				ShortTermGainYTD:   rec.ShortTermGainYTD.Ptr(),
				LongTermGain:       rec.LongTermGain.Ptr(),
				LongTermGainYTD:    rec.LongTermGainYTD.Ptr(),
			}
			if d, ok := rec.StatementDate.Get(); ok {
				if t, err := time.Parse("2006-01-02", d); err == nil {
					row.StatementDate = &t
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

type Store struct {
	logger *log.Logger
	pool   *pgxpool.Pool
}

// Open connects to the database at url.
func Open(ctx context.Context, logger *log.Logger, url string) (*Store, error) {
	if url == "" {
		return nil, fmt.Errorf("database url not set")
	}
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{logger: logger, pool: pool}, nil
}

// Migrate creates the statement_facts table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Save upserts every account of results in one transaction and returns the
// number of rows written.
func (s *Store) Save(ctx context.Context, runID uuid.UUID, results ...models.Result) (int, error) {
	rows := Rows(runID, results...)
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsert, r.args()...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to save facts: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info("saved statement facts", "run", runID, "rows", len(rows))
	return len(rows), nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
