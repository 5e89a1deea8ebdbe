package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"quote-streamer/src/helpers"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"

	_ "github.com/lib/pq"
)

var unsafeSchemaChars = regexp.MustCompile(`[^a-z0-9_]`)

// -----------------------------------------------------------------------------

// PostgresJournal stores session events in a schema named after the
// application.
type PostgresJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger

	writer *asyncWriter
}

// -----------------------------------------------------------------------------

func NewPostgresJournal(cfg *models.MConfig, log *logger.Logger) *PostgresJournal {
	return &PostgresJournal{
		Config: cfg,
		Schema: schemaName(cfg.Name),
		Logger: log,
	}
}

func schemaName(app string) string {
	name := unsafeSchemaChars.ReplaceAllString(strings.ToLower(app), "_")
	if name == "" {
		return "quote_streamer"
	}
	return name
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewStorageError("open postgres", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError("ping postgres", err)
	}
	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewStorageError("create schema "+d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."subscriber_sessions" (
			id BIGSERIAL PRIMARY KEY,
			subscription_id TEXT NOT NULL,
			subscriber TEXT NOT NULL,
			event TEXT NOT NULL,
			symbols TEXT,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError("create subscriber_sessions", err)
	}

	d.writer = newAsyncWriter(d.insertBatch, d.Logger)
	d.Logger.Info("Postgres journal initialized (schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Record(ev models.MSessionEvent) {
	if d.writer == nil {
		return
	}
	d.writer.enqueue(ev)
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) insertBatch(events []models.MSessionEvent) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."subscriber_sessions" (subscription_id, subscriber, event, symbols, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.Schema)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.Exec(ev.SubscriptionID, ev.Subscriber, ev.Event, joinSymbols(ev.Symbols), ev.Reason, ev.CreatedAt.UTC())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) RecentSessions(limit int) ([]models.MSessionEvent, error) {
	if d.DB == nil {
		return nil, helpers.NewStorageError("journal not initialized", nil)
	}
	rows, err := d.DB.Query(fmt.Sprintf(`
		SELECT id, subscription_id, subscriber, event, symbols, reason, created_at
		FROM "%s"."subscriber_sessions"
		ORDER BY id DESC
		LIMIT $1
	`, d.Schema), limit)
	if err != nil {
		return nil, helpers.NewStorageError("query sessions", err)
	}
	defer rows.Close()

	var out []models.MSessionEvent
	for rows.Next() {
		var (
			ev      models.MSessionEvent
			symbols sql.NullString
			reason  sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.SubscriptionID, &ev.Subscriber, &ev.Event, &symbols, &reason, &ev.CreatedAt); err != nil {
			return nil, helpers.NewStorageError("scan session", err)
		}
		ev.Symbols = splitSymbols(symbols.String)
		ev.Reason = reason.String
		ev.CreatedAt = ev.CreatedAt.UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Close() error {
	if d.writer != nil {
		d.writer.close()
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
