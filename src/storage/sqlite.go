package storage

import (
	"database/sql"
	"fmt"
	"time"

	"quote-streamer/src/helpers"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteJournal stores session events in a local SQLite file.
type SQLiteJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	writer *asyncWriter
}

// -----------------------------------------------------------------------------

func NewSQLiteJournal(cfg *models.MConfig, log *logger.Logger) *SQLiteJournal {
	return &SQLiteJournal{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewStorageError("open sqlite "+dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError("ping sqlite "+dsn, err)
	}
	// single writer goroutine, avoid SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.writer = newAsyncWriter(d.insertBatch, d.Logger)
	d.Logger.Info("SQLite journal ready at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS subscriber_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subscription_id TEXT NOT NULL,
			subscriber TEXT NOT NULL,
			event TEXT NOT NULL,
			symbols TEXT,
			reason TEXT,
			created_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError("create subscriber_sessions", err)
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_subscriber ON subscriber_sessions (subscriber)`); err != nil {
		return helpers.NewStorageError("create subscriber index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Record(ev models.MSessionEvent) {
	if d.writer == nil {
		return
	}
	d.writer.enqueue(ev)
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) insertBatch(events []models.MSessionEvent) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO subscriber_sessions (subscription_id, subscriber, event, symbols, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.Exec(ev.SubscriptionID, ev.Subscriber, ev.Event, joinSymbols(ev.Symbols), ev.Reason, ev.CreatedAt.UnixMilli())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) RecentSessions(limit int) ([]models.MSessionEvent, error) {
	if d.DB == nil {
		return nil, helpers.NewStorageError("journal not initialized", nil)
	}
	rows, err := d.DB.Query(`
		SELECT id, subscription_id, subscriber, event, symbols, reason, created_at
		FROM subscriber_sessions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
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
			created int64
		)
		if err := rows.Scan(&ev.ID, &ev.SubscriptionID, &ev.Subscriber, &ev.Event, &symbols, &reason, &created); err != nil {
			return nil, helpers.NewStorageError("scan session", err)
		}
		ev.Symbols = splitSymbols(symbols.String)
		ev.Reason = reason.String
		ev.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Close() error {
	if d.writer != nil {
		d.writer.close()
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
