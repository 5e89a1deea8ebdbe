// Package storage persists the subscriber session journal.
package storage

import (
	"fmt"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

// NewSessionJournal returns the journal backend selected by storage.db_type.
// The journal still needs Initialize.
func NewSessionJournal(cfg *models.MConfig, log *logger.Logger) (interfaces.ISessionJournal, error) {
	switch cfg.Storage.DBType {
	case "sqlite", "":
		return NewSQLiteJournal(cfg, log), nil
	case "postgres":
		return NewPostgresJournal(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
}
