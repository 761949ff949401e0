// database.go - SQLite-Backend fuer Generierungs-Verlauf
//
// Enthaelt: DB (Verbindungs-Wrapper), Open, Close, init.
// Nach dem Vorbild von app/store/database_core.go: eine SQLite-
// Verbindung im WAL-Modus, kein Application-Level-Lock noetig, da
// SQLite Leser/Schreiber selbst serialisiert.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren
)

const currentSchemaVersion = 1

// DB wraps a sqlite3 connection recording generation-run metadata so a
// prior run's sampling configuration can be replayed by sequence id.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return db, nil
}

// Close flushes the WAL and closes the connection.
func (db *DB) Close() error {
	_, _ = db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return db.conn.Close()
}

func (db *DB) init() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		weights_path TEXT NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		temperature REAL NOT NULL DEFAULT 0,
		top_k INTEGER NOT NULL DEFAULT 0,
		top_p REAL NOT NULL DEFAULT 0,
		prompt TEXT NOT NULL DEFAULT '',
		emitted_tokens INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		schema_version INTEGER NOT NULL DEFAULT %d
	);
	`, currentSchemaVersion)

	_, err := db.conn.Exec(schema)
	return err
}
