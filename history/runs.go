// runs.go - CRUD fuer die runs-Tabelle
//
// Enthaelt: Run, RecordRun, FindRun. Nach dem Vorbild von
// app/store/database_chat.go's schmalen CRUD-Methoden.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bitllama/engine/sample"
)

// ErrRunNotFound is returned by FindRun when no row matches the id.
var ErrRunNotFound = errors.New("history: run not found")

// Run is one recorded generation invocation, sufficient to replay the
// same sampling configuration against the same weights file.
type Run struct {
	ID            string
	WeightsPath   string
	Sampling      sample.Config
	Prompt        string
	EmittedTokens int
	CreatedAt     time.Time
}

// RecordRun inserts a completed (or in-flight) run. Calling it again
// with the same ID updates only the prior row's EmittedTokens; the
// other columns keep their first-recorded values.
func (db *DB) RecordRun(r Run) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, weights_path, seed, temperature, top_k, top_p, prompt, emitted_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET emitted_tokens = excluded.emitted_tokens
	`, r.ID, r.WeightsPath, r.Sampling.Seed, r.Sampling.Temperature, r.Sampling.TopK, r.Sampling.TopP, r.Prompt, r.EmittedTokens)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// FindRun looks up a previously recorded run by id, for `run --replay`.
func (db *DB) FindRun(id string) (Run, error) {
	var r Run
	var createdAt string
	err := db.conn.QueryRow(`
		SELECT id, weights_path, seed, temperature, top_k, top_p, prompt, emitted_tokens, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.WeightsPath, &r.Sampling.Seed, &r.Sampling.Temperature, &r.Sampling.TopK, &r.Sampling.TopP, &r.Prompt, &r.EmittedTokens, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}
	r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return r, nil
}
