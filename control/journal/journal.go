// Package journal keeps the messages from time setting runs, so they can be read on the setup page
// after the fact.
package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const initDatabase = `
CREATE TABLE IF NOT EXISTS entry (run integer not null, date datetime not null, message text not null);
CREATE INDEX IF NOT EXISTS entry_run ON entry (run);
`

// KeepRuns is how many runs are kept; older ones are deleted when a new one starts.
const KeepRuns = 20

// Entry is one journal line.
type Entry struct {
	Run     int64
	Date    time.Time
	Message string
}

type DB struct {
	*sql.DB

	mu  sync.Mutex
	run int64 // must hold mu to read or write.
}

func OpenDatabase(filename string) (*DB, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	// Every connection to ":memory:" is a different database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(initDatabase); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", filename, err)
	}
	result := &DB{DB: db}
	if err := db.QueryRow("select coalesce(max(run), 0) from entry").Scan(&result.run); err != nil {
		db.Close()
		return nil, fmt.Errorf("find last run: %w", err)
	}
	return result, nil
}

// Start begins a new run with msg as its first line, and drops runs older than KeepRuns.
func (db *DB) Start(msg string) error {
	db.mu.Lock()
	db.run++
	run := db.run
	db.mu.Unlock()
	if _, err := db.Exec("delete from entry where run <= ?", run-KeepRuns); err != nil {
		return fmt.Errorf("prune journal: %w", err)
	}
	return db.insert(run, msg)
}

// Record appends msg to the current run.
func (db *DB) Record(msg string) error {
	db.mu.Lock()
	run := db.run
	db.mu.Unlock()
	return db.insert(run, msg)
}

func (db *DB) insert(run int64, msg string) error {
	s, err := db.Prepare("insert into entry values(?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer s.Close()
	if _, err := s.Exec(run, time.Now(), msg); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// LastRun returns the lines of the most recent run, oldest first.
func (db *DB) LastRun() ([]Entry, error) {
	db.mu.Lock()
	run := db.run
	db.mu.Unlock()
	rows, err := db.Query("select run, date, message from entry where run = ? order by rowid", run)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Run, &e.Date, &e.Message); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return result, nil
}
