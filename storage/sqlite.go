package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteDB stores the ledger key space in a single-table SQLite database.
// Suited to deployments that want the state inspectable with stock tooling.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates or opens a SQLite database at the specified path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &SQLiteDB{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteDB) init() error {
	schema := `CREATE TABLE IF NOT EXISTS ledger_state (
        key BLOB PRIMARY KEY,
        value BLOB NOT NULL,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init ledger_state: %w", err)
	}
	return nil
}

func (s *SQLiteDB) Put(key []byte, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO ledger_state(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}

func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM ledger_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLiteDB) Delete(key []byte) error {
	res, err := s.db.Exec(`DELETE FROM ledger_state WHERE key = ?`, key)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// WriteBatch applies the entries inside one SQL transaction.
func (s *SQLiteDB) WriteBatch(entries map[string][]byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for key, value := range entries {
		if value == nil {
			_, err = tx.Exec(`DELETE FROM ledger_state WHERE key = ?`, []byte(key))
		} else {
			_, err = tx.Exec(
				`INSERT INTO ledger_state(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
                 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
				[]byte(key), value,
			)
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
