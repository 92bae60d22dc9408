package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStorage keeps artifacts as blobs in a single SQLite table
type SQLiteStorage struct {
	db    *sql.DB
	mutex sync.RWMutex
}

var _ StorageInterface = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at dbPath
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		dbPath = "mentions.db"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Close()
}

func (s *SQLiteStorage) initTables() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
	CREATE TABLE IF NOT EXISTS artifacts (
		name TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data BLOB NOT NULL,
		stored_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStorage) Store(name string, data []byte) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
	INSERT OR REPLACE INTO artifacts (name, content_type, data, stored_at)
	VALUES (?, ?, ?, ?)
	`
	if data == nil {
		data = []byte{}
	}
	if _, err := s.db.Exec(query, name, ContentType(name), data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"artifact": name,
		"bytes":    len(data),
	}).Info("Stored artifact in SQLite")
	return nil
}

func (s *SQLiteStorage) Retrieve(name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var data []byte
	err = s.db.QueryRow(`SELECT data FROM artifacts WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve artifact %s: %w", name, err)
	}
	return data, nil
}

// List returns artifact names starting with prefix, sorted
func (s *SQLiteStorage) List(prefix string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.db.Query(`SELECT name FROM artifacts WHERE substr(name, 1, length(?)) = ? ORDER BY name`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artifact name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}
	return names, nil
}

func (s *SQLiteStorage) Delete(name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.Exec(`DELETE FROM artifacts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("artifact %s: %w", name, ErrNotFound)
	}

	logrus.WithField("artifact", name).Info("Deleted artifact from SQLite")
	return nil
}
