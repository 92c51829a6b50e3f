package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db          *sqlx.DB
	artifactDir string
}

func NewSQLiteStore(dbPath, artifactDir string) (*SQLiteStore, error) {
	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	if err := os.MkdirAll(artifactDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers on the file.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:          db,
		artifactDir: artifactDir,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			query TEXT NOT NULL DEFAULT '',
			filters TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			search_id TEXT,
			path TEXT,
			type TEXT,
			created_at DATETIME,
			digest TEXT,
			FOREIGN KEY(search_id) REFERENCES searches(id)
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Configuration Implementation

func (s *SQLiteStore) SetConfig(key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.Exec(query, key, value)
	return err
}

// GetConfig returns "" for unknown keys.
func (s *SQLiteStore) GetConfig(key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM configuration WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) ListConfig() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.Select(&rows, `SELECT key, value FROM configuration ORDER BY key`); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Search Implementation

func (s *SQLiteStore) CreateSearch(search *Search) error {
	if search.CreatedAt.IsZero() {
		search.CreatedAt = time.Now()
	}
	if search.UpdatedAt.IsZero() {
		search.UpdatedAt = search.CreatedAt
	}
	query := `INSERT INTO searches (id, kind, query, filters, status, result_count, created_at, updated_at)
		VALUES (:id, :kind, :query, :filters, :status, :result_count, :created_at, :updated_at)`
	_, err := s.db.NamedExec(query, search)
	return err
}

func (s *SQLiteStore) GetSearch(id string) (*Search, error) {
	var search Search
	err := s.db.Get(&search, `SELECT * FROM searches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &search, nil
}

func (s *SQLiteStore) UpdateSearch(search *Search) error {
	search.UpdatedAt = time.Now()
	query := `UPDATE searches SET status = :status, result_count = :result_count, filters = :filters, updated_at = :updated_at WHERE id = :id`
	res, err := s.db.NamedExec(query, search)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("search not found: %s", search.ID)
	}
	return nil
}

// ListSearches returns the most recent searches first.
func (s *SQLiteStore) ListSearches(limit int) ([]*Search, error) {
	if limit <= 0 {
		limit = 20
	}
	var searches []*Search
	err := s.db.Select(&searches, `SELECT * FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	return searches, err
}

// Artifact Implementation

func (s *SQLiteStore) SaveArtifact(artifact *Artifact, content []byte) error {
	// 1. Save content to filesystem
	fullPath := filepath.Join(s.artifactDir, artifact.Path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write artifact content: %w", err)
	}

	// 2. Save metadata to DB
	query := `INSERT INTO artifacts (id, search_id, path, type, created_at, digest)
		VALUES (:id, :search_id, :path, :type, :created_at, :digest)`
	_, err := s.db.NamedExec(query, artifact)
	return err
}

func (s *SQLiteStore) GetArtifact(id string) (*Artifact, []byte, error) {
	var artifact Artifact
	err := s.db.Get(&artifact, `SELECT id, search_id, path, type, created_at, digest FROM artifacts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("artifact not found: %s", id)
	}
	if err != nil {
		return nil, nil, err
	}

	fullPath := filepath.Join(s.artifactDir, artifact.Path)
	content, err := os.ReadFile(fullPath) // #nosec G304
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read artifact content: %w", err)
	}

	return &artifact, content, nil
}

func (s *SQLiteStore) ListArtifacts(searchID string) ([]*Artifact, error) {
	var artifacts []*Artifact
	err := s.db.Select(&artifacts, `SELECT id, search_id, path, type, created_at, digest FROM artifacts WHERE search_id = ?`, searchID)
	return artifacts, err
}
