// Package storage persists named settings profiles in SQLite. A profile
// is a complete snapshot a user can switch to atomically; applying one
// feeds the settings store and drives a normal orchestration cycle.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/clearlens/overlay/pkg/settings"
)

//go:embed schema.sql
var schemaSQL string

// ErrProfileNotFound indicates the requested profile does not exist.
var ErrProfileNotFound = errors.New("storage: profile not found")

// Profile is a named settings snapshot.
type Profile struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Settings  settings.Settings `json:"settings"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ProfileStore manages SQLite database operations for profiles.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore opens (creating if necessary) the profile database.
func NewProfileStore(dbPath string) (*ProfileStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL allows concurrent readers while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &ProfileStore{db: db}, nil
}

// Close closes the database connection.
func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// Save inserts a new profile or replaces the settings of an existing one
// with the same name, returning the stored profile.
func (s *ProfileStore) Save(name string, value settings.Settings) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("storage: profile name is empty")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO profiles (id, name, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			settings = excluded.settings,
			updated_at = excluded.updated_at`,
		id, name, string(encoded), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return s.GetByName(name)
}

// Get returns a profile by ID.
func (s *ProfileStore) Get(id string) (*Profile, error) {
	row := s.db.QueryRow(
		`SELECT id, name, settings, created_at, updated_at FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// GetByName returns a profile by its unique name.
func (s *ProfileStore) GetByName(name string) (*Profile, error) {
	row := s.db.QueryRow(
		`SELECT id, name, settings, created_at, updated_at FROM profiles WHERE name = ?`, name)
	return scanProfile(row)
}

// List returns all profiles ordered by name.
func (s *ProfileStore) List() ([]*Profile, error) {
	rows, err := s.db.Query(
		`SELECT id, name, settings, created_at, updated_at FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Delete removes a profile by ID.
func (s *ProfileStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var encoded string
	err := row.Scan(&p.ID, &p.Name, &encoded, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &p.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &p, nil
}
