package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Saved is everything a session persists. Only allow-listed preference fields appear here.
type Saved struct {
	UI       Preferences         `json:"ui"`
	Requests RequestsPreferences `json:"requests"`
}

// DefaultSaved is the state of a user with nothing stored
func DefaultSaved() Saved {
	return Saved{UI: DefaultPreferences(), Requests: DefaultRequestsPreferences()}
}

// Persister loads and stores a user's preferences. Load reports false when nothing is stored.
type Persister interface {
	Load(ctx context.Context, userID string) (Saved, bool, error)
	Save(ctx context.Context, userID string, s Saved) error
}

// FilePersister keeps every user's preferences in one JSON file
type FilePersister struct {
	path string
	mu   sync.Mutex
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) readAll() (map[string]Saved, error) {
	all := map[string]Saved{}
	b, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}
	if len(b) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("failed to parse preferences file: %w", err)
	}
	return all, nil
}

func (p *FilePersister) Load(_ context.Context, userID string) (Saved, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	all, err := p.readAll()
	if err != nil {
		return Saved{}, false, err
	}
	s, ok := all[userID]
	return s, ok, nil
}

// Save rewrites the file through a temp file so a crash never leaves it half written
func (p *FilePersister) Save(_ context.Context, userID string, s Saved) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	all, err := p.readAll()
	if err != nil {
		return err
	}
	all[userID] = s

	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preferences dir: %w", err)
		}
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}

// PostgresPersister stores preferences in the ui_preferences table
type PostgresPersister struct {
	db *sqlx.DB
}

func NewPostgresPersister(db *sqlx.DB) *PostgresPersister {
	return &PostgresPersister{db: db}
}

type preferencesRow struct {
	UserID      string `db:"user_id"`
	Preferences []byte `db:"preferences"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (p *PostgresPersister) Load(ctx context.Context, userID string) (Saved, bool, error) {
	var row preferencesRow
	err := p.db.GetContext(ctx, &row, `SELECT user_id, preferences, updated_at FROM ui_preferences WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Saved{}, false, nil
	}
	if err != nil {
		return Saved{}, false, fmt.Errorf("failed to load preferences: %w", err)
	}
	var s Saved
	if err := json.Unmarshal(row.Preferences, &s); err != nil {
		return Saved{}, false, fmt.Errorf("failed to parse stored preferences: %w", err)
	}
	return s, true, nil
}

func (p *PostgresPersister) Save(ctx context.Context, userID string, s Saved) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	_, err = p.db.NamedExecContext(ctx, `
		INSERT INTO ui_preferences (user_id, preferences, updated_at)
		VALUES (:user_id, :preferences, :updated_at)
		ON CONFLICT (user_id) DO UPDATE
		SET preferences = EXCLUDED.preferences, updated_at = EXCLUDED.updated_at
	`, preferencesRow{UserID: userID, Preferences: b, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
