package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"agentmemory/internal/model"
	"agentmemory/internal/scope"
	"agentmemory/pkg/apperr"
)

// Set upserts a slot, bumping its version if a row already exists for
// (user, agent, key).
func (s *Store) Set(key scope.Key, in model.SetSlotInput) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := in.Category
	if category == "" {
		category = model.InferCategory(in.Key)
	}
	source := in.Source
	if source == "" {
		source = model.SourceManual
	}
	valueJSON, err := json.Marshal(in.Value)
	if err != nil {
		return nil, apperr.NewValidation("invalid_value", "slot value is not serializable")
	}

	now := time.Now().UTC()
	var version int
	row := s.db.QueryRow(`SELECT version FROM slots WHERE user=? AND agent=? AND key=?`, key.User, key.Agent, in.Key)
	var prevVersion int
	if err := row.Scan(&prevVersion); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewStorageUnavailable("failed to read slot", err)
		}
		version = 1
	} else {
		version = prevVersion + 1
	}

	var expiresAt sql.NullString
	if in.ExpiresAt != nil {
		expiresAt = sql.NullString{String: in.ExpiresAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO slots (user, agent, key, category, value, source, confidence, version, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user, agent, key) DO UPDATE SET
			category = excluded.category,
			value = excluded.value,
			source = excluded.source,
			confidence = excluded.confidence,
			version = excluded.version,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, key.User, key.Agent, in.Key, category, string(valueJSON), string(source), in.Confidence, version,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), expiresAt)
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to write slot", err)
	}

	return s.getNoLock(key, in.Key)
}

// cleanExpired removes every slot in scope whose expires_at has passed.
func (s *Store) cleanExpired(key scope.Key) error {
	_, err := s.db.Exec(`DELETE FROM slots WHERE user=? AND agent=? AND expires_at IS NOT NULL AND expires_at < ?`,
		key.User, key.Agent, nowISO())
	if err != nil {
		return apperr.NewStorageUnavailable("failed to clean expired slots", err)
	}
	return nil
}

// Get returns a single slot by key, or nil if absent or expired.
func (s *Store) Get(key scope.Key, slotKey string) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cleanExpired(key); err != nil {
		return nil, err
	}
	return s.getNoLock(key, slotKey)
}

func (s *Store) getNoLock(key scope.Key, slotKey string) (*model.Slot, error) {
	row := s.db.QueryRow(`
		SELECT user, agent, key, category, value, source, confidence, version, created_at, updated_at, expires_at
		FROM slots WHERE user=? AND agent=? AND key=?`, key.User, key.Agent, slotKey)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to read slot", err)
	}
	return slot, nil
}

// ListByCategory returns all slots in a category, ordered by key.
func (s *Store) ListByCategory(key scope.Key, category string) ([]*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cleanExpired(key); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT user, agent, key, category, value, source, confidence, version, created_at, updated_at, expires_at
		FROM slots WHERE user=? AND agent=? AND category=? ORDER BY key ASC`, key.User, key.Agent, category)
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to list slots", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// List returns slots matching an optional prefix (all slots if empty),
// ordered by category then key.
func (s *Store) List(key scope.Key, prefix string) ([]*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cleanExpired(key); err != nil {
		return nil, err
	}
	var rows *sql.Rows
	var err error
	if prefix != "" {
		rows, err = s.db.Query(`
			SELECT user, agent, key, category, value, source, confidence, version, created_at, updated_at, expires_at
			FROM slots WHERE user=? AND agent=? AND key LIKE ? ORDER BY category ASC, key ASC`,
			key.User, key.Agent, prefix+"%")
	} else {
		rows, err = s.db.Query(`
			SELECT user, agent, key, category, value, source, confidence, version, created_at, updated_at, expires_at
			FROM slots WHERE user=? AND agent=? ORDER BY category ASC, key ASC`, key.User, key.Agent)
	}
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to list slots", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// GetCurrentState returns category -> key -> value, skipping reserved
// internal keys (those beginning with "_").
func (s *Store) GetCurrentState(key scope.Key) (map[string]map[string]any, error) {
	slots, err := s.List(key, "")
	if err != nil {
		return nil, err
	}
	state := make(map[string]map[string]any)
	for _, slot := range slots {
		if len(slot.Key) > 0 && slot.Key[0] == '_' {
			continue
		}
		if state[slot.Category] == nil {
			state[slot.Category] = make(map[string]any)
		}
		state[slot.Category][slot.Key] = slot.Value
	}
	return state, nil
}

// Delete removes a slot, returning true if a row was removed.
func (s *Store) Delete(key scope.Key, slotKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM slots WHERE user=? AND agent=? AND key=?`, key.User, key.Agent, slotKey)
	if err != nil {
		return false, apperr.NewStorageUnavailable("failed to delete slot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.NewStorageUnavailable("failed to delete slot", err)
	}
	return n > 0, nil
}

// Count returns the number of live slots in scope.
func (s *Store) Count(key scope.Key) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM slots WHERE user=? AND agent=? AND (expires_at IS NULL OR expires_at >= ?)`,
		key.User, key.Agent, nowISO()).Scan(&n); err != nil {
		return 0, apperr.NewStorageUnavailable("failed to count slots", err)
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSlot(row scannable) (*model.Slot, error) {
	var slot model.Slot
	var valueJSON, createdAt, updatedAt string
	var source string
	var expiresAt sql.NullString
	if err := row.Scan(&slot.User, &slot.Agent, &slot.Key, &slot.Category, &valueJSON, &source,
		&slot.Confidence, &slot.Version, &createdAt, &updatedAt, &expiresAt); err != nil {
		return nil, err
	}
	slot.Source = model.Source(source)
	if err := json.Unmarshal([]byte(valueJSON), &slot.Value); err != nil {
		return nil, err
	}
	slot.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	slot.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err == nil {
			slot.ExpiresAt = &t
		}
	}
	return &slot, nil
}

func scanSlots(rows *sql.Rows) ([]*model.Slot, error) {
	var out []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, apperr.NewStorageUnavailable("failed to scan slot", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}
