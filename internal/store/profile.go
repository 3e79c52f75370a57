package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/calibration"
)

// ErrEmptyName is returned when saving a profile without a name.
var ErrEmptyName = errors.New("profile name is required")

// Profile is a named set of calibration entries.
type Profile struct {
	ID        string                       `json:"id"`
	Name      string                       `json:"name"`
	Entries   map[string]calibration.Entry `json:"entries,omitempty"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// ProfileRepository provides CRUD operations for calibration profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Save creates the profile or, when one with the same name exists, replaces
// its entries. p.ID and the timestamps are set from the stored row.
func (r *ProfileRepository) Save(p *Profile) error {
	if p.Name == "" {
		return ErrEmptyName
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	var id string
	var created time.Time
	err = tx.QueryRow(`SELECT id, created_at FROM calibration_profiles WHERE name = ?`, p.Name).Scan(&id, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, created = uuid.New().String(), now
		if _, err := tx.Exec(
			`INSERT INTO calibration_profiles (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			id, p.Name, created, now,
		); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := tx.Exec(`UPDATE calibration_profiles SET updated_at = ? WHERE id = ?`, now, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM calibration_entries WHERE profile_id = ?`, id); err != nil {
			return err
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO calibration_entries (profile_id, feature, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for feature, e := range p.Entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", feature, err)
		}
		if _, err := stmt.Exec(id, feature, string(data)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, created, now
	return nil
}

// Get retrieves a profile and its entries by name.
func (r *ProfileRepository) Get(name string) (*Profile, error) {
	p := &Profile{}
	err := r.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM calibration_profiles WHERE name = ?`,
		name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", name, ErrNotFound)
		}
		return nil, err
	}

	p.Entries, err = r.entries(p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) entries(id string) (map[string]calibration.Entry, error) {
	rows, err := r.db.Query(`SELECT feature, data FROM calibration_entries WHERE profile_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]calibration.Entry)
	for rows.Next() {
		var feature, data string
		if err := rows.Scan(&feature, &data); err != nil {
			return nil, err
		}
		var e calibration.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", feature, err)
		}
		out[feature] = e
	}
	return out, rows.Err()
}

// List returns every profile without its entries, ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT id, name, created_at, updated_at FROM calibration_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a profile and its entries.
func (r *ProfileRepository) Delete(name string) error {
	res, err := r.db.Exec(`DELETE FROM calibration_profiles WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", name, ErrNotFound)
	}
	return nil
}

// Calibration returns the entries of the named profile.
func (r *ProfileRepository) Calibration(name string) (map[string]calibration.Entry, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return p.Entries, nil
}

// Store returns the named profile as a calibration store.
func (r *ProfileRepository) Store(name string) (*calibration.Store, error) {
	entries, err := r.Calibration(name)
	if err != nil {
		return nil, err
	}
	return calibration.NewStore(entries), nil
}
