package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Calibration profiles - named sets of calibration entries
		`CREATE TABLE IF NOT EXISTS calibration_profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Calibration entries - one JSON-encoded entry per feature
		`CREATE TABLE IF NOT EXISTS calibration_entries (
			profile_id TEXT NOT NULL REFERENCES calibration_profiles(id) ON DELETE CASCADE,
			feature TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (profile_id, feature)
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_calibration_entries_profile_id ON calibration_entries(profile_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
