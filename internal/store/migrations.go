package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Captures table - transcript of every scene analysis
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL CHECK(mode IN ('environment', 'communication', 'navigation')),
			source TEXT NOT NULL CHECK(source IN ('auto', 'manual')),
			description TEXT NOT NULL DEFAULT '',
			ok INTEGER NOT NULL DEFAULT 1,
			error TEXT NOT NULL DEFAULT '',
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Destinations table - saved favourite destinations for navigation
		`CREATE TABLE IF NOT EXISTS destinations (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL UNIQUE,
			query TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_captures_created_at ON captures(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_captures_mode ON captures(mode)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
