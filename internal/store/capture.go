package store

import (
	"database/sql"
	"errors"
	"time"
)

// Capture is one scene analysis record: what mode asked for it, whether it
// was gesture-triggered or manual, and what the model answered.
type Capture struct {
	ID          string
	Mode        string
	Source      string
	Description string
	OK          bool
	Error       string
	ElapsedMs   int64
	CreatedAt   time.Time
}

// CaptureRepository provides access to the analysis transcript.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Create inserts a new capture record.
func (r *CaptureRepository) Create(c *Capture) error {
	c.CreatedAt = time.Now()

	ok := 0
	if c.OK {
		ok = 1
	}

	_, err := r.db.Exec(
		`INSERT INTO captures (id, mode, source, description, ok, error, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Mode, c.Source, c.Description, ok, c.Error, c.ElapsedMs, c.CreatedAt,
	)
	return err
}

// GetByID retrieves a capture by its ID.
func (r *CaptureRepository) GetByID(id string) (*Capture, error) {
	c := &Capture{}
	var ok int

	err := r.db.QueryRow(
		`SELECT id, mode, source, description, ok, error, elapsed_ms, created_at
		 FROM captures WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Mode, &c.Source, &c.Description, &ok, &c.Error, &c.ElapsedMs, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c.OK = ok != 0
	return c, nil
}

// ListRecent returns the most recent captures, newest first.
func (r *CaptureRepository) ListRecent(limit int) ([]*Capture, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, mode, source, description, ok, error, elapsed_ms, created_at
		 FROM captures ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c := &Capture{}
		var ok int
		if err := rows.Scan(&c.ID, &c.Mode, &c.Source, &c.Description, &ok, &c.Error, &c.ElapsedMs, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.OK = ok != 0
		captures = append(captures, c)
	}

	return captures, rows.Err()
}

// Prune deletes captures older than the cutoff and returns how many were
// removed.
func (r *CaptureRepository) Prune(before time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM captures WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
