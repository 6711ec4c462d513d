package store

import (
	"database/sql"
	"errors"
	"time"
)

// Destination is a saved navigation target: a spoken label and the query
// text handed to the geocoder.
type Destination struct {
	ID        string
	Label     string
	Query     string
	CreatedAt time.Time
}

// DestinationRepository provides CRUD operations for saved destinations.
type DestinationRepository struct {
	db *sql.DB
}

// Destinations returns the destination repository for this store.
func (s *Store) Destinations() *DestinationRepository {
	return &DestinationRepository{db: s.db}
}

// Create inserts a new destination.
func (r *DestinationRepository) Create(d *Destination) error {
	d.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO destinations (id, label, query, created_at) VALUES (?, ?, ?, ?)`,
		d.ID, d.Label, d.Query, d.CreatedAt,
	)
	return err
}

// GetByLabel retrieves a destination by its spoken label.
func (r *DestinationRepository) GetByLabel(label string) (*Destination, error) {
	d := &Destination{}

	err := r.db.QueryRow(
		`SELECT id, label, query, created_at FROM destinations WHERE label = ?`,
		label,
	).Scan(&d.ID, &d.Label, &d.Query, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return d, nil
}

// List returns all saved destinations ordered by label.
func (r *DestinationRepository) List() ([]*Destination, error) {
	rows, err := r.db.Query(`SELECT id, label, query, created_at FROM destinations ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var destinations []*Destination
	for rows.Next() {
		d := &Destination{}
		if err := rows.Scan(&d.ID, &d.Label, &d.Query, &d.CreatedAt); err != nil {
			return nil, err
		}
		destinations = append(destinations, d)
	}

	return destinations, rows.Err()
}

// Delete removes a destination by ID.
func (r *DestinationRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM destinations WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
