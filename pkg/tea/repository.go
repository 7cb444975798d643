package tea

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists teas through database/sql so storage backends stay swappable.
type Repository struct {
	db *sql.DB
}

// NewRepository wires the handle used by every query.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a tea and returns it with the identifier chosen by storage.
func (r *Repository) Save(ctx context.Context, t Tea) (Tea, error) {
	result, err := r.db.ExecContext(ctx, "INSERT INTO teas (name, price) VALUES (?, ?)", t.Name, t.Price)
	if err != nil {
		return Tea{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Tea{}, err
	}
	t.ID = id
	return t, nil
}

// List fetches every tea in insertion order.
func (r *Repository) List(ctx context.Context) ([]Tea, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, price FROM teas")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teas := make([]Tea, 0)
	for rows.Next() {
		var t Tea
		if err := rows.Scan(&t.ID, &t.Name, &t.Price); err != nil {
			return nil, err
		}
		teas = append(teas, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teas, nil
}

// Get returns the first tea whose id matches.
func (r *Repository) Get(ctx context.Context, id int64) (Tea, error) {
	var t Tea
	err := r.db.QueryRowContext(ctx, "SELECT id, name, price FROM teas WHERE id = ?", id).Scan(&t.ID, &t.Name, &t.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return Tea{}, ErrNotFound
	}
	if err != nil {
		return Tea{}, err
	}
	return t, nil
}

// Update overwrites name and price and reads the row back in the same statement,
// so no other write can land between the change and the returned record.
func (r *Repository) Update(ctx context.Context, t Tea) (Tea, error) {
	query := "UPDATE teas SET name = ?, price = ? WHERE id = ? RETURNING id, name, price"
	var updated Tea
	err := r.db.QueryRowContext(ctx, query, t.Name, t.Price, t.ID).Scan(&updated.ID, &updated.Name, &updated.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return Tea{}, ErrNotFound
	}
	if err != nil {
		return Tea{}, err
	}
	return updated, nil
}

// Delete removes exactly one tea; later entries keep their relative order.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM teas WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
