package contact

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines persistence for address-book persons.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// List returns every stored person ordered by name.
	List(ctx context.Context) ([]*Person, error)

	// Upsert inserts or replaces a person keyed by UID.
	Upsert(ctx context.Context, p *Person) error

	// Delete removes a person by UID.
	// Returns ErrPersonNotFound if the person does not exist.
	Delete(ctx context.Context, uid string) error

	// DeleteAll removes every person.
	DeleteAll(ctx context.Context) error

	// ExportRaw returns the stored vCard text of every person, in List order.
	ExportRaw(ctx context.Context) ([][]byte, error)
}

// SQLiteRepository implements Repository on the persons table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on db. The persons table is
// created by the embedded migrations.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns every stored person ordered by formatted name, then UID.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Person, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uid, vcard FROM persons
		ORDER BY formatted_name COLLATE NOCASE, uid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var people []*Person
	for rows.Next() {
		var uid string
		var raw []byte
		if err := rows.Scan(&uid, &raw); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		decoded, err := Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("person %s: %w", uid, err)
		}
		for _, p := range decoded {
			if p.UID() == "" {
				p.SetUID(uid)
			}
			people = append(people, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating persons: %w", err)
	}
	return people, nil
}

// Upsert stores p keyed by its UID.
func (r *SQLiteRepository) Upsert(ctx context.Context, p *Person) error {
	if p.UID() == "" {
		return ErrMissingUID
	}
	raw, err := Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO persons (uid, formatted_name, vcard, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			formatted_name = excluded.formatted_name,
			vcard = excluded.vcard,
			updated_at = excluded.updated_at
	`, p.UID(), p.DisplayName(), raw, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing person %s: %w", p.UID(), err)
	}
	return nil
}

// Delete removes the person with uid.
func (r *SQLiteRepository) Delete(ctx context.Context, uid string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("deleting person %s: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPersonNotFound, uid)
	}
	return nil
}

// DeleteAll removes every person.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM persons`); err != nil {
		return fmt.Errorf("deleting persons: %w", err)
	}
	return nil
}

// ExportRaw returns the stored vCard text of every person.
func (r *SQLiteRepository) ExportRaw(ctx context.Context) ([][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT vcard FROM persons
		ORDER BY formatted_name COLLATE NOCASE, uid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning vcard: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating persons: %w", err)
	}
	return out, nil
}

// isNotFound reports whether err is ErrPersonNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, ErrPersonNotFound)
}
