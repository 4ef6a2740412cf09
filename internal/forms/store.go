// internal/forms/store.go
//
// Persistence for google_forms and form_entries.
//
// Context
// -------
// form_entries is a durable copy of what the schema service last reported.
// Reconcile brings it in line with a freshly fetched field list in one
// transaction:
//
//   - titles that are new, or whose entry id changed, are upserted and their
//     updated_at is bumped,
//   - titles no longer reported are deleted,
//   - unchanged rows are left alone.
//
// The upsert relies on the unique key (google_form_id, title).
package forms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrFormNotFound is returned when no mapping matches a reference or id.
var ErrFormNotFound = errors.New("form mapping not found")

const mappingCols = `id, form_id, responder_form_id, title, created_at, updated_at`

const (
	qMappingByRef = `
        SELECT ` + mappingCols + `
        FROM   google_forms
        WHERE  responder_form_id = ? OR form_id = ?
        ORDER  BY id
        LIMIT  1`

	qMappingByID = `
        SELECT ` + mappingCols + `
        FROM   google_forms
        WHERE  id = ?`

	qMappings = `
        SELECT ` + mappingCols + `
        FROM   google_forms
        ORDER  BY created_at DESC`

	qInsertMapping = `
        INSERT INTO google_forms (form_id, responder_form_id, title, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`

	qUpdateMapping = `
        UPDATE google_forms
        SET    responder_form_id = ?, title = ?, updated_at = ?
        WHERE  id = ?`

	qDeleteEntries = `DELETE FROM form_entries WHERE google_form_id = ?`
	qDeleteMapping = `DELETE FROM google_forms WHERE id = ?`

	qEntries = `
        SELECT id, google_form_id, title, entry_id, created_at, updated_at
        FROM   form_entries
        WHERE  google_form_id = ?`

	qEntriesForUpdate = qEntries + `
        FOR    UPDATE`

	qUpsertEntry = `
        INSERT INTO form_entries (google_form_id, title, entry_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE entry_id = VALUES(entry_id), updated_at = VALUES(updated_at)`

	qDeleteEntryTitles = `DELETE FROM form_entries WHERE google_form_id = ? AND title IN (?)`
)

// ReconcileResult counts the rows touched by Reconcile.
type ReconcileResult struct {
	Upserted int
	Deleted  int
}

// Store is the sqlx-backed repository for form mappings and entries.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore binds a Store to db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db, now: time.Now} }

// ByReference finds a mapping by its public or canonical reference.
func (s *Store) ByReference(ctx context.Context, ref string) (*Mapping, error) {
	var m Mapping
	if err := s.db.GetContext(ctx, &m, qMappingByRef, ref, ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("mapping %q: %w", ref, err)
	}
	return &m, nil
}

// ByID finds a mapping by primary key.
func (s *Store) ByID(ctx context.Context, id int64) (*Mapping, error) {
	var m Mapping
	if err := s.db.GetContext(ctx, &m, qMappingByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("mapping %d: %w", id, err)
	}
	return &m, nil
}

// All lists every mapping, newest first.
func (s *Store) All(ctx context.Context) ([]Mapping, error) {
	var out []Mapping
	if err := s.db.SelectContext(ctx, &out, qMappings); err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return out, nil
}

// Insert stores a new mapping and fills in its id and timestamps.
func (s *Store) Insert(ctx context.Context, m *Mapping) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, qInsertMapping, m.FormID, m.ResponderID, m.Title, now, now)
	if err != nil {
		return fmt.Errorf("insert mapping %q: %w", m.FormID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID, m.CreatedAt, m.UpdatedAt = id, now, now
	return nil
}

// Update rewrites the responder id and title of an existing mapping.
func (s *Store) Update(ctx context.Context, m *Mapping) error {
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, qUpdateMapping, m.ResponderID, m.Title, now, m.ID); err != nil {
		return fmt.Errorf("update mapping %d: %w", m.ID, err)
	}
	m.UpdatedAt = now
	return nil
}

// Delete removes a mapping together with its entries.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, qDeleteEntries, id); err != nil {
		return fmt.Errorf("delete entries %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, qDeleteMapping, id)
	if err != nil {
		return fmt.Errorf("delete mapping %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFormNotFound
	}
	return tx.Commit()
}

// Entries returns the persisted entries of one mapping.
func (s *Store) Entries(ctx context.Context, mappingID int64) ([]FieldEntry, error) {
	var out []FieldEntry
	if err := s.db.SelectContext(ctx, &out, qEntries, mappingID); err != nil {
		return nil, fmt.Errorf("entries %d: %w", mappingID, err)
	}
	return out, nil
}

// Reconcile makes the persisted entries of mappingID match fields.
func (s *Store) Reconcile(ctx context.Context, mappingID int64, fields []Field) (ReconcileResult, error) {
	var res ReconcileResult

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback() //nolint:errcheck

	var existing []FieldEntry
	if err := tx.SelectContext(ctx, &existing, qEntriesForUpdate, mappingID); err != nil {
		return res, fmt.Errorf("lock entries %d: %w", mappingID, err)
	}
	have := make(map[string]int64, len(existing))
	for _, e := range existing {
		have[e.Title] = e.EntryID
	}

	now := s.now().UTC()
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f.Title] = struct{}{}
		if id, ok := have[f.Title]; ok && id == f.EntryID {
			continue
		}
		if _, err := tx.ExecContext(ctx, qUpsertEntry, mappingID, f.Title, f.EntryID, now, now); err != nil {
			return res, fmt.Errorf("upsert entry %q: %w", f.Title, err)
		}
		res.Upserted++
	}

	var stale []string
	for _, e := range existing {
		if _, ok := seen[e.Title]; !ok {
			stale = append(stale, e.Title)
		}
	}
	if len(stale) > 0 {
		q, args, err := sqlx.In(qDeleteEntryTitles, mappingID, stale)
		if err != nil {
			return res, err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return res, fmt.Errorf("delete stale entries: %w", err)
		}
		res.Deleted = len(stale)
	}

	if err := tx.Commit(); err != nil {
		return ReconcileResult{}, err
	}
	return res, nil
}
