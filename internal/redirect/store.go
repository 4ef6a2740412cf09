// internal/redirect/store.go
//
// Read-only access to short_urls and visits.
//
// Context
// -------
// Resolve matches on a substring of original_url, constrained to templates
// that start with the public base URL and to one domain scope.  Substring
// matching can select a longer URL that merely shares a fragment with the
// requested value.  The behaviour is kept as is; when more than one row
// matches, the oldest (lowest id) wins and a warning is logged so operators
// can spot the collision.
//
// Notes
// -----
//   - `domain_id <=> ?` is MySQL's NULL-safe equality: a nil scope matches
//     rows without a domain, a non-nil scope matches that domain only.
//   - LIKE wildcards in user input are escaped; `\` is MySQL's default
//     escape character.
package redirect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no redirect record matches.
var ErrNotFound = errors.New("redirect not found")

const (
	qResolve = `
        SELECT id, original_url, short_code, date_created, valid_since,
               valid_until, forward_query, domain_id, title
        FROM   short_urls
        WHERE  original_url LIKE ?
          AND  LOWER(original_url) LIKE LOWER(?)
          AND  domain_id <=> ?
        ORDER  BY id
        LIMIT  2`

	qByShortCode = `
        SELECT id, original_url, short_code, date_created, valid_since,
               valid_until, forward_query, domain_id, title
        FROM   short_urls
        WHERE  short_code = ?
          AND  domain_id <=> ?
        LIMIT  1`

	qLastVisit = `
        SELECT id, date, short_url_id
        FROM   visits
        WHERE  short_url_id = ?
        ORDER  BY date DESC
        LIMIT  1`
)

// Store reads redirect records and visit history.
type Store struct {
	db      *sqlx.DB
	baseURL string
}

// NewStore binds the store to db.  baseURL is the public origin every
// template must begin with; a trailing slash is ignored.
func NewStore(db *sqlx.DB, baseURL string) *Store {
	return &Store{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve returns the record whose template starts with the base URL and
// contains value (case-insensitive).  A nil domainID selects unscoped
// records.
func (s *Store) Resolve(ctx context.Context, value string, domainID *int64) (*Record, error) {
	var rows []Record
	err := s.db.SelectContext(ctx, &rows, qResolve,
		escapeLike(s.baseURL)+"%",
		"%"+escapeLike(value)+"%",
		domainID,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", value, err)
	}

	switch len(rows) {
	case 0:
		zap.L().Debug("redirect resolve miss", zap.String("value", value))
		return nil, ErrNotFound
	case 1:
	default:
		zap.L().Warn("redirect resolve ambiguous, using lowest id",
			zap.String("value", value),
			zap.Int64("chosen", rows[0].ID),
			zap.Int64("also", rows[1].ID))
	}
	return &rows[0], nil
}

// ResolveShortCode looks a record up by its exact short code.
func (s *Store) ResolveShortCode(ctx context.Context, code string, domainID *int64) (*Record, error) {
	var rec Record
	if err := s.db.GetContext(ctx, &rec, qByShortCode, code, domainID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("short code %q: %w", code, err)
	}
	return &rec, nil
}

// LastVisit returns the newest visit for a record, or nil when there is none.
func (s *Store) LastVisit(ctx context.Context, recordID int64) (*Visit, error) {
	var v Visit
	if err := s.db.GetContext(ctx, &v, qLastVisit, recordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last visit %d: %w", recordID, err)
	}
	return &v, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
