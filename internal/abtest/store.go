package abtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrVariantNotFound is returned when a variant id does not exist.
var ErrVariantNotFound = errors.New("variant not found")

const variantCols = `id, short_url_id, target_url, probability, is_active, created_at, updated_at`

const (
	qActiveVariants = `
        SELECT ` + variantCols + `
        FROM   ab_tests
        WHERE  short_url_id = ?
          AND  is_active = TRUE
        ORDER  BY id`

	qVariantsByRecord = `
        SELECT ` + variantCols + `
        FROM   ab_tests
        WHERE  short_url_id = ?
        ORDER  BY created_at, id`

	qVariantByID = `
        SELECT ` + variantCols + `
        FROM   ab_tests
        WHERE  id = ?`
)

// Store is the read side used on the redirect path.
type Store struct {
	db *sqlx.DB
}

// NewStore binds a Store to db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Active returns the active variants of recordID in creation order.
func (s *Store) Active(ctx context.Context, recordID int64) ([]Variant, error) {
	var out []Variant
	if err := s.db.SelectContext(ctx, &out, qActiveVariants, recordID); err != nil {
		return nil, fmt.Errorf("active variants %d: %w", recordID, err)
	}
	return out, nil
}

func getVariant(ctx context.Context, q sqlx.QueryerContext, id int64) (*Variant, error) {
	var v Variant
	if err := sqlx.GetContext(ctx, q, &v, qVariantByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("variant %d: %w", id, err)
	}
	return &v, nil
}
