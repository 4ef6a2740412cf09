// internal/abtest/service.go
//
// Variant write path used by the administration surface.
//
// Context
// -------
// Every write runs in one transaction:
//
//  1. lock the parent short_urls row (SELECT … FOR UPDATE),
//  2. validate the resulting state against the probability ledger,
//  3. write and commit.
//
// Concurrent writers on the same record serialize on the row lock, so two
// requests cannot each pass validation and together overshoot 1.0.  A
// rejected write rolls back and leaves the stored variants untouched.
//
// Storage errors that encode a domain rule are translated: a violated CHECK
// constraint becomes ErrProbabilityExceeded and a dangling foreign key becomes
// redirect.ErrNotFound.
package abtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/splitlink/internal/redirect"
)

// ErrInvalidVariant wraps input validation failures.
var ErrInvalidVariant = errors.New("invalid variant")

// MySQL error numbers translated by translate.
const (
	errCheckViolated   = 3819 // ER_CHECK_CONSTRAINT_VIOLATED
	errCheckViolatedMB = 4025 // MariaDB CONSTRAINT_FAILED
	errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
)

const (
	qLockRecord = `SELECT id FROM short_urls WHERE id = ? FOR UPDATE`

	qLockRecordByVariant = `
        SELECT s.id
        FROM   short_urls s
        JOIN   ab_tests t ON t.short_url_id = s.id
        WHERE  t.id = ?
        FOR    UPDATE`

	qInsertVariant = `
        INSERT INTO ab_tests
               (short_url_id, target_url, probability, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)`

	qUpdateVariant = `
        UPDATE ab_tests
        SET    target_url = ?, probability = ?, is_active = ?, updated_at = ?
        WHERE  id = ?`

	qDeleteVariant = `DELETE FROM ab_tests WHERE id = ?`
)

// Service creates, patches, lists, and deletes variants while keeping the
// probability ledger consistent.
type Service struct {
	db       *sqlx.DB
	validate *validator.Validate
	now      func() time.Time
}

// NewService returns a Service backed by db.
func NewService(db *sqlx.DB) *Service {
	return &Service{db: db, validate: validator.New(), now: time.Now}
}

// List returns every variant of recordID, active or not, in creation order.
func (s *Service) List(ctx context.Context, recordID int64) ([]Variant, error) {
	var out []Variant
	if err := s.db.SelectContext(ctx, &out, qVariantsByRecord, recordID); err != nil {
		return nil, fmt.Errorf("list variants %d: %w", recordID, err)
	}
	return out, nil
}

// Get returns one variant.
func (s *Service) Get(ctx context.Context, id int64) (*Variant, error) {
	return getVariant(ctx, s.db, id)
}

// Create inserts a variant for recordID.  An active variant is checked
// against the ledger first.
func (s *Service) Create(ctx context.Context, recordID int64, in CreateInput) (*Variant, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariant, err)
	}

	var out *Variant
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var locked int64
		if err := tx.GetContext(ctx, &locked, qLockRecord, recordID); err != nil {
			return notFoundAs(err, redirect.ErrNotFound)
		}
		if in.Active {
			if err := ValidateAddition(ctx, tx, recordID, in.Weight, nil); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		res, err := tx.ExecContext(ctx, qInsertVariant,
			recordID, in.TargetURL, in.Weight, in.Active, now, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		out = &Variant{
			ID:         id,
			ShortURLID: recordID,
			TargetURL:  in.TargetURL,
			Weight:     in.Weight,
			Active:     in.Active,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("variant created",
		zap.Int64("variant", out.ID),
		zap.Int64("record", recordID),
		zap.Float64("weight", out.Weight),
		zap.Bool("active", out.Active))
	return out, nil
}

// Update applies a partial patch.  The ledger is consulted when the variant
// ends up active and either its weight changes or it is being activated; an
// activation alone is validated with the stored weight.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Variant, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariant, err)
	}

	var out *Variant
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var locked int64
		if err := tx.GetContext(ctx, &locked, qLockRecordByVariant, id); err != nil {
			return notFoundAs(err, ErrVariantNotFound)
		}
		cur, err := getVariant(ctx, tx, id)
		if err != nil {
			return err
		}

		next := *cur
		if in.TargetURL != nil {
			next.TargetURL = *in.TargetURL
		}
		if in.Weight != nil {
			next.Weight = *in.Weight
		}
		if in.Active != nil {
			next.Active = *in.Active
		}

		activating := next.Active && !cur.Active
		if next.Active && (in.Weight != nil || activating) {
			if err := ValidateAddition(ctx, tx, next.ShortURLID, next.Weight, &next.ID); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.now().UTC()
		if _, err := tx.ExecContext(ctx, qUpdateVariant,
			next.TargetURL, next.Weight, next.Active, next.UpdatedAt, next.ID); err != nil {
			return translate(err)
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("variant updated",
		zap.Int64("variant", out.ID),
		zap.Float64("weight", out.Weight),
		zap.Bool("active", out.Active))
	return out, nil
}

// Delete removes a variant.  Removing weight can never break the ledger, so
// no lock is taken.
func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, qDeleteVariant, id)
	if err != nil {
		return fmt.Errorf("delete variant %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVariantNotFound
	}
	zap.L().Info("variant deleted", zap.Int64("variant", id))
	return nil
}

func (s *Service) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// translate maps MySQL constraint errors onto domain errors.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errCheckViolated, errCheckViolatedMB:
		return fmt.Errorf("%w: %s", ErrProbabilityExceeded, me.Message)
	case errNoReferencedRow:
		return fmt.Errorf("%w: %s", redirect.ErrNotFound, me.Message)
	}
	return err
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
