// internal/abtest/ledger.go
//
// Probability ledger.
//
// Context
// -------
// The active variants of one redirect record share the traffic that is not
// left to the primary destination, so their weights may add up to at most
// 1.0.  The ledger sums the persisted active weights and rejects a write
// that would push the total past that bound.
//
// Weights are summed in Go, in creation order, with the same float64
// arithmetic the selector uses for its cumulative walk.  The comparison is
// exact: no rounding tolerance.
//
// Notes
// -----
//   - Callers pass the transaction that holds the parent row lock so the
//     read and the following write see the same state.
package abtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrProbabilityExceeded is returned when a write would push the active
// weight total of a record above 1.0.
var ErrProbabilityExceeded = errors.New("total active probability exceeds 1.0")

const (
	qActiveWeights = `
        SELECT probability
        FROM   ab_tests
        WHERE  short_url_id = ?
          AND  is_active = TRUE
        ORDER  BY id`

	qActiveWeightsExcluding = `
        SELECT probability
        FROM   ab_tests
        WHERE  short_url_id = ?
          AND  is_active = TRUE
          AND  id <> ?
        ORDER  BY id`
)

// TotalActiveWeight sums the weights of the active variants of recordID,
// leaving out exclude when it is non-nil.
func TotalActiveWeight(ctx context.Context, q sqlx.QueryerContext, recordID int64, exclude *int64) (float64, error) {
	var (
		weights []float64
		err     error
	)
	if exclude == nil {
		err = sqlx.SelectContext(ctx, q, &weights, qActiveWeights, recordID)
	} else {
		err = sqlx.SelectContext(ctx, q, &weights, qActiveWeightsExcluding, recordID, *exclude)
	}
	if err != nil {
		return 0, fmt.Errorf("active weights %d: %w", recordID, err)
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	return total, nil
}

// ValidateAddition fails with ErrProbabilityExceeded when adding candidate to
// the current active total of recordID would exceed 1.0.
func ValidateAddition(ctx context.Context, q sqlx.QueryerContext, recordID int64, candidate float64, exclude *int64) error {
	current, err := TotalActiveWeight(ctx, q, recordID, exclude)
	if err != nil {
		return err
	}
	if current+candidate > 1.0 {
		return fmt.Errorf("%w: current %.4f + candidate %.4f", ErrProbabilityExceeded, current, candidate)
	}
	return nil
}
