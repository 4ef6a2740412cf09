package redirect

import "time"

// Record mirrors one row of the externally owned short_urls table.  The
// service never writes it.
//
// OriginalURL is a template: the real destination travels in its `url`
// query parameter (see urlbuild.Unwrap).
type Record struct {
	ID           int64      `db:"id"`
	OriginalURL  string     `db:"original_url"`
	ShortCode    string     `db:"short_code"`
	DateCreated  time.Time  `db:"date_created"`
	ValidSince   *time.Time `db:"valid_since"`
	ValidUntil   *time.Time `db:"valid_until"`
	ForwardQuery bool       `db:"forward_query"`
	DomainID     *int64     `db:"domain_id"`
	Title        *string    `db:"title"`
}

// Visit is the slice of a visits row the redirect path needs: the newest
// one per record feeds click_id and click_timestamp.
type Visit struct {
	ID         int64     `db:"id"`
	Date       time.Time `db:"date"` // UTC, see database.PrepareDSN
	ShortURLID int64     `db:"short_url_id"`
}
