package abtest

import "time"

// Variant is one alternative destination for a redirect record.  Weight is
// the share of visitors (0..1) routed to it while Active.
type Variant struct {
	ID         int64     `db:"id"         json:"id"`
	ShortURLID int64     `db:"short_url_id" json:"short_url_id"`
	TargetURL  string    `db:"target_url" json:"target_url"`
	Weight     float64   `db:"probability" json:"probability"`
	Active     bool      `db:"is_active"  json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CreateInput describes a new variant.
type CreateInput struct {
	TargetURL string  `json:"target_url"  validate:"required,url"`
	Weight    float64 `json:"probability" validate:"gte=0,lte=1"`
	Active    bool    `json:"is_active"`
}

// UpdateInput is a partial patch; nil fields are left unchanged.
type UpdateInput struct {
	TargetURL *string  `json:"target_url"  validate:"omitempty,url"`
	Weight    *float64 `json:"probability" validate:"omitempty,gte=0,lte=1"`
	Active    *bool    `json:"is_active"`
}
