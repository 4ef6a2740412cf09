package forms

import (
	"strings"
	"time"
)

// Mapping registers one external form.  FormID is the canonical (edit)
// reference used against the schema service; ResponderID is the public
// reference that appears in respondent-facing URLs.
type Mapping struct {
	ID          int64     `db:"id"                json:"id"`
	FormID      string    `db:"form_id"           json:"form_id"`
	ResponderID string    `db:"responder_form_id" json:"responder_form_id"`
	Title       string    `db:"title"             json:"title"`
	CreatedAt   time.Time `db:"created_at"        json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"        json:"updated_at"`
}

// FieldEntry is the persisted title → entry id pair for one form field.
// UpdatedAt records when the pair was last confirmed changed or new.
type FieldEntry struct {
	ID        int64     `db:"id"`
	MappingID int64     `db:"google_form_id"`
	Title     string    `db:"title"`
	EntryID   int64     `db:"entry_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Field is one question as reported by the schema service.
type Field struct {
	Title   string `json:"title"`
	EntryID int64  `json:"entry_id"`
}

// Schema is the schema-service view of a form.
type Schema struct {
	Status       int     `json:"status"`
	Title        string  `json:"title"`
	ResponderID  string  `json:"responder_id"`
	PrefilledURL string  `json:"prefilled_url"`
	Fields       []Field `json:"fields"`
}

// Lookup finds the entry id for title, ignoring case and surrounding space.
func (s *Schema) Lookup(title string) (int64, bool) {
	want := normTitle(title)
	for _, f := range s.Fields {
		if normTitle(f.Title) == want {
			return f.EntryID, true
		}
	}
	return 0, false
}

func normTitle(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
