package forms

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrInvalidFormURL is returned when no form reference can be extracted.
	ErrInvalidFormURL = errors.New("not a recognised form URL")
	// ErrDuplicateForm is returned when the form is already registered.
	ErrDuplicateForm = errors.New("form already registered")
)

// Registry implements the form-mapping administration operations.  Unlike
// the redirect path these are allowed to fail when the schema service is
// unreachable.
type Registry struct {
	store   *Store
	fetcher Fetcher
	cache   *FieldCache
}

// NewRegistry wires a Registry.  cache may be nil.
func NewRegistry(store *Store, fetcher Fetcher, cache *FieldCache) *Registry {
	return &Registry{store: store, fetcher: fetcher, cache: cache}
}

// Register adds the form behind editURL, storing its responder id and title
// and seeding form_entries.
func (r *Registry) Register(ctx context.Context, editURL string) (*Mapping, error) {
	ref, ok := ExtractRef(editURL)
	if !ok {
		return nil, ErrInvalidFormURL
	}
	if _, err := r.store.ByReference(ctx, ref); err == nil {
		return nil, ErrDuplicateForm
	} else if !errors.Is(err, ErrFormNotFound) {
		return nil, err
	}

	s, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	responder, err := responderID(s)
	if err != nil {
		return nil, err
	}

	m := &Mapping{FormID: ref, ResponderID: responder, Title: s.Title}
	if err := r.store.Insert(ctx, m); err != nil {
		return nil, err
	}
	if _, err := r.store.Reconcile(ctx, m.ID, s.Fields); err != nil {
		return nil, err
	}

	zap.L().Info("form registered",
		zap.String("form", m.FormID),
		zap.String("responder", m.ResponderID))
	return m, nil
}

// Verify refetches a registered form, refreshes its responder id and title
// when they changed, and reconciles its entries.
func (r *Registry) Verify(ctx context.Context, id int64) (*Mapping, error) {
	m, err := r.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := r.fetcher.Fetch(ctx, m.FormID)
	if err != nil {
		return nil, err
	}
	responder, err := responderID(s)
	if err != nil {
		return nil, err
	}

	if responder != m.ResponderID || s.Title != m.Title {
		m.ResponderID, m.Title = responder, s.Title
		if err := r.store.Update(ctx, m); err != nil {
			return nil, err
		}
	}
	if _, err := r.store.Reconcile(ctx, m.ID, s.Fields); err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Invalidate(m.FormID)
	}
	return m, nil
}

// Delete removes a mapping and its entries.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	m, err := r.store.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	if r.cache != nil {
		r.cache.Invalidate(m.FormID)
	}
	zap.L().Info("form deleted", zap.String("form", m.FormID))
	return nil
}

func responderID(s *Schema) (string, error) {
	if s.ResponderID != "" {
		return s.ResponderID, nil
	}
	if ref, ok := ExtractRef(s.PrefilledURL); ok {
		return ref, nil
	}
	return "", fmt.Errorf("%w: schema carries no responder id", ErrMappingUnavailable)
}
