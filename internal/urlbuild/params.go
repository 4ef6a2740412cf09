package urlbuild

import (
	"net/url"
	"strings"
)

// Params is an insertion-ordered query string.  Setting a key that already
// exists replaces its value in place, so overwritten keys keep their first
// position.
type Params struct {
	keys []string
	vals map[string]string
}

// NewParams returns an empty Params.
func NewParams() *Params {
	return &Params{vals: map[string]string{}}
}

// ParseQuery decodes a raw query string.  For repeated keys the first value
// wins; blank values are kept.  Undecodable pairs are skipped.
func ParseQuery(raw string) *Params {
	p := NewParams()
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		if _, ok := p.vals[key]; !ok {
			p.Set(key, val)
		}
	}
	return p
}

// Len reports the number of keys.
func (p *Params) Len() int { return len(p.keys) }

// Keys returns the keys in order.
func (p *Params) Keys() []string { return append([]string(nil), p.keys...) }

// Get returns the value of key.
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.vals[key]
	return v, ok
}

// Set adds or replaces key.
func (p *Params) Set(key, val string) {
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = val
}

// Del removes key.
func (p *Params) Del(key string) {
	if _, ok := p.vals[key]; !ok {
		return
	}
	delete(p.vals, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Merge sets every pair of other over p, in other's order.
func (p *Params) Merge(other *Params) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		p.Set(k, other.vals[k])
	}
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := NewParams()
	c.Merge(p)
	return c
}

// Encode renders p as a form-encoded query string in key order.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.vals[k]))
	}
	return b.String()
}
