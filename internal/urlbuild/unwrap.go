package urlbuild

import "net/url"

// TargetParam carries the real destination inside a record template.
const TargetParam = "url"

// Unwrap extracts the primary destination from a record template.  The
// template's `url` parameter is the target; every other template parameter
// is merged over the target's own query.  ok is false when the template has
// no target or cannot be parsed.
func Unwrap(template string) (dest string, ok bool) {
	tu, err := url.Parse(template)
	if err != nil {
		return "", false
	}
	tp := ParseQuery(tu.RawQuery)
	target, ok := tp.Get(TargetParam)
	if !ok || target == "" {
		return "", false
	}
	tp.Del(TargetParam)

	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	p := ParseQuery(u.RawQuery)
	p.Merge(tp)
	u.RawQuery = p.Encode()
	u.ForceQuery = false
	return u.String(), true
}
