package forms

import "regexp"

// Form URLs come in two shapes: the long responder form
// (/forms/d/e/<id>/viewform) and the short edit form (/forms/d/<id>/edit).
// The long pattern is tried first because the short one would capture "e".
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/d/e/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`),
}

// ExtractRef returns the form reference embedded in rawURL.
func ExtractRef(rawURL string) (string, bool) {
	for _, re := range refPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}
