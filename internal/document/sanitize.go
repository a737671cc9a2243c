package document

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses bounds the strip/decode loop in StripMarkup.
const maxSanitizePasses = 8

// StripMarkup removes all HTML from user-supplied text. Labels end up in
// host-rendered markup, so nothing tag-shaped is allowed through. Entities
// escaped by the policy are decoded again so "Q&A" stays "Q&A".
//
// Decoding can turn entity-encoded markup ("&lt;b&gt;") into live tags, so
// strip and decode repeat until the text stops changing. Input that does
// not settle within maxSanitizePasses is returned stripped and still
// escaped.
func StripMarkup(s string) string {
	if s == "" {
		return s
	}
	for range maxSanitizePasses {
		out := html.UnescapeString(strictPolicy.Sanitize(s))
		if out == s {
			return out
		}
		s = out
	}
	return strictPolicy.Sanitize(s)
}

var strictPolicy = bluemonday.StrictPolicy()
