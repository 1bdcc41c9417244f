package server

import (
	"net/url"
	"strings"

	"github.com/microwrap/microwrap/internal/dispatch"
)

// ParseQuery splits a raw query string into parameters, keeping their order
// of appearance. url.Values cannot serve here: it is an unordered map and it
// collapses the bare-flag form (?loud) and the explicit empty value
// (?loud=), both of which the translator distinguishes.
//
// Malformed input is handled permissively: empty segments are skipped and a
// token with a broken percent escape is kept verbatim.
func ParseQuery(rawQuery string) []dispatch.Param {
	var params []dispatch.Param
	for _, segment := range strings.Split(rawQuery, "&") {
		if segment == "" {
			continue
		}
		var p dispatch.Param
		if key, value, found := strings.Cut(segment, "="); found {
			p = dispatch.Param{Key: unescape(key), Value: unescape(value), HasValue: true}
		} else {
			p = dispatch.Param{Key: unescape(segment)}
		}
		if p.Key == "" {
			continue
		}
		params = append(params, p)
	}
	return params
}

func unescape(s string) string {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return unescaped
}
