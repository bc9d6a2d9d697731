package template

import (
	"regexp"
	"strings"
	gotemplate "text/template"
)

// urlPattern finds bare http(s) URLs inside otherwise plain text so
// url_to_link can wrap them as chat-client links without requiring the
// author to mark them up explicitly.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// funcMap returns the custom functions available to every template:
// default-value filter, case filters, length (the builtin `len`),
// conditionals (builtin `if`), url_to_link, and key-sorted loops over
// the context's `LabelPairs`/`AnnoPairs` fields (builtin `range`).
func funcMap() gotemplate.FuncMap {
	return gotemplate.FuncMap{
		"default": func(fallback string, v any) string {
			s, ok := v.(string)
			if !ok || s == "" {
				return fallback
			}
			return s
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": strings.Title, //nolint:staticcheck // matches teacher's case-filter surface; golang.org/x/text/cases is not in the example pack
		"url_to_link": func(s string) string {
			return urlPattern.ReplaceAllStringFunc(s, func(u string) string {
				return `<a href="` + u + `">` + u + `</a>`
			})
		},
	}
}
