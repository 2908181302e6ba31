package helpers

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a fresh request/connection identifier.
func GenerateUUID() string {
	return uuid.New().String()
}

// StripQuotes removes one layer of surrounding quotes from a value.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// reserved query parameters handled by the route layer, not the
// filter compiler.
var reservedParams = map[string]bool{
	"sort":  true,
	"skip":  true,
	"limit": true,
}

// FilterFromQuery turns URL query parameters into the compiler's
// filter object: single-valued params become scalars, repeated params
// become sets.
func FilterFromQuery(values url.Values) map[string]interface{} {
	filter := make(map[string]interface{})
	for key, vals := range values {
		if reservedParams[key] {
			continue
		}
		if len(vals) == 1 {
			filter[key] = StripQuotes(vals[0])
			continue
		}
		set := make([]string, 0, len(vals))
		for _, v := range vals {
			set = append(set, StripQuotes(v))
		}
		filter[key] = set
	}
	return filter
}
