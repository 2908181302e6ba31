package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrUnknownField marks a filter key that is not in the type's path
// index (and is not the reserved $any key). Caller error; the whole
// compilation aborts with no partial plan.
var ErrUnknownField = errors.New("unrecognized field")

// ErrBadValue marks a value that cannot be coerced into the target
// field's type (non-numeric text for a numeric field, malformed id).
var ErrBadValue = errors.New("cannot coerce value")

var digitsOnly = regexp.MustCompile(`^\d+$`)

// ParseNumber parses filter text into a number: an integer when the
// text is all digits, a float otherwise. "3" is int64(3), not 3.0.
func ParseNumber(s string) (interface{}, error) {
	if digitsOnly.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return n, nil
		}
		// Digits but too large for int64; fall through to float.
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrBadValue, s)
	}
	return f, nil
}
