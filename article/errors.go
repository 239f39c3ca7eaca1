package article

import "github.com/sebastian404/newsreap/verr"

// errValidation wraps a bad-input failure (spec section 7, ValidationError).
func errValidation(format string, args ...interface{}) error {
	return verr.Newf(verr.InvalidArgument, nil, format, args...)
}
