package content

import (
	"github.com/sebastian404/newsreap/verr"
)

// errValidation wraps a bad-input failure (spec section 7, ValidationError):
// bad part/total_parts, non-positive sizes, and similar caller mistakes.
func errValidation(format string, args ...interface{}) error {
	return verr.Newf(verr.InvalidArgument, nil, format, args...)
}

// errIO wraps an open/read/write/seek failure (spec section 7, IoError).
func errIO(err error, format string, args ...interface{}) error {
	return verr.Newf(verr.Internal, err, format, args...)
}

// errDiskFull wraps an ENOSPC failure (spec section 7, DiskFullError): fatal
// to the current operation, with attached children removed by the caller.
func errDiskFull(err error) error {
	return verr.Newf(verr.ResourceExhausted, err, "content: no space left on device")
}
