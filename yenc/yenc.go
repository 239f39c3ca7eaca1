// Package yenc implements the yEnc line-oriented binary-to-text codec (spec
// section 4.2): a stateful Decoder that turns a readable line stream into an
// attached content.Content, and an Encoder that turns a Content back into
// the wire form, plus a tolerant Subject parser for the free-form filename
// hints Usenet posters embed in article subjects.
package yenc

import (
	"github.com/sebastian404/newsreap/internal/trace"
)

const pkgName = "github.com/sebastian404/newsreap/yenc"

var (
	latencyMeasure = trace.LatencyMeasure(pkgName)

	// OpenCensusViews are the predefined count/latency views for this
	// package, in the same shape every package in this module exposes.
	OpenCensusViews = trace.Views(pkgName, latencyMeasure)
)

// DefaultLineLength is the encoded-character line width used when no other
// value is supplied, matching the reference encoders' default.
const DefaultLineLength = 128

// escapeShift is added on top of the normal +42 shift for an escaped byte.
const escapeShift = 64

// shift is the core yEnc byte transform offset.
const shift = 42

// encodeByte returns the wire byte for raw byte b, not accounting for
// whether b must be escaped.
func encodeByte(b byte) byte {
	return byte(int(b) + shift)
}

// decodeByte inverts encodeByte.
func decodeByte(b byte) byte {
	return byte(int(b) - shift)
}

// needsEscape reports whether the *encoded* byte e (already +42, before any
// escape shift) requires an escape lead-in wherever it lands in a line.
//
// The five bytes the spec calls out are NUL, CR, LF, '=' and, at a line
// boundary, space/tab/'.'. Only the always-escaped set (NUL, CR, LF, '=')
// is encoded unconditionally; callers handle the line-boundary set
// themselves since it depends on position, not value alone.
func needsEscape(e byte) bool {
	switch e {
	case 0x00, '\r', '\n', '=':
		return true
	default:
		return false
	}
}

// escapedByte returns the second byte of the on-wire pair for a raw byte
// requiring escape: the pair is '=' followed by ((b+42+64) mod 256).
func escapedByte(raw byte) byte {
	return byte(int(raw) + shift + escapeShift)
}
