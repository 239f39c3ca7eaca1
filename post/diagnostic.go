package post

import (
	"bytes"

	"github.com/emersion/go-textwrapper"
	"github.com/sebastian404/newsreap/content"
)

// defaultReportWidth matches the plain-text MIME body width go-textwrapper
// wraps at in mailer's outgoing messages.
const defaultReportWidth = 76

// HexdumpReport renders a fixed-width, line-wrapped hex+ASCII dump of up to
// max bytes of part's payload, suitable for pasting into a posted
// comment/report about a corrupt part. part.Hexdump itself produces
// 78-column lines, wider than defaultReportWidth (spec's hexdump is a debug
// aid, not a wire format), so wrapping it for a human-facing report reuses
// go-textwrapper the same
// plain fixed-width role it plays wrapping MIME body text in mailer.
func HexdumpReport(part *content.Content, max int) (string, error) {
	dump, err := part.Hexdump(max)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	w := textwrapper.New(&buf, defaultReportWidth)
	if _, err := w.Write([]byte(dump)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
