package yenc

import (
	"bytes"
	"context"
	"fmt"
	"io"

	humanize "github.com/dustin/go-humanize"
	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/internal/digest"
	"github.com/sebastian404/newsreap/internal/trace"
)

var encodeTracer = &trace.Tracer{Package: pkgName, Provider: "encoder", LatencyMeasure: latencyMeasure}

// defaultEncodeChunk is the read-side chunk size the encoder pulls from the
// source Content; the output is flushed to the destination Content in
// roughly the same sized batches, sized in humanize units the same way
// fileblob-multipart.go sizes its copy buffer.
const defaultEncodeChunk = 32 * humanize.KiByte

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	// WorkDir is where the encoded ASCII Content's temp file is created.
	WorkDir string
	// LineLength is the encoded-character line width; zero uses
	// DefaultLineLength.
	LineLength int
}

// Encoder turns a binary content.Content part into its yEnc wire form, per
// spec section 4.2.
type Encoder struct {
	opts EncoderOptions
}

// NewEncoder returns an Encoder configured by opts (nil for defaults).
func NewEncoder(opts *EncoderOptions) *Encoder {
	o := EncoderOptions{}
	if opts != nil {
		o = *opts
	}
	if o.LineLength <= 0 {
		o.LineLength = DefaultLineLength
	}
	return &Encoder{opts: o}
}

// Encode reads part in full and returns a new attached ASCII Content
// containing the three keyword lines and the escaped, line-wrapped
// payload. If part has a parent (a split back-reference), the parent's
// whole-file CRC32 is emitted as the =yend line's crc32 attribute.
func (e *Encoder) Encode(ctx context.Context, part *content.Content) (out *content.Content, err error) {
	ctx = encodeTracer.Start(ctx, "Encode")
	defer func() { encodeTracer.End(ctx, err) }()

	length, err := part.Length()
	if err != nil {
		return nil, err
	}

	dst, err := content.New(part.Filename()+".yenc", &content.Options{WorkDir: e.opts.WorkDir})
	if err != nil {
		return nil, err
	}

	writeLine := func(s string) error {
		_, werr := dst.Write([]byte(s+"\r\n"), false)
		return werr
	}

	includePart := part.TotalParts() > 1
	begin := &bytes.Buffer{}
	fmt.Fprintf(begin, "=ybegin part=%d total=%d line=%d size=%d name=%s",
		part.Part(), part.TotalParts(), e.opts.LineLength, length, part.Filename())
	if err := writeLine(begin.String()); err != nil {
		dst.Destroy()
		return nil, err
	}
	if includePart {
		if err := writeLine(fmt.Sprintf("=ypart begin=%d end=%d", part.Begin()+1, part.End())); err != nil {
			dst.Destroy()
			return nil, err
		}
	}

	if err := part.Open(content.ModeRead, false); err != nil {
		dst.Destroy()
		return nil, err
	}

	crc := digest.NewCRC32()
	lineBuf := &bytes.Buffer{}
	readBuf := make([]byte, defaultEncodeChunk)

	// lineUnit is one byte's on-wire encoding, held back from lineBuf until
	// the line it belongs to is finalized: whether it sits at the line's
	// trailing boundary (and so needs the space/tab/'.' escape) is only
	// known once the byte after it is seen, or EOF is reached.
	type lineUnit struct {
		raw byte
		enc []byte
	}
	var lineUnits []lineUnit
	lineLen := 0

	flushLine := func() error {
		if lineBuf.Len() == 0 {
			return nil
		}
		_, werr := dst.Write(lineBuf.Bytes(), false)
		lineBuf.Reset()
		return werr
	}

	// finalizeLine closes out the in-progress line. A trailing raw space,
	// tab or '.' must be escaped per spec section 4.2's line-boundary
	// rule even though it was appended unescaped (its end-of-line status
	// wasn't knowable until now); if escaping no longer fits, the whole
	// byte is carried whole onto the next line instead.
	finalizeLine := func() error {
		if len(lineUnits) == 0 {
			return nil
		}
		last := &lineUnits[len(lineUnits)-1]
		var carry *lineUnit
		if len(last.enc) == 1 {
			switch last.enc[0] {
			case '.', ' ', '\t':
				escaped, _ := encodePayloadByte(last.raw, lineLen-1, e.opts.LineLength, true)
				if lineLen-1+len(escaped) > e.opts.LineLength {
					cEnc, _ := encodePayloadByte(last.raw, 0, e.opts.LineLength, false)
					c := lineUnit{raw: last.raw, enc: cEnc}
					carry = &c
					lineLen--
					lineUnits = lineUnits[:len(lineUnits)-1]
				} else {
					lineLen += len(escaped) - 1
					last.enc = escaped
				}
			}
		}
		for _, u := range lineUnits {
			lineBuf.Write(u.enc)
		}
		lineBuf.WriteString("\r\n")
		lineUnits = lineUnits[:0]
		lineLen = 0
		if carry != nil {
			lineUnits = append(lineUnits, *carry)
			lineLen = len(carry.enc)
		}
		if lineBuf.Len() >= defaultEncodeChunk {
			return flushLine()
		}
		return nil
	}

	appendByte := func(b byte) error {
		enc, _ := encodePayloadByte(b, lineLen, e.opts.LineLength, false)
		if lineLen+len(enc) > e.opts.LineLength {
			if err := finalizeLine(); err != nil {
				return err
			}
			enc, _ = encodePayloadByte(b, lineLen, e.opts.LineLength, false)
		}
		lineUnits = append(lineUnits, lineUnit{raw: b, enc: enc})
		lineLen += len(enc)
		return nil
	}

	for {
		raw, rerr := part.Read(len(readBuf))
		if len(raw) > 0 {
			crc.Write(raw)
			for _, b := range raw {
				if aerr := appendByte(b); aerr != nil {
					part.Close()
					dst.Destroy()
					return nil, aerr
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			part.Close()
			dst.Destroy()
			return nil, rerr
		}
	}
	if err := finalizeLine(); err != nil {
		part.Close()
		dst.Destroy()
		return nil, err
	}
	if err := flushLine(); err != nil {
		part.Close()
		dst.Destroy()
		return nil, err
	}
	if err := part.Close(); err != nil {
		dst.Destroy()
		return nil, err
	}

	endLine := fmt.Sprintf("=yend size=%d part=%d pcrc32=%s", length, part.Part(), crc.Hex())
	if parent := part.Parent(); parent != nil {
		wholeCRC, err := parent.CRC32()
		if err == nil {
			endLine += " crc32=" + wholeCRC
		}
	}
	if err := writeLine(endLine); err != nil {
		dst.Destroy()
		return nil, err
	}

	if err := dst.Flush(); err != nil {
		dst.Destroy()
		return nil, err
	}
	if err := dst.Close(); err != nil {
		dst.Destroy()
		return nil, err
	}
	dst.SetValid(true)
	return dst, nil
}

// encodePayloadByte returns the on-wire bytes for raw byte b (1 or 2
// characters) and whether it required an escape. pos is the byte's
// position within the current (not-yet-terminated) line; atLineEnd marks
// that b is the last byte written before the line's CRLF. Both positions
// matter per spec section 4.2: a literal space, tab or '.' must never
// land as the first or last character of a line, since relays are known
// to strip leading/trailing line whitespace and NNTP dot-stuffs a lone
// leading '.'.
func encodePayloadByte(b byte, pos, lineLen int, atLineEnd bool) ([]byte, bool) {
	e := encodeByte(b)
	if needsEscape(e) {
		return []byte{'=', escapedByte(b)}, true
	}
	if (pos == 0 || atLineEnd) && (e == '.' || e == ' ' || e == '\t') {
		return []byte{'=', escapedByte(b)}, true
	}
	return []byte{e}, false
}
