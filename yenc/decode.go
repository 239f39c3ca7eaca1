package yenc

import (
	"context"
	"io"

	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/internal/digest"
	"github.com/sebastian404/newsreap/internal/trace"
)

var decodeTracer = &trace.Tracer{Package: pkgName, Provider: "decoder", LatencyMeasure: latencyMeasure}

// LineReader is anything the Decoder can pull yEnc lines from; content.Content
// satisfies it directly, so a fetched article body can be decoded straight
// off its raw Content without an intermediate buffer.
type LineReader interface {
	ReadLine() (string, error)
}

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	// WorkDir is where the decoded binary Content's temp file is created.
	WorkDir string
	// MaxBytes caps the number of decoded bytes before the decoder stops
	// early (spec section 4.2, "max_bytes (optional cap)"). Zero means
	// unbounded.
	MaxBytes int64
}

// Decoder turns a yEnc line stream into an attached binary content.Content,
// per spec section 4.2. A Decoder decodes exactly one article's worth of
// framing (=ybegin.../=yend); Result.Pushback carries forward a line that
// belongs to the next article when the stream contains more than one.
type Decoder struct {
	opts DecoderOptions
}

// NewDecoder returns a Decoder configured by opts (nil for defaults).
func NewDecoder(opts *DecoderOptions) *Decoder {
	o := DecoderOptions{}
	if opts != nil {
		o = *opts
	}
	return &Decoder{opts: o}
}

// Result is the outcome of a single Decode call.
type Result struct {
	// Content is the decoded binary payload. Nil if no =ybegin was ever
	// observed (the stream held no yEnc article at all).
	Content *content.Content
	// Pushback is non-empty when a duplicate keyword line was seen: it is
	// the line that should be prepended to the next Decode call's stream,
	// per spec section 4.2's "rewind stream to line start, stop".
	Pushback string
	// Corruption counts malformed payload lines skipped during decode
	// (spec section 7, CodecError: "non-fatal; counter incremented").
	Corruption int
	// BytesDecoded is the number of raw bytes written to Content.
	BytesDecoded int64
}

// decodeState tracks the keyword lines seen so far within one Decode call.
type decodeState struct {
	sawBegin, sawPart, sawEnd bool
}

// Decode consumes lr line by line until it sees =yend, a duplicate keyword,
// or EOF, per the algorithm in spec section 4.2.
func (d *Decoder) Decode(ctx context.Context, lr LineReader) (res *Result, err error) {
	ctx = decodeTracer.Start(ctx, "Decode")
	defer func() { decodeTracer.End(ctx, err) }()

	res = &Result{}
	var state decodeState
	var target *content.Content
	var crc *digest.CRC32
	escapeCarry := false
	sawPartKeyword := false

	finish := func(valid bool) error {
		if target == nil {
			return nil
		}
		if err := target.Close(); err != nil {
			return err
		}
		target.SetValid(valid)
		return nil
	}

	for {
		if d.opts.MaxBytes > 0 && res.BytesDecoded >= d.opts.MaxBytes {
			break
		}
		line, rerr := lr.ReadLine()
		if rerr == io.EOF {
			// Truncated stream: content has whatever bytes were written,
			// but is not valid (spec section 8, Boundary behaviors).
			if ferr := finish(false); ferr != nil {
				return nil, ferr
			}
			res.Content = target
			return res, nil
		}
		if rerr != nil {
			return nil, rerr
		}

		if kw, ok := parseKeyword(line); ok {
			switch kw.kind {
			case kwBegin:
				if state.sawBegin {
					res.Pushback = line
					if ferr := finish(false); ferr != nil {
						return nil, ferr
					}
					res.Content = target
					return res, nil
				}
				state.sawBegin = true
				partNo, totalParts := 1, 1
				if kw.hasPart {
					partNo = kw.part
				}
				if kw.hasTotal {
					totalParts = kw.total
				}
				c, cerr := content.New(kw.name, &content.Options{
					WorkDir:    d.opts.WorkDir,
					Part:       partNo,
					TotalParts: totalParts,
				})
				if cerr != nil {
					return nil, cerr
				}
				target = c
				crc = digest.NewCRC32()
				// Single-part tolerance: until/unless a =ypart line sets a
				// real range, assume the whole payload is this Content.
				target.SetRange(0, kw.size, kw.size)
			case kwPart:
				if !state.sawBegin {
					// StateError: out-of-order keyword, line ignored.
					continue
				}
				if state.sawPart {
					res.Pushback = line
					if ferr := finish(false); ferr != nil {
						return nil, ferr
					}
					res.Content = target
					return res, nil
				}
				state.sawPart = true
				sawPartKeyword = true
				begin := kw.begin - 1 // B is content.begin + 1
				target.SetRange(begin, kw.end, target.TotalSize())
			case kwEnd:
				if !state.sawBegin && !state.sawPart {
					continue
				}
				if state.sawEnd {
					res.Pushback = line
					if ferr := finish(target.Valid()); ferr != nil {
						return nil, ferr
					}
					res.Content = target
					return res, nil
				}
				state.sawEnd = true
				if !sawPartKeyword {
					target.SetRange(0, kw.size, kw.size)
				}
				valid := crc.Hex() == kw.pcrc32
				if kw.hasCRC32 {
					target.SetWholeCRC32(kw.crc32)
				}
				if ferr := finish(valid); ferr != nil {
					return nil, ferr
				}
				res.Content = target
				return res, nil
			}
			continue
		}

		// Payload line.
		if !state.sawBegin && !state.sawPart {
			continue // dropped: neither begin nor part seen yet
		}
		if target == nil {
			continue
		}
		n, derr := decodePayloadLine(line, &escapeCarry)
		if derr != nil {
			res.Corruption++
			continue
		}
		if len(n) > 0 {
			if _, werr := target.Write(n, false); werr != nil {
				return nil, werr
			}
			crc.Write(n)
			res.BytesDecoded += int64(len(n))
		}
	}
	// MaxBytes reached: stop without a =yend reconciliation, so the
	// content keeps the bytes written so far but is not valid.
	if ferr := finish(false); ferr != nil {
		return nil, ferr
	}
	res.Content = target
	return res, nil
}

// decodePayloadLine decodes one non-keyword line into raw bytes, applying
// the escape carry bit from the previous line and updating it for the next
// line if this line ends on a lone '='.
func decodePayloadLine(line string, carry *bool) ([]byte, error) {
	raw := []byte(line)
	out := make([]byte, 0, len(raw))
	i := 0
	if *carry {
		if len(raw) == 0 {
			return out, nil
		}
		out = append(out, byte(int(raw[0])-escapeShift-shift))
		i = 1
		*carry = false
	}
	for i < len(raw) {
		if raw[i] == '=' {
			if i+1 < len(raw) {
				out = append(out, byte(int(raw[i+1])-escapeShift-shift))
				i += 2
				continue
			}
			// Trailing '=' with no partner on this line: carry to next.
			*carry = true
			i++
			continue
		}
		out = append(out, decodeByte(raw[i]))
		i++
	}
	return out, nil
}
