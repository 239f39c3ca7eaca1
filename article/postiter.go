package article

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/yenc"
)

// contentWriter adapts a content.Content to io.Writer so message.Entity.WriteTo
// can stream directly into it, the same role driver.WriterTo plays for
// mailer.Transport.Send in the teacher repo.
type contentWriter struct{ c *content.Content }

func (w contentWriter) Write(p []byte) (int, error) {
	return w.c.Write(p, false)
}

func readAllContent(c *content.Content) ([]byte, error) {
	if err := c.Open(content.ModeRead, false); err != nil {
		return nil, err
	}
	defer c.Close()
	var buf bytes.Buffer
	const chunkSize = 32 * 1024
	for {
		data, err := c.Read(chunkSize)
		if len(data) > 0 {
			buf.Write(data)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// PostIter yields the wire form of this article for posting: RFC-ish
// headers (Subject/From/Newsgroups/Message-Id, plus any extra header
// fields) assembled with go-message the way mailer.SendMessage assembles
// an email, followed by the textual body and each decoded Content's
// yEnc-encoded form. Returns a nil iterator, no error, if subject, poster
// or groups are missing (spec section 4.3, "post_iter()" precondition).
func (a *Article) PostIter(ctx context.Context, enc *yenc.Encoder, block int) (*content.ChunkIter, error) {
	ctx = articleTracer.Start(ctx, "PostIter")
	var err error
	defer func() { articleTracer.End(ctx, err) }()

	if a.subject == "" || a.poster == "" || len(a.Groups()) == 0 {
		return nil, nil
	}

	var hdr message.Header
	hdr.Set("Subject", a.subject)
	hdr.Set("From", a.poster)
	hdr.Set("Newsgroups", strings.Join(a.Groups().Slice(), ","))
	hdr.Set("Message-Id", a.Msgid(false))
	if a.header != nil {
		a.header.Each(func(k, v string) { hdr.Set(k, v) })
	}

	var body bytes.Buffer
	body.WriteString(a.body)
	for _, part := range a.Decoded() {
		var wire *content.Content
		wire, err = enc.Encode(ctx, part)
		if err != nil {
			return nil, err
		}
		var raw []byte
		raw, err = readAllContent(wire)
		wire.Destroy()
		if err != nil {
			return nil, err
		}
		body.Write(raw)
	}

	entity, eerr := message.New(hdr, bytes.NewReader(body.Bytes()))
	if eerr != nil {
		err = eerr
		return nil, err
	}

	var out *content.Content
	out, err = content.New(a.subject+".article", nil)
	if err != nil {
		return nil, err
	}
	if err = entity.WriteTo(contentWriter{out}); err != nil {
		out.Destroy()
		return nil, err
	}
	if err = out.Close(); err != nil {
		out.Destroy()
		return nil, err
	}
	return out.PostIter(block)
}
