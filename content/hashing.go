package content

import (
	"io"
	"os"

	"github.com/sebastian404/newsreap/internal/digest"
)

// reader returns a fresh, independent reader over the whole backing store
// from offset 0, for the hashing/sniffing helpers below. It never disturbs
// the Content's own open mode/position.
func (c *Content) reader() (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return nil, err
	}
	if c.mem != nil {
		return io.NopCloser(newByteReader(c.mem.bytes())), nil
	}
	f, err := os.Open(c.filepath)
	if err != nil {
		return nil, errIO(err, "content: open %s for hashing", c.filepath)
	}
	return f, nil
}

func newByteReader(b []byte) io.Reader {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &sliceReader{data: cp}
}

type sliceReader struct {
	data []byte
	pos  int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// MD5 returns the hex-encoded MD5 of the whole payload.
func (c *Content) MD5() (string, error) {
	r, err := c.reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return digest.SumMD5(r)
}

// SHA1 returns the hex-encoded SHA1 of the whole payload.
func (c *Content) SHA1() (string, error) {
	r, err := c.reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return digest.SumSHA1(r)
}

// SHA256 returns the hex-encoded SHA256 of the whole payload.
func (c *Content) SHA256() (string, error) {
	r, err := c.reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return digest.SumSHA256(r)
}

// CRC32 returns the lowercase 8-hex-digit CRC32 of the whole payload, the
// form used in yEnc pcrc32/crc32 footers.
func (c *Content) CRC32() (string, error) {
	r, err := c.reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	crc := digest.NewCRC32()
	if _, err := io.Copy(crc, r); err != nil {
		return "", errIO(err, "content: crc32 %s", c.filepath)
	}
	return crc.Hex(), nil
}

// Mime sniffs the content type from the first bytes of the payload,
// mirroring blob.Writer's http.DetectContentType-based sniffing.
func (c *Content) Mime() (string, error) {
	r, err := c.reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	buf := make([]byte, digest.SniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errIO(err, "content: sniff %s", c.filepath)
	}
	return digest.Sniff(buf[:n]), nil
}

// Hexdump renders up to max bytes of the payload as a hex+ASCII dump, for
// diagnostics when a part fails CRC reconciliation.
func (c *Content) Hexdump(max int) (string, error) {
	r, err := c.reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	limit := max
	if limit <= 0 {
		limit = 512
	}
	buf := make([]byte, limit)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errIO(err, "content: hexdump %s", c.filepath)
	}
	return digest.Hexdump(buf[:n], limit), nil
}
