// Package digest provides the hashing and content-sniffing helpers shared by
// the content package: MD5/SHA1/SHA256 sums, a rolling CRC32 accumulator,
// MIME sniffing and a hexdump formatter for diagnostics.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"strings"

	"github.com/minio/sha256-simd"
)

// SniffLen is the number of leading bytes sniffed to guess a MIME type,
// matching the constant used by blob.Writer's content-type detection.
const SniffLen = 512

// SumMD5 returns the hex-encoded MD5 of r.
func SumMD5(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumSHA1 returns the hex-encoded SHA1 of r.
func SumSHA1(r io.Reader) (string, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumSHA256 returns the hex-encoded SHA256 of r, using the SIMD-accelerated
// implementation the same way internal/blob.GetSHA256Hash did in the
// teacher repo.
func SumSHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CRC32 is a standalone rolling CRC32 (IEEE) accumulator used by the yEnc
// codec to compute per-part and whole-file checksums incrementally.
type CRC32 struct {
	crc uint32
}

// NewCRC32 returns a CRC32 accumulator primed to the zero state.
func NewCRC32() *CRC32 {
	return &CRC32{}
}

// Write feeds p into the rolling checksum. It never returns an error.
func (c *CRC32) Write(p []byte) (int, error) {
	c.crc = crc32.Update(c.crc, crc32.IEEETable, p)
	return len(p), nil
}

// Sum32 returns the checksum accumulated so far.
func (c *CRC32) Sum32() uint32 {
	return c.crc
}

// Hex returns the checksum as the lowercase 8-hex-digit form yEnc footers
// use for pcrc32/crc32.
func (c *CRC32) Hex() string {
	return fmt.Sprintf("%08x", c.crc)
}

// Sniff returns the MIME type of p the same way blob.Writer.open sniffs
// content type: http.DetectContentType over at most SniffLen bytes.
func Sniff(p []byte) string {
	if len(p) > SniffLen {
		p = p[:SniffLen]
	}
	return http.DetectContentType(p)
}

// Hexdump renders up to max bytes of p as a classic hex+ASCII dump, 16
// bytes per line, for debug logging of corrupt payloads.
func Hexdump(p []byte, max int) string {
	if max > 0 && len(p) > max {
		p = p[:max]
	}
	var sb strings.Builder
	for off := 0; off < len(p); off += 16 {
		end := off + 16
		if end > len(p) {
			end = len(p)
		}
		line := p[off:end]
		fmt.Fprintf(&sb, "%08x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(&sb, "%02x ", line[i])
			} else {
				sb.WriteString("   ")
			}
			if i == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}
