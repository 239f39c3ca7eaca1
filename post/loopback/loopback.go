// Package loopback implements post.Transport purely in memory, the role
// mailer/smtp's dialer plays for SMTP but without an actual socket: every
// posted Article's wire bytes are captured for inspection by tests.
package loopback

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/sebastian404/newsreap/article"
	"github.com/sebastian404/newsreap/post"
	"github.com/sebastian404/newsreap/verr"
	"github.com/sebastian404/newsreap/yenc"
)

const defaultBlock = 32 * 1024

// Transport is a post.Transport backed by an in-memory ledger of every
// article it has accepted, keyed by message-id.
type Transport struct {
	enc *yenc.Encoder

	mu     sync.Mutex
	posted map[string][]byte
	closed bool
}

var _ post.Transport = (*Transport)(nil)

// New returns a Transport ready to accept Post calls. enc is used to encode
// each Article's attached Content parts; nil uses yenc.NewEncoder(nil).
func New(enc *yenc.Encoder) *Transport {
	if enc == nil {
		enc = yenc.NewEncoder(nil)
	}
	return &Transport{enc: enc, posted: make(map[string][]byte)}
}

// Post drains a.PostIter and stores the concatenated wire bytes under the
// article's message-id. A nil iterator (PostIter's precondition failure,
// spec section 4.3) is reported as a FailedPrecondition error.
func (t *Transport) Post(ctx context.Context, a *article.Article) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return verr.Newf(verr.FailedPrecondition, nil, "post/loopback: transport is closed")
	}

	it, err := a.PostIter(ctx, t.enc, defaultBlock)
	if err != nil {
		return err
	}
	if it == nil {
		return verr.Newf(verr.FailedPrecondition, nil,
			"post/loopback: article missing subject/poster/groups, cannot post")
	}

	var buf bytes.Buffer
	for {
		chunk, nerr := it.Next()
		if len(chunk) > 0 {
			buf.Write(chunk)
		}
		if nerr != nil {
			break
		}
	}

	t.mu.Lock()
	t.posted[a.Msgid(false)] = buf.Bytes()
	t.mu.Unlock()
	return nil
}

// Close marks the transport closed; subsequent Post calls fail.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// ErrorCode classifies err using the shared verr taxonomy.
func (t *Transport) ErrorCode(err error) verr.ErrorCode {
	return verr.Code(err)
}

// Posted returns the captured wire bytes for msgid, and whether anything
// was posted under that id.
func (t *Transport) Posted(msgid string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.posted[msgid]
	return b, ok
}

// Count returns how many distinct articles have been posted so far.
func (t *Transport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.posted)
}

func (t *Transport) String() string {
	return fmt.Sprintf("loopback.Transport{posted=%d}", t.Count())
}
