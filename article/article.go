// Package article implements a single Usenet posting (spec section 3/4.3):
// subject, poster, groups, message-id, header, body, and an ordered set of
// decoded Content attachments.
package article

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/group"
	"github.com/sebastian404/newsreap/header"
	"github.com/sebastian404/newsreap/internal/sortedset"
	"github.com/sebastian404/newsreap/internal/trace"
	"github.com/sebastian404/newsreap/yenc"
)

const pkgName = "github.com/sebastian404/newsreap/article"

var (
	latencyMeasure = trace.LatencyMeasure(pkgName)

	// OpenCensusViews are the predefined count/latency views for this
	// package, in the same shape every package in this module exposes.
	OpenCensusViews = trace.Views(pkgName, latencyMeasure)
)

var articleTracer = &trace.Tracer{Package: pkgName, Provider: "article", LatencyMeasure: latencyMeasure}

// DefaultNo is the article number used when none is supplied (spec
// section 3, "no ... default 1000").
const DefaultNo = 1000

// MsgidDomain is the right-hand side used when generating message-ids; an
// embedder posting to a real server should override it by assigning to it.
var MsgidDomain = "newsreap.local"

// Article is one Usenet posting.
type Article struct {
	subject   string
	poster    string
	messageID string
	groups    group.Set
	no        int
	header    *header.Header
	body      string
	decoded   *sortedset.Set[*content.Content]
}

func contentKey(c *content.Content) string { return c.SortKey() }

// New returns an empty Article with the default article number.
func New(subject, poster string) *Article {
	return &Article{
		subject: subject,
		poster:  poster,
		no:      DefaultNo,
		groups:  group.NewSet(),
		decoded: sortedset.New(contentKey),
	}
}

// Subject returns the article's subject line.
func (a *Article) Subject() string { return a.subject }

// SetSubject sets the article's subject line.
func (a *Article) SetSubject(s string) { a.subject = s }

// Poster returns the posting identity ("From" equivalent).
func (a *Article) Poster() string { return a.poster }

// SetPoster sets the posting identity.
func (a *Article) SetPoster(p string) { a.poster = p }

// Groups returns the set of normalized groups this article targets.
func (a *Article) Groups() group.Set {
	if a.groups == nil {
		a.groups = group.NewSet()
	}
	return a.groups
}

// No returns the article number within its group.
func (a *Article) No() int { return a.no }

// SetNo sets the article number within its group.
func (a *Article) SetNo(n int) { a.no = n }

// Header returns the article's header set, or nil if none was attached.
func (a *Article) Header() *header.Header { return a.header }

// SetHeader replaces the article's header set.
func (a *Article) SetHeader(h *header.Header) { a.header = h }

// Body returns the textual (ASCII) body.
func (a *Article) Body() string { return a.body }

// SetBody sets the textual body.
func (a *Article) SetBody(b string) { a.body = b }

// Decoded returns the attached Content set in sort-key order. The returned
// slice must not be mutated by the caller.
func (a *Article) Decoded() []*content.Content {
	if a.decoded == nil {
		return nil
	}
	return a.decoded.Items()
}

// SortKey returns the deterministic ordering key for this article:
// "{no:05}{message_id}" (spec section 3, Article "Sort key").
func (a *Article) SortKey() string {
	return fmt.Sprintf("%05d%s", a.no, a.messageID)
}

// Less orders by SortKey.
func (a *Article) Less(other *Article) bool {
	return a.SortKey() < other.SortKey()
}

// Add inserts content into the decoded set (sorted, duplicate sort keys
// ignored per spec section 4.3).
func (a *Article) Add(c *content.Content) {
	if a.decoded == nil {
		a.decoded = sortedset.New(contentKey)
	}
	a.decoded.Add(c)
}

// Msgid returns the current message-id, generating a fresh RFC-ish one
// (grounded on google/uuid, spec section 4.3 "msgid(reset?)") if absent or
// if reset is true.
func (a *Article) Msgid(reset bool) string {
	if reset || a.messageID == "" {
		a.messageID = fmt.Sprintf("<%s@%s>", uuid.NewString(), MsgidDomain)
	}
	return a.messageID
}

// SetMessageID sets the message-id directly, e.g. when loading a fetched
// article that already carries one.
func (a *Article) SetMessageID(id string) { a.messageID = id }

// Copy deep-copies header and duplicates each Content via Content.Copy,
// preserving subject/poster/groups/no (spec section 4.3, "copy()").
func (a *Article) Copy(ctx context.Context) (*Article, error) {
	ctx = articleTracer.Start(ctx, "Copy")
	var err error
	defer func() { articleTracer.End(ctx, err) }()

	dup := New(a.subject, a.poster)
	dup.no = a.no
	dup.body = a.body
	for g := range a.Groups() {
		dup.groups.Add(g)
	}
	if a.header != nil {
		dup.header = a.header.Copy()
	}
	for _, c := range a.Decoded() {
		var cc *content.Content
		cc, err = c.Copy(ctx)
		if err != nil {
			return nil, err
		}
		dup.Add(cc)
	}
	return dup, nil
}

// Split delegates to the single Content in decoded (spec section 4.3), then
// wraps each child Content in a new Article sharing subject/poster/groups;
// each child Article's Content already carries its part/total_parts.
func (a *Article) Split(ctx context.Context, partSize int64, memBuf int) ([]*Article, error) {
	ctx = articleTracer.Start(ctx, "Split")
	var err error
	defer func() { articleTracer.End(ctx, err) }()

	items := a.Decoded()
	if len(items) != 1 {
		err = errValidation("article: split requires exactly one decoded Content, have %d", len(items))
		return nil, err
	}
	var children []*content.Content
	children, err = items[0].Split(ctx, partSize, memBuf)
	if err != nil {
		return nil, err
	}
	out := make([]*Article, 0, len(children))
	for _, child := range children {
		part := New(a.subject, a.poster)
		for g := range a.Groups() {
			part.groups.Add(g)
		}
		part.no = a.no
		part.Add(child)
		out = append(out, part)
	}
	return out, nil
}

// Deobfuscate returns the best-guess filename for this article's payload,
// per the precedence rules in spec section 4.3 and the worked example in
// scenario 6: an attached Content's own filename is preferred only if it
// doesn't look like a generic placeholder (see isAmbiguousName); otherwise
// a name parsed from the subject is preferred; filebase, if supplied,
// replaces the base name but keeps the chosen source's extension.
func (a *Article) Deobfuscate(filebase string, codecs ...yenc.SubjectParser) string {
	var contentName string
	if items := a.Decoded(); len(items) > 0 {
		contentName = items[0].Filename()
	}

	if codecs == nil {
		codecs = yenc.DefaultSubjectParsers
	}
	var subjectName string
	for _, c := range codecs {
		if s, ok := c.Parse(a.subject); ok && s.HasFilename {
			subjectName = s.Filename
			break
		}
	}

	extOf := func(name string) string {
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			return name[i:]
		}
		return ""
	}

	switch {
	case contentName != "" && !isAmbiguousName(contentName):
		if filebase != "" {
			return filebase + extOf(contentName)
		}
		return contentName
	case subjectName != "":
		if filebase != "" {
			return filebase + extOf(subjectName)
		}
		return subjectName
	case filebase != "":
		return filebase
	default:
		return contentName
	}
}

func isAmbiguousName(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case !strings.Contains(lower, "."):
		return true
	case strings.HasSuffix(lower, ".tmp"),
		strings.HasSuffix(lower, ".part"),
		strings.HasSuffix(lower, ".dat"),
		strings.HasSuffix(lower, ".ntx"):
		return true
	default:
		return false
	}
}
