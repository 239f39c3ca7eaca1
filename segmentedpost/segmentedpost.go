// Package segmentedpost implements the ordered group of Articles that
// together reconstruct one logical file (spec section 3/4.4).
package segmentedpost

import (
	"context"
	"crypto/md5"
	"encoding/hex"

	"github.com/sebastian404/newsreap/article"
	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/internal/sortedset"
	"github.com/sebastian404/newsreap/internal/trace"
)

const pkgName = "github.com/sebastian404/newsreap/segmentedpost"

var (
	latencyMeasure = trace.LatencyMeasure(pkgName)

	// OpenCensusViews are the predefined count/latency views for this
	// package, in the same shape every package in this module exposes.
	OpenCensusViews = trace.Views(pkgName, latencyMeasure)
)

var spTracer = &trace.Tracer{Package: pkgName, Provider: "segmentedpost", LatencyMeasure: latencyMeasure}

func articleKey(a *article.Article) string { return a.SortKey() }

// SegmentedPost is an ordered set of Articles (sorted by Article sort key)
// that together reconstruct one file: it carries the logical filename,
// total byte size, and a monotonic part-count view (spec section 3).
type SegmentedPost struct {
	filename string
	articles *sortedset.Set[*article.Article]
}

// New returns an empty SegmentedPost for the named logical file.
func New(filename string) *SegmentedPost {
	return &SegmentedPost{
		filename: filename,
		articles: sortedset.New(articleKey),
	}
}

// Filename returns the logical filename this SegmentedPost reconstructs.
func (sp *SegmentedPost) Filename() string { return sp.filename }

// Add inserts a into the ordered set (sorted by Article sort key,
// duplicates by sort key collapse, mirroring Article.Add over Content).
func (sp *SegmentedPost) Add(a *article.Article) {
	sp.articles.Add(a)
}

// Articles returns the member Articles in Article sort-key order (article
// number, then message-id); this is part order only when the article
// numbers follow the part numbers. The returned slice must not be mutated
// by the caller.
func (sp *SegmentedPost) Articles() []*article.Article {
	return sp.articles.Items()
}

// Len returns the number of Articles currently present.
func (sp *SegmentedPost) Len() int { return sp.articles.Len() }

// Size returns the sum of each part's Content byte length (spec section
// 4.4, "size() = Σ part sizes").
func (sp *SegmentedPost) Size() (int64, error) {
	var total int64
	for _, a := range sp.Articles() {
		for _, c := range a.Decoded() {
			n, err := c.Length()
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

// TotalParts returns the total part count declared by the member Contents,
// or 0 if there are no members yet.
func (sp *SegmentedPost) TotalParts() int {
	for _, a := range sp.Articles() {
		for _, c := range a.Decoded() {
			return c.TotalParts()
		}
	}
	return 0
}

// IsValid reports whether every part Article is present and every part's
// Content is valid (spec section 4.4, "is_valid()"): every member Content
// is valid and declares the same total, and each 1..total part index is
// covered by at least one of them. Two members covering the same part are
// not rejected.
func (sp *SegmentedPost) IsValid() bool {
	total := sp.TotalParts()
	if total == 0 {
		return false
	}
	seen := make(map[int]bool, total)
	for _, a := range sp.Articles() {
		for _, c := range a.Decoded() {
			if !c.Valid() {
				return false
			}
			if c.TotalParts() != total {
				return false
			}
			seen[c.Part()] = true
		}
	}
	for i := 1; i <= total; i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}

// GID is the md5 of the first segment's first Content's message-id (spec
// section 6, "A SegmentedPost's gid is defined as..."), used by an
// external indexer for dedup. Returns "" if there are no parts yet.
func (sp *SegmentedPost) GID() string {
	items := sp.Articles()
	if len(items) == 0 {
		return ""
	}
	sum := md5.Sum([]byte(items[0].Msgid(false)))
	return hex.EncodeToString(sum[:])
}

// Assemble concatenates every part's Content, in sort order, into target
// via Content.Load, per spec section 4.4: "the consumer calls
// Content.load([c1,c2,...,cN]) on a fresh target Content to concatenate."
func (sp *SegmentedPost) Assemble(ctx context.Context, target *content.Content) (err error) {
	ctx = spTracer.Start(ctx, "Assemble")
	defer func() { spTracer.End(ctx, err) }()

	var parts []*content.Content
	for _, a := range sp.Articles() {
		parts = append(parts, a.Decoded()...)
	}
	return target.Load(ctx, parts)
}
