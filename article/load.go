package article

import (
	"github.com/sebastian404/newsreap/content"
	"github.com/sebastian404/newsreap/header"
)

// Response is the minimal shape of a fetched NNTP article response that
// Article.Load knows how to adopt: a body, an optional embedded header,
// and the decoded Content set produced by the yEnc decoder for each part
// in the response (spec section 4.3, "load(response_or_article)").
type Response struct {
	Header  *header.Header
	Body    string
	Decoded []*content.Content
}

// Load rebinds this Article from source, which may be a *Response (adopt
// its body, decoded set, and header) or another *Article (overwrite only
// the fields explicitly set on the donor, spec section 3 Article
// invariant "Loading one Article over another overwrites only fields
// explicitly supplied by the donor").
func (a *Article) Load(source interface{}) error {
	switch src := source.(type) {
	case *Response:
		a.body = src.Body
		if src.Header != nil {
			a.header = src.Header
		}
		a.decoded = nil
		for _, c := range src.Decoded {
			a.Add(c)
		}
		return nil
	case *Article:
		if src.subject != "" {
			a.subject = src.subject
		}
		if src.poster != "" {
			a.poster = src.poster
		}
		if src.messageID != "" {
			a.messageID = src.messageID
		}
		if len(src.groups) > 0 {
			for g := range src.groups {
				a.Groups().Add(g)
			}
		}
		if src.no != 0 {
			a.no = src.no
		}
		if src.header != nil {
			a.header = src.header.Copy()
		}
		if src.body != "" {
			a.body = src.body
		}
		for _, c := range src.Decoded() {
			a.Add(c)
		}
		return nil
	default:
		return errValidation("article: load: unsupported source type %T", source)
	}
}
