// Package post defines the contract an external NNTP connection pool must
// satisfy to accept an Article for posting. The NNTP wire protocol itself
// is out of scope for this module; post only specifies the boundary, the
// same way mailer.Transport specifies the boundary to an SMTP connection
// without implementing SMTP itself.
package post

import (
	"context"

	"github.com/sebastian404/newsreap/article"
	"github.com/sebastian404/newsreap/internal/trace"
	"github.com/sebastian404/newsreap/verr"
)

const pkgName = "github.com/sebastian404/newsreap/post"

var (
	latencyMeasure = trace.LatencyMeasure(pkgName)

	// OpenCensusViews are the predefined count/latency views for this
	// package, in the same shape every package in this module exposes.
	OpenCensusViews = trace.Views(pkgName, latencyMeasure)
)

// Tracer is exposed so a Transport implementation outside this module can
// start/end spans using the same provider-tagged shape as every other
// package here.
var Tracer = &trace.Tracer{Package: pkgName, Provider: "post", LatencyMeasure: latencyMeasure}

// Transport provides functionality for posting an Article to Usenet. It
// plays the role mailer.Transport plays for SMTP: the facade package
// depends only on this interface, never on a concrete NNTP client.
type Transport interface {
	// Post streams article's post_iter output to the server and returns
	// once the server has acknowledged the article (or returns an error).
	Post(ctx context.Context, a *article.Article) error

	// Close closes the connection. Once Close is called, there will be no
	// method except ErrorCode calls to Transport able to succeed.
	Close() error

	// ErrorCode returns a code describing err, which was returned by one
	// of this Transport's other methods.
	ErrorCode(err error) verr.ErrorCode
}
