// Package trace provides the shared OpenCensus instrumentation used by every
// package in this module: a per-package latency measure plus a small Tracer
// helper that starts/ends a span and records the call's outcome.
package trace

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
)

// ProviderKey is the tag key used to group metrics by provider, the
// Tracer's Provider name (e.g. "content", "decoder", "encoder").
var ProviderKey = tag.MustNewKey("provider")

// MethodKey is the tag key used to group metrics by method name.
var MethodKey = tag.MustNewKey("method")

// StatusKey is the tag key used to group metrics by outcome ("ok"/"error").
var StatusKey = tag.MustNewKey("status")

// LatencyMeasure returns a millisecond latency measure scoped to pkgName.
func LatencyMeasure(pkgName string) *stats.Float64Measure {
	return stats.Float64(pkgName+"/latency", "Latency of calls", stats.UnitMilliseconds)
}

// Views returns the default count/latency distribution views for a
// package's latency measure, plus any caller-supplied additional views.
func Views(pkgName string, latencyMeasure *stats.Float64Measure, extra ...*view.View) []*view.View {
	views := []*view.View{
		{
			Name:        pkgName + "/completed_calls",
			Measure:     latencyMeasure,
			Description: "Count of calls by method and status.",
			TagKeys:     []tag.Key{MethodKey, StatusKey, ProviderKey},
			Aggregation: view.Count(),
		},
		{
			Name:        pkgName + "/latency",
			Measure:     latencyMeasure,
			Description: "Distribution of calls latency, by method and status.",
			TagKeys:     []tag.Key{MethodKey, StatusKey, ProviderKey},
			Aggregation: view.Distribution(0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
		},
	}
	return append(views, extra...)
}

// Tracer wraps a package name, provider name and latency measure so that
// callers can do:
//
//	ctx = t.Start(ctx, "Method")
//	defer func() { t.End(ctx, err) }()
type Tracer struct {
	Package        string
	Provider       string
	LatencyMeasure *stats.Float64Measure
}

type tracerKey struct{}

type span struct {
	method string
	start  time.Time
}

// Start begins a new span for method and returns a context carrying it.
func (t *Tracer) Start(ctx context.Context, method string) context.Context {
	ctx, _ = trace.StartSpan(ctx, t.Package+"/"+method)
	return context.WithValue(ctx, tracerKey{}, &span{method: method, start: time.Now()})
}

// End finishes the span started by Start, recording latency and status.
func (t *Tracer) End(ctx context.Context, err error) {
	if s, span := trace.FromContext(ctx), ctx.Value(tracerKey{}); s != nil || span != nil {
		if s != nil {
			if err != nil {
				s.SetStatus(trace.Status{Code: int32(trace.StatusCodeUnknown), Message: err.Error()})
			}
			s.End()
		}
	}
	sp, _ := ctx.Value(tracerKey{}).(*span)
	method := ""
	if sp != nil {
		method = sp.method
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	latency := float64(0)
	if sp != nil {
		latency = float64(time.Since(sp.start)) / float64(time.Millisecond)
	}
	_ = stats.RecordWithTags(context.Background(),
		[]tag.Mutator{
			tag.Upsert(MethodKey, method),
			tag.Upsert(StatusKey, status),
			tag.Upsert(ProviderKey, t.Provider),
		},
		t.LatencyMeasure.M(latency))
}

// ProviderName returns a best-effort name for a backing provider value,
// used the same way blob.Bucket/mailer.Transport derive a metrics tag from
// their underlying driver implementation.
func ProviderName(v interface{}) string {
	if v == nil {
		return "unknown"
	}
	type named interface{ ProviderName() string }
	if n, ok := v.(named); ok {
		return n.ProviderName()
	}
	return "unknown"
}
