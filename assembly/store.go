// Package assembly tracks in-progress SegmentedPost downloads so a
// crashed/retried assembly can resume instead of re-decoding already
// reconciled parts, the same bookkeeping role session.driver.Storage plays
// for server-side sessions, keyed here by a SegmentedPost's gid instead of
// a session ID.
package assembly

import (
	"context"
	"fmt"

	"github.com/sebastian404/newsreap/article"
	"github.com/sebastian404/newsreap/internal/trace"
)

const pkgName = "github.com/sebastian404/newsreap/assembly"

var (
	latencyMeasure = trace.LatencyMeasure(pkgName)

	// OpenCensusViews are the predefined count/latency views for this
	// package, in the same shape every package in this module exposes.
	OpenCensusViews = trace.Views(pkgName, latencyMeasure)
)

// Tracer is exposed so a Store implementation outside this module can
// start/end spans using the same provider-tagged shape as every other
// package here.
var Tracer = &trace.Tracer{Package: pkgName, Provider: "assembly", LatencyMeasure: latencyMeasure}

// State is the persisted progress of one SegmentedPost's assembly: which
// part numbers have already been fetched and CRC-reconciled, so a resumed
// download skips them.
type State struct {
	GID          string
	Filename     string
	TotalParts   int
	FetchedParts map[int]*article.Article
}

// Clone returns a deep-enough copy of s for a Store to hold independently
// of the caller's own State value.
func (s *State) Clone() *State {
	cp := &State{GID: s.GID, Filename: s.Filename, TotalParts: s.TotalParts}
	cp.FetchedParts = make(map[int]*article.Article, len(s.FetchedParts))
	for k, v := range s.FetchedParts {
		cp.FetchedParts[k] = v
	}
	return cp
}

// Store persists assembly State for in-progress SegmentedPost downloads.
// It mirrors session/driver.Storage's Get/Insert/Replace/Delete shape,
// keyed by gid rather than session ID.
type Store interface {
	// Get the State for the given gid. Returns nil, nil if it does not
	// exist rather than returning an error.
	Get(ctx context.Context, gid string) (*State, error)
	// Insert a new State. Returns AlreadyExists if a State with the same
	// gid is already present. Only called after a SegmentedPost's gid has
	// been computed from its first part.
	Insert(ctx context.Context, s *State) error
	// Replace the State for gid with s. Returns DoesNotExist if there is
	// no State with that gid yet.
	Replace(ctx context.Context, s *State) error
	// Delete the State for gid. Does nothing if it is not present, the
	// same no-op-on-miss contract session storage uses.
	Delete(ctx context.Context, gid string) error
}

// AlreadyExists is returned by Insert when a State with the same gid is
// already present.
type AlreadyExists struct{ GID string }

func (e AlreadyExists) Error() string {
	return fmt.Sprintf("assembly: a State already exists for gid %s", e.GID)
}

// DoesNotExist is returned by Replace when there is no State with the
// given gid.
type DoesNotExist struct{ GID string }

func (e DoesNotExist) Error() string {
	return fmt.Sprintf("assembly: no State exists for gid %s", e.GID)
}
