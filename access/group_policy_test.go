package access

import (
	"testing"

	"github.com/sebastian404/newsreap/group"
)

func TestDenyByDefaultWithNoStatements(t *testing.T) {
	p := New()
	if p.Authorize("alice", "alt.binaries.test") {
		t.Fatal("expected deny when no statements are configured")
	}
}

func TestAllowStatementMatchingPosterAndGroup(t *testing.T) {
	p := New(Statement{
		Poster: "alice",
		Groups: group.NewSet("alt.binaries.test"),
		Effect: Allow,
	})
	if !p.Authorize("alice", "ALT.Binaries.Test") {
		t.Fatal("expected allow for matching poster/group (normalization-insensitive)")
	}
	if p.Authorize("bob", "alt.binaries.test") {
		t.Fatal("expected deny for non-matching poster")
	}
}

func TestWildcardPosterMatchesAnyone(t *testing.T) {
	p := New(Statement{Poster: "*", Groups: group.NewSet("alt.test"), Effect: Allow})
	if !p.Authorize("anyone", "alt.test") {
		t.Fatal("expected wildcard poster to match")
	}
}

func TestEmptyGroupsMatchesAnyGroup(t *testing.T) {
	p := New(Statement{Poster: "alice", Effect: Allow})
	if !p.Authorize("alice", "any.group.at.all") {
		t.Fatal("expected empty Groups to match any group")
	}
}

func TestFirstMatchingStatementWins(t *testing.T) {
	p := New(
		Statement{Poster: "alice", Groups: group.NewSet("alt.test"), Effect: Deny},
		Statement{Poster: "alice", Effect: Allow},
	)
	if p.Authorize("alice", "alt.test") {
		t.Fatal("expected the first matching (deny) statement to win")
	}
}
