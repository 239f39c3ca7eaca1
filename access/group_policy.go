// Package access provides a thin allow/deny check of whether a poster may
// post into a given group set, adapted from authz/policy's Statement
// evaluation: deny by default, first matching statement wins. Full NNTP
// authentication is out of scope for this module; this exists so Article
// posting has an optional authorization seam without depending on any
// concrete auth provider.
package access

import "github.com/sebastian404/newsreap/group"

// Effect mirrors policy.Effect: a statement either allows or denies.
type Effect bool

const (
	// Deny statements reject a matching request.
	Deny Effect = false
	// Allow statements accept a matching request.
	Allow Effect = true
)

// Statement is one rule: if Poster matches (exact string, "*" means any)
// and the request's group is a member of Groups (or Groups is empty,
// meaning any group), Effect decides the outcome.
type Statement struct {
	Poster string
	Groups group.Set
	Effect Effect
}

func (s Statement) matches(poster, normalizedGroup string) bool {
	if s.Poster != "*" && s.Poster != poster {
		return false
	}
	if len(s.Groups) == 0 {
		return true
	}
	_, ok := s.Groups[normalizedGroup]
	return ok
}

// GroupPolicy is an ordered list of Statements evaluated the way
// policy.Statement.IsAllowed is evaluated: deny by default when there are
// no statements, otherwise the first matching statement's Effect wins.
type GroupPolicy struct {
	statements []Statement
}

// New returns a GroupPolicy with no statements (denies everything until
// statements are added).
func New(statements ...Statement) *GroupPolicy {
	return &GroupPolicy{statements: statements}
}

// Add appends a Statement, evaluated after any already present.
func (p *GroupPolicy) Add(s Statement) {
	p.statements = append(p.statements, s)
}

// Authorize reports whether poster may post into g (a raw, not-yet-
// normalized group name; normalization runs through group.Normalize the
// same as everywhere else in this module).
func (p *GroupPolicy) Authorize(poster, g string) bool {
	if len(p.statements) == 0 {
		return false
	}
	normalized := group.Normalize(g)
	for _, s := range p.statements {
		if s.matches(poster, normalized) {
			return bool(s.Effect)
		}
	}
	return false
}
