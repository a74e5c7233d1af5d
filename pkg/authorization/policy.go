// Package authorization decides whether a session may read a given
// documentation path, based on a declarative access policy keyed on GitHub
// organization and team membership.
package authorization

import (
	"fmt"
	"regexp"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
)

// Verdict is the outcome of an authorization decision.
type Verdict int

const (
	// Unauthenticated means no membership snapshot is attached to the
	// request and the user must log in first.
	Unauthenticated Verdict = iota
	// Unauthorized means the user is logged in but none of the groups
	// authorized for the path match their memberships.
	Unauthorized
	// Authorized means at least one authorized group matched.
	Authorized
)

func (v Verdict) String() string {
	switch v {
	case Unauthenticated:
		return "unauthenticated"
	case Unauthorized:
		return "unauthorized"
	case Authorized:
		return "authorized"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Group names a GitHub organization, or a single team within one. An
// organization group is satisfied by organization membership alone; a team
// group only by membership of that exact team.
type Group struct {
	Org  string `json:"org"`
	Team string `json:"team,omitempty"`
}

// PathRule is the file representation of a single path rule.
type PathRule struct {
	Pattern    string  `json:"pattern"`
	Authorized []Group `json:"authorized"`
}

// PolicyFile is the file representation of the access policy.
type PolicyFile struct {
	Default []Group    `json:"default"`
	Paths   []PathRule `json:"paths"`
}

// rule is a PathRule with its pattern compiled, anchored at the start of
// the path the way the policy file documents it.
type rule struct {
	pattern    *regexp.Regexp
	authorized []Group
}

// Policy is the compiled, immutable access policy. It is loaded once at
// startup and shared read only across all requests.
type Policy struct {
	defaultGroups []Group
	rules         []rule

	relevantOrgs  map[string]struct{}
	relevantTeams map[sessions.TeamMembership]struct{}
}

// LoadPolicy reads and compiles the access policy file at the given path.
// Malformed patterns are an error here, not at request time.
func LoadPolicy(path string) (*Policy, error) {
	file := &PolicyFile{}
	if err := options.LoadYAML(path, file); err != nil {
		return nil, fmt.Errorf("could not load access policy: %w", err)
	}
	return NewPolicy(file)
}

// NewPolicy compiles a PolicyFile into a Policy.
func NewPolicy(file *PolicyFile) (*Policy, error) {
	p := &Policy{
		defaultGroups: file.Default,
		relevantOrgs:  map[string]struct{}{},
		relevantTeams: map[sessions.TeamMembership]struct{}{},
	}
	p.addRelevant(file.Default)

	for i, pr := range file.Paths {
		if pr.Pattern == "" {
			return nil, fmt.Errorf("path rule %d has an empty pattern", i)
		}
		// Match at the start of the path only, later rules handle the rest.
		re, err := regexp.Compile("^(?:" + pr.Pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("path rule %d pattern %q: %w", i, pr.Pattern, err)
		}
		p.rules = append(p.rules, rule{pattern: re, authorized: pr.Authorized})
		p.addRelevant(pr.Authorized)
	}

	return p, nil
}

func (p *Policy) addRelevant(groups []Group) {
	for _, g := range groups {
		p.relevantOrgs[g.Org] = struct{}{}
		if g.Team != "" {
			p.relevantTeams[sessions.TeamMembership{Org: g.Org, Team: g.Team}] = struct{}{}
		}
	}
}

// RelevantOrgs returns the set of organizations named anywhere in the
// policy. The OAuth callback uses it to bound membership lookups.
func (p *Policy) RelevantOrgs() map[string]struct{} {
	return p.relevantOrgs
}

// RelevantTeams returns the set of (org, team) pairs named anywhere in the
// policy.
func (p *Policy) RelevantTeams() map[sessions.TeamMembership]struct{} {
	return p.relevantTeams
}

// Decide returns the verdict for a request path given the session state.
// The first rule whose pattern matches the path decides the outcome; there
// is no fallthrough to later rules or to the default groups, even when the
// matching rule denies. Paths matching no rule fall back to the default
// groups.
func (p *Policy) Decide(path string, ss *sessions.SessionState) Verdict {
	if ss == nil || ss.Memberships == nil {
		return Unauthenticated
	}

	for _, r := range p.rules {
		if r.pattern.MatchString(path) {
			return authorize(r.authorized, ss.Memberships)
		}
	}
	return authorize(p.defaultGroups, ss.Memberships)
}

// authorize reports whether any of the groups is satisfied by the
// membership snapshot. An empty group list denies.
func authorize(groups []Group, m *sessions.Memberships) Verdict {
	for _, g := range groups {
		if g.Team == "" {
			if m.HasOrg(g.Org) {
				return Authorized
			}
			continue
		}
		if m.HasTeam(g.Org, g.Team) {
			return Authorized
		}
	}
	return Unauthorized
}
