package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
)

func examplePolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(&PolicyFile{
		Default: []Group{
			{Org: "jsickcodes"},
		},
		Paths: []PathRule{
			{
				Pattern: `\/a\/`,
				Authorized: []Group{
					{Org: "jsickcodes", Team: "Red Team"},
				},
			},
			{
				Pattern: `\/closed\/`,
			},
		},
	})
	require.NoError(t, err)
	return p
}

func session(orgs []string, teams []sessions.TeamMembership) *sessions.SessionState {
	return &sessions.SessionState{
		User:        "someuser",
		Memberships: &sessions.Memberships{Orgs: orgs, Teams: teams},
	}
}

func TestDecideUnauthenticated(t *testing.T) {
	p := examplePolicy(t)

	assert.Equal(t, Unauthenticated, p.Decide("/xyz", nil))
	// A session without a membership snapshot is not logged in yet
	assert.Equal(t, Unauthenticated, p.Decide("/xyz", &sessions.SessionState{AccessToken: "tok"}))
}

func TestDecideDefaultRule(t *testing.T) {
	p := examplePolicy(t)

	assert.Equal(t, Authorized, p.Decide("/xyz", session([]string{"jsickcodes"}, nil)))
	assert.Equal(t, Unauthorized, p.Decide("/xyz", session([]string{"jsickwrites"}, nil)))
	// An empty snapshot is authenticated but not authorized
	assert.Equal(t, Unauthorized, p.Decide("/xyz", session(nil, nil)))
}

func TestDecidePathRulePrecedence(t *testing.T) {
	p := examplePolicy(t)

	// Organization membership satisfies the default but not the /a/ team
	// rule; the matching rule decides with no fallthrough
	assert.Equal(t, Unauthorized, p.Decide("/a/index.html", session([]string{"jsickcodes"}, nil)))

	assert.Equal(t, Unauthorized, p.Decide("/a/index.html", session(
		[]string{"jsickcodes"},
		[]sessions.TeamMembership{{Org: "jsickcodes", Team: "Blue Team"}},
	)))

	assert.Equal(t, Authorized, p.Decide("/a/index.html", session(
		[]string{"jsickcodes"},
		[]sessions.TeamMembership{
			{Org: "jsickcodes", Team: "Red Team"},
			{Org: "jsickcodes", Team: "Blue Team"},
		},
	)))
}

func TestDecideEmptyAuthorizedListDenies(t *testing.T) {
	p := examplePolicy(t)

	// The default would allow this user, but the matching rule has no
	// authorized groups
	assert.Equal(t, Unauthorized, p.Decide("/closed/secret.html", session([]string{"jsickcodes"}, nil)))
}

func TestDecideAnchoredAtStart(t *testing.T) {
	p := examplePolicy(t)

	// The /a/ rule must not match in the middle of a path
	assert.Equal(t, Authorized, p.Decide("/b/a/index.html", session([]string{"jsickcodes"}, nil)))
}

func TestRelevantSets(t *testing.T) {
	p, err := NewPolicy(&PolicyFile{
		Default: []Group{{Org: "jsickcodes"}},
		Paths: []PathRule{
			{
				Pattern: `\/a\/`,
				Authorized: []Group{
					{Org: "jsickcodes", Team: "Red Team"},
					{Org: "jsickcodes", Team: "Blue Team"},
				},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{"jsickcodes": {}}, p.RelevantOrgs())
	assert.Equal(t, map[sessions.TeamMembership]struct{}{
		{Org: "jsickcodes", Team: "Red Team"}:  {},
		{Org: "jsickcodes", Team: "Blue Team"}: {},
	}, p.RelevantTeams())
}

func TestNewPolicyRejectsBadPattern(t *testing.T) {
	_, err := NewPolicy(&PolicyFile{
		Paths: []PathRule{{Pattern: `([`, Authorized: []Group{{Org: "x"}}}},
	})
	assert.Error(t, err)

	_, err = NewPolicy(&PolicyFile{
		Paths: []PathRule{{Pattern: "", Authorized: []Group{{Org: "x"}}}},
	})
	assert.Error(t, err)
}

func TestLoadPolicyFromYAML(t *testing.T) {
	path := writeTempYAML(t, `
default:
  - org: jsickcodes
paths:
  - pattern: '\/a\/'
    authorized:
      - org: jsickcodes
        team: Red Team
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, Authorized, p.Decide("/xyz", session([]string{"jsickcodes"}, nil)))
	assert.Equal(t, Unauthorized, p.Decide("/a/x", session([]string{"jsickcodes"}, nil)))
}

func TestLoadPolicyRejectsUnknownFields(t *testing.T) {
	path := writeTempYAML(t, `
default:
  - org: jsickcodes
unknown_key: true
`)
	_, err := LoadPolicy(path)
	assert.Error(t, err)
}
