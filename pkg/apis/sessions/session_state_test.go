package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAndDecodeSessionState(t *testing.T) {
	created := time.Now().Truncate(time.Second)
	ss := &SessionState{
		CreatedAt:   &created,
		AccessToken: "gho_testtoken",
		User:        "someuser",
		Memberships: &Memberships{
			Orgs: []string{"jsickcodes"},
			Teams: []TeamMembership{
				{Org: "jsickcodes", Team: "Red Team"},
			},
		},
	}

	for _, compress := range []bool{true, false} {
		encoded, err := ss.EncodeSessionState(compress)
		require.NoError(t, err)

		decoded, err := DecodeSessionState(encoded, compress)
		require.NoError(t, err)

		assert.Equal(t, ss.AccessToken, decoded.AccessToken)
		assert.Equal(t, ss.User, decoded.User)
		assert.Equal(t, ss.Memberships, decoded.Memberships)
		require.NotNil(t, decoded.CreatedAt)
		assert.WithinDuration(t, created, *decoded.CreatedAt, time.Second)
	}
}

func TestDecodeSessionStateWithoutMemberships(t *testing.T) {
	ss := &SessionState{AccessToken: "gho_testtoken"}

	encoded, err := ss.EncodeSessionState(true)
	require.NoError(t, err)

	decoded, err := DecodeSessionState(encoded, true)
	require.NoError(t, err)
	// The snapshot stays nil, marking the session unauthenticated
	assert.Nil(t, decoded.Memberships)
}

func TestDecodeSessionStateGarbage(t *testing.T) {
	_, err := DecodeSessionState([]byte("not a session"), true)
	assert.Error(t, err)

	_, err = DecodeSessionState([]byte("not a session"), false)
	assert.Error(t, err)
}

func TestMembershipsHasOrg(t *testing.T) {
	m := &Memberships{Orgs: []string{"jsickcodes"}}

	assert.True(t, m.HasOrg("jsickcodes"))
	assert.False(t, m.HasOrg("othercorp"))

	var nilM *Memberships
	assert.False(t, nilM.HasOrg("jsickcodes"))
}

func TestMembershipsHasTeam(t *testing.T) {
	m := &Memberships{
		Orgs:  []string{"jsickcodes"},
		Teams: []TeamMembership{{Org: "jsickcodes", Team: "Red Team"}},
	}

	assert.True(t, m.HasTeam("jsickcodes", "Red Team"))
	// Org membership alone never satisfies a team check
	assert.False(t, m.HasTeam("jsickcodes", "Blue Team"))
	assert.False(t, m.HasTeam("othercorp", "Red Team"))

	var nilM *Memberships
	assert.False(t, nilM.HasTeam("jsickcodes", "Red Team"))
}

func TestSessionStateAge(t *testing.T) {
	ss := &SessionState{}
	assert.Equal(t, time.Duration(0), ss.Age())

	created := time.Now().Add(-time.Hour)
	ss.CreatedAt = &created
	assert.InDelta(t, time.Hour, ss.Age(), float64(2*time.Second))
}

func TestSessionStateString(t *testing.T) {
	ss := &SessionState{
		AccessToken: "gho_testtoken",
		User:        "someuser",
		Memberships: &Memberships{Orgs: []string{"jsickcodes"}},
	}

	s := ss.String()
	assert.Contains(t, s, "user:someuser")
	assert.Contains(t, s, "token:true")
	assert.Contains(t, s, "orgs:1")
	assert.NotContains(t, s, "gho_testtoken")
}
