package sessions

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v4"
)

// TeamMembership identifies a single GitHub team as an (organization, team
// slug) pair.
type TeamMembership struct {
	Org  string `msgpack:"o"`
	Team string `msgpack:"t"`
}

// Memberships is the snapshot of a user's GitHub organization and team
// memberships taken at OAuth callback time. Only organizations and teams
// that appear in the access policy are stored, which keeps the session
// cookie small.
type Memberships struct {
	Orgs  []string         `msgpack:"o,omitempty"`
	Teams []TeamMembership `msgpack:"t,omitempty"`
}

// HasOrg checks whether the snapshot contains the given organization.
func (m *Memberships) HasOrg(org string) bool {
	if m == nil {
		return false
	}
	for _, o := range m.Orgs {
		if o == org {
			return true
		}
	}
	return false
}

// HasTeam checks whether the snapshot contains the exact (organization,
// team) pair. Organization membership alone never satisfies a team check.
func (m *Memberships) HasTeam(org, team string) bool {
	if m == nil {
		return false
	}
	for _, t := range m.Teams {
		if t.Org == org && t.Team == team {
			return true
		}
	}
	return false
}

// SessionState is used to store information about the currently
// authenticated user session
type SessionState struct {
	CreatedAt *time.Time `msgpack:"ca,omitempty"`

	AccessToken string `msgpack:"at,omitempty"`
	User        string `msgpack:"u,omitempty"`

	// Memberships is nil until the OAuth callback has fetched and filtered
	// the user's memberships. A session without a snapshot is treated as
	// unauthenticated.
	Memberships *Memberships `msgpack:"m,omitempty"`
}

// CreatedAtNow sets a SessionState's CreatedAt to now
func (s *SessionState) CreatedAtNow() {
	now := time.Now()
	s.CreatedAt = &now
}

// Age returns the age of a session
func (s *SessionState) Age() time.Duration {
	if s.CreatedAt != nil && !s.CreatedAt.IsZero() {
		return time.Now().Truncate(time.Second).Sub(*s.CreatedAt)
	}
	return 0
}

// String constructs a summary of the session state
func (s *SessionState) String() string {
	o := fmt.Sprintf("Session{user:%s", s.User)
	if s.AccessToken != "" {
		o += " token:true"
	}
	if s.CreatedAt != nil && !s.CreatedAt.IsZero() {
		o += fmt.Sprintf(" created:%s", s.CreatedAt)
	}
	if s.Memberships != nil {
		o += fmt.Sprintf(" orgs:%d teams:%d", len(s.Memberships.Orgs), len(s.Memberships.Teams))
	}
	return o + "}"
}

// EncodeSessionState returns an encoded version of the session state, with
// optional compression.
func (s *SessionState) EncodeSessionState(compress bool) ([]byte, error) {
	packed, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error marshalling session state to msgpack: %w", err)
	}

	if !compress {
		return packed, nil
	}

	return lz4Compress(packed)
}

// DecodeSessionState decodes a msgpack encoded SessionState
func DecodeSessionState(data []byte, compressed bool) (*SessionState, error) {
	packed := data
	if compressed {
		var err error
		packed, err = lz4Decompress(data)
		if err != nil {
			return nil, err
		}
	}

	var ss SessionState
	err := msgpack.Unmarshal(packed, &ss)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling data to session state: %w", err)
	}

	return &ss, nil
}

// lz4Compress compresses with LZ4
//
// The Compress:Decompress ratio is 1:Many. LZ4 gives fastest decompress speeds
// at the expense of greater compression compared to other compression
// algorithms.
func lz4Compress(payload []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := lz4.NewWriter(nil)
	err := zw.Apply(
		lz4.BlockSizeOption(lz4.Block64Kb),
		lz4.CompressionLevelOption(lz4.Fast),
	)
	if err != nil {
		return nil, fmt.Errorf("error preparing lz4 writer: %w", err)
	}
	zw.Reset(buf)

	reader := bytes.NewReader(payload)
	_, err = io.Copy(zw, reader)
	if err != nil {
		return nil, fmt.Errorf("error copying lz4 stream to buffer: %w", err)
	}
	err = zw.Close()
	if err != nil {
		return nil, fmt.Errorf("error closing lz4 writer: %w", err)
	}

	compressed, err := io.ReadAll(buf)
	if err != nil {
		return nil, fmt.Errorf("error reading lz4 buffer: %w", err)
	}

	return compressed, nil
}

// lz4Decompress decompresses with LZ4
func lz4Decompress(compressed []byte) ([]byte, error) {
	reader := bytes.NewReader(compressed)
	buf := new(bytes.Buffer)
	zr := lz4.NewReader(nil)
	zr.Reset(reader)
	_, err := io.Copy(buf, zr)
	if err != nil {
		return nil, fmt.Errorf("error copying lz4 stream to buffer: %w", err)
	}

	payload, err := io.ReadAll(buf)
	if err != nil {
		return nil, fmt.Errorf("error reading lz4 buffer: %w", err)
	}

	return payload, nil
}
