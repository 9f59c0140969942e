package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestNormalize_CaseInsensitive verifies every known request type resolves
// from any case mix to its canonical spelling.
func TestNormalize_CaseInsensitive(t *testing.T) {
	known := []RequestType{
		ReqCreateRoom, ReqJoinRoom, ReqSelectClass, ReqCreateTeam,
		ReqJoinTeam, ReqTeamReady, ReqMoveTeam, ReqBattleAction,
	}
	for _, want := range known {
		for _, raw := range []string{
			string(want),
			strings.ToLower(string(want)),
			strings.ToUpper(string(want)),
		} {
			got, ok := Normalize(raw)
			assert.True(t, ok, "raw %q", raw)
			assert.Equal(t, want, got)
		}
	}
}

// TestNormalize_Unknown verifies unrecognized type strings are rejected.
func TestNormalize_Unknown(t *testing.T) {
	for _, raw := range []string{"", "Shout", "Move", "createroomx"} {
		_, ok := Normalize(raw)
		assert.False(t, ok, "raw %q", raw)
	}
}

// TestNormalize_RandomCasePreservesIdentity verifies normalization is
// insensitive to arbitrary per-character case flips.
func TestNormalize_RandomCasePreservesIdentity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		want := rapid.SampledFrom([]RequestType{
			ReqCreateRoom, ReqJoinRoom, ReqSelectClass, ReqCreateTeam,
			ReqJoinTeam, ReqTeamReady, ReqMoveTeam, ReqBattleAction,
		}).Draw(rt, "type")

		raw := []byte(string(want))
		for i := range raw {
			if rapid.Bool().Draw(rt, "flip") {
				if raw[i] >= 'a' && raw[i] <= 'z' {
					raw[i] -= 'a' - 'A'
				} else if raw[i] >= 'A' && raw[i] <= 'Z' {
					raw[i] += 'a' - 'A'
				}
			}
		}

		got, ok := Normalize(string(raw))
		assert.True(t, ok)
		assert.Equal(t, want, got)
	})
}

// TestErrorf verifies failure responses carry the error type and message.
func TestErrorf(t *testing.T) {
	resp := Errorf("no such room")
	assert.Equal(t, RespError, resp.Type)
	assert.False(t, resp.Success)
	assert.Equal(t, "no such room", resp.Message)
}
