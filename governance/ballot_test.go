// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package governance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/tally/commitment"
	"github.com/blinklabs-io/tally/governance"
)

// newElection returns an engine with an open election and candidates
// Alice, Bob and Retired (inactive)
func newElection(t *testing.T) *testEngine {
	t.Helper()
	te := newTestEngine(t)
	te.mustCandidate(t, "Alice")
	te.mustCandidate(t, "Bob")
	te.mustCandidate(t, "Retired")
	require.NoError(t, te.DeactivateCandidate(testOwner, "Retired"))
	require.NoError(t, te.StartVoting(testOwner, 1000))
	return te
}

func TestCommitRevealScenario(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 200000)
	w, err := te.VoteWeight("voter")
	require.NoError(t, err)
	assert.Equal(t, uint64(13), w)

	hash := commitment.Hash("Alice", 42)
	deadline := te.clock.BlockHeight() + 10
	require.NoError(t, te.CommitVote("voter", hash, deadline))

	c, err := te.GetCommitment("voter")
	require.NoError(t, err)
	assert.Equal(t, hash, c.CommitmentHash)
	assert.Equal(t, deadline, c.RevealDeadline)
	assert.False(t, c.Revealed)
	assert.Equal(t, uint64(1), c.Round)

	// Wrong nonce does not open the commitment
	require.ErrorIs(
		t,
		te.RevealAndCastVote("voter", "Alice", 7),
		governance.ErrUnauthorized,
	)

	te.clock.Advance(5, 5)
	require.NoError(t, te.RevealAndCastVote("voter", "Alice", 42))

	cand, err := te.GetCandidate("Alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cand.VoteCount)
	assert.Equal(t, uint64(13), cand.WeightedVoteCount)

	rec, err := te.GetVotingRecord("voter")
	require.NoError(t, err)
	assert.Equal(t, "Alice", rec.Candidate)
	assert.Equal(t, uint64(13), rec.VoteWeight)
	assert.Equal(t, uint64(105), rec.BlockHeight)
	assert.Equal(t, hash, rec.VoteHash)
	assert.Equal(t, commitment.HashBytes([]byte("voter")), rec.IdentityHash)

	p, err := te.GetVoterProfile("voter")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.VotesCast)
	assert.Equal(t, uint64(13), p.VoteWeight)

	c, err = te.GetCommitment("voter")
	require.NoError(t, err)
	assert.True(t, c.Revealed)

	stats := te.GetVotingStats()
	assert.Equal(t, uint64(1), stats.TotalVotes)
	assert.Equal(t, uint64(13), stats.TotalWeightedVotes)

	entries := te.AuditEntries(0, 0)
	last := entries[len(entries)-1]
	assert.Equal(t, governance.AuditCategoryVoting, last.Category)
	assert.Equal(t, "RevealAndCastVote", last.Action)
}

func TestRevealTwice(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Bob", 9), 200))
	require.NoError(t, te.RevealAndCastVote("voter", "Bob", 9))
	before := te.AuditCount()
	require.ErrorIs(
		t,
		te.RevealAndCastVote("voter", "Bob", 9),
		governance.ErrAlreadyVoted,
	)
	assert.Equal(t, before, te.AuditCount())
	cand, err := te.GetCandidate("Bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cand.VoteCount)

	// A revealed ballot cannot be replaced within the same round
	require.ErrorIs(
		t,
		te.CommitVote("voter", commitment.Hash("Alice", 1), 200),
		governance.ErrAlreadyVoted,
	)
}

func TestRevealMismatchPrecedesCandidateChecks(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Alice", 42), 200))
	for _, candidate := range []string{"Alice", "Bob", "Retired", "Unknown", ""} {
		require.ErrorIs(
			t,
			te.RevealAndCastVote("voter", candidate, 7),
			governance.ErrUnauthorized,
			"candidate %q",
			candidate,
		)
	}
}

func TestRevealInvalidCandidate(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "a", 0)
	te.mustRegister(t, "b", 0)
	require.NoError(t, te.CommitVote("a", commitment.Hash("Unknown", 1), 200))
	require.ErrorIs(t, te.RevealAndCastVote("a", "Unknown", 1), governance.ErrInvalidCandidate)
	require.NoError(t, te.CommitVote("b", commitment.Hash("Retired", 1), 200))
	require.ErrorIs(t, te.RevealAndCastVote("b", "Retired", 1), governance.ErrInvalidCandidate)
	c, err := te.GetCommitment("a")
	require.NoError(t, err)
	assert.False(t, c.Revealed)
}

func TestRevealDeadline(t *testing.T) {
	testDefs := []struct {
		name    string
		advance uint64
		err     error
	}{
		{name: "before deadline", advance: 9},
		{name: "at deadline", advance: 10},
		{name: "after deadline", advance: 11, err: governance.ErrVotingClosed},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			te := newElection(t)
			te.mustRegister(t, "voter", 0)
			deadline := te.clock.BlockHeight() + 10
			require.NoError(t, te.CommitVote("voter", commitment.Hash("Alice", 42), deadline))
			te.clock.Advance(testDef.advance, 1)
			err := te.RevealAndCastVote("voter", "Alice", 42)
			if testDef.err != nil {
				require.ErrorIs(t, err, testDef.err)
				// A missed deadline forfeits the ballot
				assert.Equal(t, uint64(0), te.GetVotingStats().TotalVotes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(1), te.GetVotingStats().TotalVotes)
		})
	}
}

func TestCommitVoteErrors(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "voter", 0)
	hash := commitment.Hash("Alice", 1)

	require.ErrorIs(t, te.CommitVote("nobody", hash, 200), governance.ErrUnauthorized)
	// No election open yet
	require.ErrorIs(t, te.CommitVote("voter", hash, 200), governance.ErrVotingClosed)

	require.NoError(t, te.StartVoting(testOwner, 10))
	require.ErrorIs(t, te.CommitVote("voter", commitment.Digest{}, 200), governance.ErrUnauthorized)
	require.ErrorIs(t, te.CommitVote("voter", hash, te.clock.BlockHeight()-1), governance.ErrVotingClosed)
	require.NoError(t, te.CommitVote("voter", hash, te.clock.BlockHeight()))

	// Window elapsed without EndVoting
	te.clock.Advance(0, 11)
	require.ErrorIs(t, te.CommitVote("voter", hash, 500), governance.ErrVotingClosed)
}

func TestCommitOverwritesUnrevealed(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Alice", 1), 200))
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Bob", 2), 300))
	require.ErrorIs(t, te.RevealAndCastVote("voter", "Alice", 1), governance.ErrUnauthorized)
	require.NoError(t, te.RevealAndCastVote("voter", "Bob", 2))
	c, err := te.GetCommitment("voter")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), c.RevealDeadline)
}

func TestRevealWithoutCommitment(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.ErrorIs(t, te.RevealAndCastVote("voter", "Alice", 1), governance.ErrUnauthorized)
	require.ErrorIs(t, te.RevealAndCastVote("nobody", "Alice", 1), governance.ErrUnauthorized)
}

func TestTotalWeightedVotesSum(t *testing.T) {
	te := newElection(t)
	voters := map[governance.Identity]uint64{
		"v1": 0,
		"v2": 100000,
		"v3": 350000,
		"v4": 1234567,
	}
	var expected uint64
	var n uint64
	for voter, stake := range voters {
		te.mustRegister(t, voter, stake)
		nonce := stake + 1
		require.NoError(t, te.CommitVote(voter, commitment.Hash("Alice", nonce), 200))
		require.NoError(t, te.RevealAndCastVote(voter, "Alice", nonce))
		rec, err := te.GetVotingRecord(voter)
		require.NoError(t, err)
		expected += rec.VoteWeight
		n++
	}
	stats := te.GetVotingStats()
	assert.Equal(t, n, stats.TotalVotes)
	assert.Equal(t, expected, stats.TotalWeightedVotes)
	cand, err := te.GetCandidate("Alice")
	require.NoError(t, err)
	assert.Equal(t, expected, cand.WeightedVoteCount)
	// 11 + 12 + 14 + 23
	assert.Equal(t, uint64(60), expected)
}

func TestNewRoundAllowsNewBallot(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Alice", 1), 500))
	require.NoError(t, te.RevealAndCastVote("voter", "Alice", 1))
	require.NoError(t, te.EndVoting(testOwner))
	require.ErrorIs(t, te.EndVoting(testOwner), governance.ErrVotingClosed)

	require.NoError(t, te.StartVoting(testOwner, 1000))
	assert.Equal(t, uint64(2), te.State().ElectionRound)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Bob", 2), 500))
	require.NoError(t, te.RevealAndCastVote("voter", "Bob", 2))

	rec, err := te.GetVotingRecord("voter")
	require.NoError(t, err)
	assert.Equal(t, "Bob", rec.Candidate)
	assert.Equal(t, uint64(2), rec.Round)
	p, err := te.GetVoterProfile("voter")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.VotesCast)
}

func TestStaleCommitmentCannotBeRevealed(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Alice", 1), 500))
	require.NoError(t, te.EndVoting(testOwner))
	require.NoError(t, te.StartVoting(testOwner, 1000))
	require.ErrorIs(t, te.RevealAndCastVote("voter", "Alice", 1), governance.ErrVotingClosed)
}

func TestRevealAfterEndVotingBeforeDeadline(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	require.NoError(t, te.CommitVote("voter", commitment.Hash("Alice", 1), 500))
	require.NoError(t, te.EndVoting(testOwner))
	require.NoError(t, te.RevealAndCastVote("voter", "Alice", 1))
}

func TestStartVotingErrors(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "voter", 0)
	require.ErrorIs(t, te.StartVoting("voter", 10), governance.ErrUnauthorized)
	require.ErrorIs(t, te.StartVoting(testOwner, 0), governance.ErrVotingClosed)
	require.NoError(t, te.StartVoting(testOwner, 10))
	require.ErrorIs(t, te.StartVoting(testOwner, 10), governance.ErrElectionActive)
	require.ErrorIs(t, te.EndVoting("voter"), governance.ErrUnauthorized)
}

func TestCandidateRegistration(t *testing.T) {
	te := newTestEngine(t)
	require.NoError(t, te.RegisterCandidate(testOwner, "Alice", "party=blue"))
	require.ErrorIs(t, te.RegisterCandidate(testOwner, "Alice", ""), governance.ErrInvalidCandidate)
	require.ErrorIs(t, te.RegisterCandidate(testOwner, " ", ""), governance.ErrInvalidCandidate)
	require.ErrorIs(t, te.RegisterCandidate("alice", "Bob", ""), governance.ErrUnauthorized)
	require.ErrorIs(t, te.DeactivateCandidate(testOwner, "Bob"), governance.ErrInvalidCandidate)
	require.NoError(t, te.RegisterCandidate(testOwner, "Bob", ""))

	c, err := te.GetCandidate("Alice")
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, "party=blue", c.Metadata)

	require.NoError(t, te.DeactivateCandidate(testOwner, "Alice"))
	require.ErrorIs(t, te.DeactivateCandidate(testOwner, "Alice"), governance.ErrInvalidCandidate)

	list := te.ListCandidates()
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name)
	assert.False(t, list[0].IsActive)
	assert.Equal(t, "Bob", list[1].Name)

	_, err = te.GetCandidate("Carol")
	require.ErrorIs(t, err, governance.ErrNotFound)
}
