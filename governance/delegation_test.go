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

func TestDelegateVote(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "alice", 200000)
	te.mustRegister(t, "bob", 0)

	id, err := te.DelegateVote("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	d, err := te.GetDelegation(id)
	require.NoError(t, err)
	assert.Equal(t, governance.Identity("alice"), d.Delegator)
	assert.Equal(t, governance.Identity("bob"), d.Delegate)
	assert.True(t, d.Active)
	assert.Equal(t, uint64(13), d.WeightDelegated)
	assert.Equal(t, uint64(1000), d.DelegationTime)

	p, err := te.GetVoterProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, governance.Identity("bob"), p.Delegate)
	assert.Equal(t, uint64(1), te.State().DelegateCounter)

	entry, err := te.GetAuditEntry(2)
	require.NoError(t, err)
	assert.Equal(t, governance.AuditCategoryDelegation, entry.Category)
	assert.Equal(t, "DelegateVote", entry.Action)
}

func TestDelegationSnapshotIsNotLive(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "alice", 0)
	te.mustRegister(t, "bob", 0)
	id, err := te.DelegateVote("alice", "bob")
	require.NoError(t, err)
	_, err = te.UpdateReputation(testOwner, "alice", 100)
	require.NoError(t, err)
	d, err := te.GetDelegation(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), d.WeightDelegated)
}

func TestDelegateVoteErrors(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "alice", 0)
	te.mustRegister(t, "bob", 0)
	te.mustRegister(t, "carol", 0)
	_, err := te.DelegateVote("alice", "bob")
	require.NoError(t, err)

	testDefs := []struct {
		name      string
		delegator governance.Identity
		delegate  governance.Identity
		err       error
	}{
		{name: "unregistered delegator", delegator: "mallory", delegate: "bob", err: governance.ErrUnauthorized},
		{name: "empty delegator", delegator: "", delegate: "bob", err: governance.ErrUnauthorized},
		{name: "unregistered delegate", delegator: "carol", delegate: "nobody", err: governance.ErrDelegationFailed},
		{name: "self", delegator: "carol", delegate: "carol", err: governance.ErrDelegationFailed},
		{name: "already delegating", delegator: "alice", delegate: "carol", err: governance.ErrDelegationFailed},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := te.DelegateVote(testDef.delegator, testDef.delegate)
			require.ErrorIs(t, err, testDef.err)
		})
	}
	assert.Equal(t, uint64(1), te.State().DelegateCounter)
}

func TestDelegateVoteWhilePaused(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "alice", 0)
	te.mustRegister(t, "bob", 0)
	require.NoError(t, te.PauseVoting(testContact))
	_, err := te.DelegateVote("alice", "bob")
	require.ErrorIs(t, err, governance.ErrVotingPaused)
	// Registration is checked before the pause flag
	_, err = te.DelegateVote("mallory", "bob")
	require.ErrorIs(t, err, governance.ErrUnauthorized)
}

func TestRevokeDelegation(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "alice", 0)
	te.mustRegister(t, "bob", 0)
	te.mustRegister(t, "carol", 0)
	id, err := te.DelegateVote("alice", "bob")
	require.NoError(t, err)

	require.ErrorIs(t, te.RevokeDelegation("bob", id), governance.ErrUnauthorized)
	require.ErrorIs(t, te.RevokeDelegation("alice", 99), governance.ErrDelegationFailed)

	te.clock.Advance(1, 5)
	require.NoError(t, te.RevokeDelegation("alice", id))
	d, err := te.GetDelegation(id)
	require.NoError(t, err)
	assert.False(t, d.Active)
	assert.Equal(t, uint64(1005), d.RevokedTime)
	p, err := te.GetVoterProfile("alice")
	require.NoError(t, err)
	assert.Empty(t, p.Delegate)

	require.ErrorIs(t, te.RevokeDelegation("alice", id), governance.ErrDelegationFailed)

	// A fresh delegation gets a new id and the old record stays inactive
	id2, err := te.DelegateVote("alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, id+1, id2)
	d, err = te.GetDelegation(id)
	require.NoError(t, err)
	assert.False(t, d.Active)
}

func TestDelegatedWeightNotTallied(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "alice", 0)
	te.mustRegister(t, "bob", 0)
	te.mustCandidate(t, "Alice")
	_, err := te.DelegateVote("alice", "bob")
	require.NoError(t, err)

	require.NoError(t, te.StartVoting(testOwner, 100))
	require.NoError(t, te.CommitVote("bob", commitment.Hash("Alice", 1), 200))
	require.NoError(t, te.RevealAndCastVote("bob", "Alice", 1))
	c, err := te.GetCandidate("Alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), c.WeightedVoteCount)

	id, err := te.CreateProposal("bob", "p", "", 10, 0)
	require.NoError(t, err)
	require.NoError(t, te.VoteOnProposal("bob", id, governance.VoteTypeYes))
	prop, err := te.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), prop.YesVotes)

	// The delegator keeps the ability to vote directly
	require.NoError(t, te.VoteOnProposal("alice", id, governance.VoteTypeNo))
	rec, err := te.GetVotingRecord("bob")
	require.NoError(t, err)
	assert.Empty(t, rec.DelegatedBy)
}
