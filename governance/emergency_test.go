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

func TestPauseBlocksCommit(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	hash := commitment.Hash("Alice", 42)

	require.NoError(t, te.PauseVoting(testOwner))
	before := te.AuditCount()
	require.ErrorIs(t, te.CommitVote("voter", hash, 200), governance.ErrVotingPaused)
	assert.Equal(t, before, te.AuditCount())

	require.NoError(t, te.ResumeVoting(testOwner))
	require.NoError(t, te.CommitVote("voter", hash, 200))
}

func TestEmergencyModeGatesEverything(t *testing.T) {
	te := newElection(t)
	te.mustRegister(t, "voter", 0)
	te.mustRegister(t, "other", 0)
	id, err := te.CreateProposal("voter", "t", "", 10, 0)
	require.NoError(t, err)

	require.NoError(t, te.ActivateEmergencyMode(testContact))
	state := te.State()
	assert.True(t, state.EmergencyMode)
	assert.True(t, state.VotingPaused)

	checks := map[string]error{
		"RegisterVoter":       te.RegisterVoter(testOwner, "new", 0),
		"SetMinStake":         te.SetMinStake(testOwner, 1),
		"UpdateStake":         te.UpdateStake(testOwner, "voter", 1),
		"RegisterCandidate":   te.RegisterCandidate(testOwner, "Carol", ""),
		"DeactivateCandidate": te.DeactivateCandidate(testOwner, "Alice"),
		"CommitVote":          te.CommitVote("voter", commitment.Hash("Alice", 1), 200),
		"RevealAndCastVote":   te.RevealAndCastVote("voter", "Alice", 1),
		"VoteOnProposal":      te.VoteOnProposal("other", id, governance.VoteTypeYes),
		"EndVoting":           te.EndVoting(testOwner),
	}
	_, checks["UpdateReputation"] = te.UpdateReputation(testOwner, "voter", 1)
	_, checks["DelegateVote"] = te.DelegateVote("voter", "other")
	_, checks["CreateProposal"] = te.CreateProposal("voter", "t", "", 10, 0)
	for name, err := range checks {
		assert.ErrorIs(t, err, governance.ErrEmergencyMode, name)
	}

	// Authorization is still checked first
	require.ErrorIs(t, te.RegisterVoter("voter", "new", 0), governance.ErrUnauthorized)
	// Only the owner lifts emergency mode
	require.ErrorIs(t, te.ResumeVoting(testContact), governance.ErrUnauthorized)
	require.NoError(t, te.ResumeVoting(testOwner))
	state = te.State()
	assert.False(t, state.EmergencyMode)
	assert.False(t, state.VotingPaused)
	require.NoError(t, te.RegisterVoter(testOwner, "new", 0))
}

func TestEmergencyModeImpliesPaused(t *testing.T) {
	te := newTestEngine(t)
	require.NoError(t, te.PauseVoting(testContact))
	require.NoError(t, te.ActivateEmergencyMode(testOwner))
	require.NoError(t, te.PauseVoting(testOwner))
	state := te.State()
	assert.True(t, state.EmergencyMode)
	assert.True(t, state.VotingPaused)
}

func TestEmergencyAuthorization(t *testing.T) {
	te := newTestEngine(t)
	te.mustRegister(t, "voter", 0)
	require.ErrorIs(t, te.PauseVoting("voter"), governance.ErrUnauthorized)
	require.ErrorIs(t, te.PauseVoting(""), governance.ErrUnauthorized)
	require.ErrorIs(t, te.ActivateEmergencyMode("voter"), governance.ErrUnauthorized)
	require.ErrorIs(t, te.ResumeVoting("voter"), governance.ErrUnauthorized)
	require.ErrorIs(t, te.AddEmergencyContact("voter", "voter"), governance.ErrUnauthorized)
	assert.Equal(t, uint64(1), te.AuditCount())
}

func TestEmergencyContacts(t *testing.T) {
	te := newTestEngine(t)
	require.NoError(t, te.AddEmergencyContact(testOwner, "helper"))
	assert.True(t, te.IsEmergencyContact("helper"))
	require.NoError(t, te.PauseVoting("helper"))
	// Contact management is not gated
	require.NoError(t, te.RemoveEmergencyContact(testOwner, "helper"))
	assert.False(t, te.IsEmergencyContact("helper"))
	require.ErrorIs(t, te.RemoveEmergencyContact(testOwner, "helper"), governance.ErrNotFound)
	require.ErrorIs(t, te.ActivateEmergencyMode("helper"), governance.ErrUnauthorized)
	require.ErrorIs(t, te.AddEmergencyContact(testOwner, ""), governance.ErrUnauthorized)

	entry, err := te.GetAuditEntry(0)
	require.NoError(t, err)
	assert.Equal(t, governance.AuditCategoryAdmin, entry.Category)
	assert.Equal(t, "AddEmergencyContact", entry.Action)
	assert.Equal(t, governance.Identity("helper"), entry.AffectedParty)
}
