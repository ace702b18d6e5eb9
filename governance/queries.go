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

package governance

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

func (e *Engine) GetVoterProfile(voter Identity) (VoterProfile, error) {
	e.RLock()
	defer e.RUnlock()
	p, ok := e.voters[voter]
	if !ok {
		return VoterProfile{}, fmt.Errorf("%w: voter %q", ErrNotFound, voter)
	}
	return p, nil
}

func (e *Engine) GetCandidate(name string) (Candidate, error) {
	e.RLock()
	defer e.RUnlock()
	c, ok := e.candidates[name]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: candidate %q", ErrNotFound, name)
	}
	return c, nil
}

// ListCandidates returns all candidates ordered by name
func (e *Engine) ListCandidates() []Candidate {
	e.RLock()
	defer e.RUnlock()
	return slices.SortedFunc(maps.Values(e.candidates), func(a, b Candidate) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

func (e *Engine) GetCommitment(voter Identity) (VoteCommitment, error) {
	e.RLock()
	defer e.RUnlock()
	c, ok := e.commitments[voter]
	if !ok {
		return VoteCommitment{}, fmt.Errorf("%w: commitment for %q", ErrNotFound, voter)
	}
	return c, nil
}

func (e *Engine) GetVotingRecord(voter Identity) (VotingRecord, error) {
	e.RLock()
	defer e.RUnlock()
	r, ok := e.records[voter]
	if !ok {
		return VotingRecord{}, fmt.Errorf("%w: voting record for %q", ErrNotFound, voter)
	}
	return r, nil
}

func (e *Engine) GetProposal(id uint64) (Proposal, error) {
	e.RLock()
	defer e.RUnlock()
	p, ok := e.proposals[id]
	if !ok {
		return Proposal{}, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return p, nil
}

// ListProposals returns all proposals ordered by id
func (e *Engine) ListProposals() []Proposal {
	e.RLock()
	defer e.RUnlock()
	return slices.SortedFunc(maps.Values(e.proposals), func(a, b Proposal) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func (e *Engine) GetProposalVote(proposalID uint64, voter Identity) (ProposalVote, error) {
	e.RLock()
	defer e.RUnlock()
	if _, ok := e.proposals[proposalID]; !ok {
		return ProposalVote{}, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	v, ok := e.proposalVotes[proposalVoteKey{proposalID, voter}]
	if !ok {
		return ProposalVote{}, fmt.Errorf(
			"%w: vote by %q on proposal %d",
			ErrNotFound,
			voter,
			proposalID,
		)
	}
	return v, nil
}

func (e *Engine) GetDelegation(id uint64) (Delegation, error) {
	e.RLock()
	defer e.RUnlock()
	d, ok := e.delegations[id]
	if !ok {
		return Delegation{}, fmt.Errorf("%w: delegation %d", ErrNotFound, id)
	}
	return d, nil
}

func (e *Engine) GetVotingStats() VotingStats {
	e.RLock()
	defer e.RUnlock()
	return VotingStats{
		VotingActive:       e.state.VotingActive,
		VotingStart:        e.state.VotingStart,
		VotingEnd:          e.state.VotingEnd,
		VotingPaused:       e.state.VotingPaused,
		EmergencyMode:      e.state.EmergencyMode,
		ElectionRound:      e.state.ElectionRound,
		TotalVotes:         e.state.TotalVotes,
		TotalWeightedVotes: e.state.TotalWeightedVotes,
		MinStakeRequired:   e.state.MinStakeRequired,
		RegisteredVoters:   uint64(len(e.voters)),
		Candidates:         uint64(len(e.candidates)),
		ProposalCount:      e.state.ProposalCounter,
		DelegationCount:    e.state.DelegateCounter,
		AuditEntryCount:    e.state.AuditCounter,
	}
}

// State returns a copy of the global state
func (e *Engine) State() GlobalState {
	e.RLock()
	defer e.RUnlock()
	return e.state.clone()
}

func (e *Engine) IsEmergencyContact(id Identity) bool {
	e.RLock()
	defer e.RUnlock()
	return e.isEmergencyContact(id)
}
