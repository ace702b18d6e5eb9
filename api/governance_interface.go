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

package api

import (
	"github.com/blinklabs-io/tally/commitment"
	"github.com/blinklabs-io/tally/governance"
)

// Governance is the set of engine operations the API server exposes. It is
// satisfied by *governance.Engine.
type Governance interface {
	// Voter registry
	RegisterVoter(admin, voter governance.Identity, initialStake uint64) error
	UpdateReputation(admin, voter governance.Identity, delta int64) (uint64, error)
	UpdateStake(admin, voter governance.Identity, newStake uint64) error
	SetDelegationPermission(admin, voter governance.Identity, allowed bool) error
	SetMinStake(admin governance.Identity, amount uint64) error
	GetVoterProfile(voter governance.Identity) (governance.VoterProfile, error)
	VoteWeight(voter governance.Identity) (uint64, error)

	// Delegation
	DelegateVote(delegator, delegateTo governance.Identity) (uint64, error)
	RevokeDelegation(caller governance.Identity, delegationID uint64) error
	GetDelegation(id uint64) (governance.Delegation, error)

	// Candidates and ballots
	RegisterCandidate(admin governance.Identity, name string, metadata string) error
	DeactivateCandidate(admin governance.Identity, name string) error
	GetCandidate(name string) (governance.Candidate, error)
	ListCandidates() []governance.Candidate
	StartVoting(admin governance.Identity, duration uint64) error
	EndVoting(admin governance.Identity) error
	CommitVote(
		voter governance.Identity,
		commitmentHash commitment.Digest,
		revealDeadline uint64,
	) error
	RevealAndCastVote(voter governance.Identity, candidate string, nonce uint64) error
	GetCommitment(voter governance.Identity) (governance.VoteCommitment, error)
	GetVotingRecord(voter governance.Identity) (governance.VotingRecord, error)

	// Proposals
	CreateProposal(
		proposer governance.Identity,
		title string,
		description string,
		votingDuration uint64,
		quorumRequired uint64,
	) (uint64, error)
	VoteOnProposal(
		voter governance.Identity,
		proposalID uint64,
		voteType governance.VoteType,
	) error
	CloseProposal(
		caller governance.Identity,
		proposalID uint64,
	) (governance.ProposalStatus, error)
	GetProposal(id uint64) (governance.Proposal, error)
	ListProposals() []governance.Proposal
	GetProposalVote(
		proposalID uint64,
		voter governance.Identity,
	) (governance.ProposalVote, error)

	// Emergency controls
	PauseVoting(caller governance.Identity) error
	ResumeVoting(caller governance.Identity) error
	ActivateEmergencyMode(caller governance.Identity) error
	AddEmergencyContact(caller, contact governance.Identity) error
	RemoveEmergencyContact(caller, contact governance.Identity) error

	// Stats and audit
	GetVotingStats() governance.VotingStats
	GetAuditEntry(id uint64) (governance.AuditEntry, error)
	AuditEntries(from uint64, limit uint64) []governance.AuditEntry
	AuditCount() uint64
	VerifyAuditChain() error
}

// AuditIndex looks up audit entries by identity without scanning the
// whole log. It is satisfied by *database.Database.
type AuditIndex interface {
	AuditTrail(identity governance.Identity) ([]governance.AuditEntry, error)
}

var _ Governance = (*governance.Engine)(nil)
