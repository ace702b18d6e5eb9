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

// ChangeSet holds every entity written by a single successful operation.
// It is handed to the Store before being applied in memory.
type ChangeSet struct {
	State         GlobalState
	Voters        []VoterProfile
	Delegations   []Delegation
	Candidates    []Candidate
	Commitments   []VoteCommitment
	Records       []VotingRecord
	Proposals     []Proposal
	ProposalVotes []ProposalVote
	// RemovedContacts lists emergency contacts dropped by this change
	RemovedContacts []Identity
	Audit           AuditEntry
}

// Snapshot is the full persisted engine state
type Snapshot struct {
	State         GlobalState
	Voters        []VoterProfile
	Delegations   []Delegation
	Candidates    []Candidate
	Commitments   []VoteCommitment
	Records       []VotingRecord
	Proposals     []Proposal
	ProposalVotes []ProposalVote
	Audit         []AuditEntry
}

// Store persists engine changes. ApplyChangeSet must be atomic: either the
// whole change set is durable or none of it is.
type Store interface {
	ApplyChangeSet(*ChangeSet) error
	// LoadSnapshot returns nil when nothing has been persisted yet
	LoadSnapshot() (*Snapshot, error)
}

func (c *ChangeSet) stageVoter(p VoterProfile) {
	for i := range c.Voters {
		if c.Voters[i].Voter == p.Voter {
			c.Voters[i] = p
			return
		}
	}
	c.Voters = append(c.Voters, p)
}
