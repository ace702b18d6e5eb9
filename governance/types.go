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
	"fmt"
	"slices"
	"strings"

	"github.com/blinklabs-io/tally/commitment"
)

// Identity is the caller identity supplied with every operation
type Identity string

type VoterProfile struct {
	Voter            Identity `json:"voter"`
	Registered       bool     `json:"registered"`
	StakeAmount      uint64   `json:"stakeAmount"`
	VoteWeight       uint64   `json:"voteWeight"`
	ReputationScore  uint64   `json:"reputationScore"`
	RegistrationTime uint64   `json:"registrationTime"`
	VotesCast        uint64   `json:"votesCast"`
	// Delegate is empty when the voter has no active delegation
	Delegate    Identity `json:"delegate,omitempty"`
	CanDelegate bool     `json:"canDelegate"`
}

type Delegation struct {
	ID              uint64   `json:"id"`
	Delegator       Identity `json:"delegator"`
	Delegate        Identity `json:"delegate"`
	DelegationTime  uint64   `json:"delegationTime"`
	Active          bool     `json:"active"`
	WeightDelegated uint64   `json:"weightDelegated"`
	RevokedTime     uint64   `json:"revokedTime,omitempty"`
}

type Candidate struct {
	Name              string `json:"name"`
	VoteCount         uint64 `json:"voteCount"`
	WeightedVoteCount uint64 `json:"weightedVoteCount"`
	IsActive          bool   `json:"isActive"`
	Metadata          string `json:"metadata"`
	RegistrationTime  uint64 `json:"registrationTime"`
}

type VoteCommitment struct {
	Voter          Identity          `json:"voter"`
	CommitmentHash commitment.Digest `json:"commitmentHash"`
	RevealDeadline uint64            `json:"revealDeadline"`
	Revealed       bool              `json:"revealed"`
	Round          uint64            `json:"round"`
	CommitTime     uint64            `json:"commitTime"`
}

type VotingRecord struct {
	Voter        Identity          `json:"voter"`
	Candidate    string            `json:"candidate"`
	Timestamp    uint64            `json:"timestamp"`
	BlockHeight  uint64            `json:"blockHeight"`
	VoteWeight   uint64            `json:"voteWeight"`
	DelegatedBy  Identity          `json:"delegatedBy,omitempty"`
	VoteHash     commitment.Digest `json:"voteHash"`
	IdentityHash commitment.Digest `json:"identityHash"`
	Round        uint64            `json:"round"`
}

type ProposalStatus uint8

const (
	ProposalStatusActive ProposalStatus = iota
	ProposalStatusPassed
	ProposalStatusRejected
	ProposalStatusExpired
)

var proposalStatusNames = map[ProposalStatus]string{
	ProposalStatusActive:   "active",
	ProposalStatusPassed:   "passed",
	ProposalStatusRejected: "rejected",
	ProposalStatusExpired:  "expired",
}

func (s ProposalStatus) String() string {
	if name, ok := proposalStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ProposalStatus(%d)", s)
}

func (s ProposalStatus) Terminal() bool {
	return s != ProposalStatusActive
}

func (s ProposalStatus) MarshalText() ([]byte, error) {
	if _, ok := proposalStatusNames[s]; !ok {
		return nil, fmt.Errorf("unknown proposal status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *ProposalStatus) UnmarshalText(text []byte) error {
	for k, v := range proposalStatusNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown proposal status %q", string(text))
}

type Proposal struct {
	ID             uint64            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Proposer       Identity          `json:"proposer"`
	CreationTime   uint64            `json:"creationTime"`
	VotingStart    uint64            `json:"votingStart"`
	VotingEnd      uint64            `json:"votingEnd"`
	YesVotes       uint64            `json:"yesVotes"`
	NoVotes        uint64            `json:"noVotes"`
	AbstainVotes   uint64            `json:"abstainVotes"`
	Status         ProposalStatus    `json:"status"`
	QuorumRequired uint64            `json:"quorumRequired"`
	ExecutionHash  commitment.Digest `json:"executionHash"`
	ClosedTime     uint64            `json:"closedTime,omitempty"`
}

type VoteType uint8

const (
	VoteTypeNo VoteType = iota
	VoteTypeYes
	VoteTypeAbstain
)

func (v VoteType) Valid() bool {
	return v <= VoteTypeAbstain
}

func (v VoteType) String() string {
	switch v {
	case VoteTypeNo:
		return "no"
	case VoteTypeYes:
		return "yes"
	case VoteTypeAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("VoteType(%d)", v)
	}
}

func (v VoteType) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unknown vote type %d", v)
	}
	return []byte(v.String()), nil
}

func (v *VoteType) UnmarshalText(text []byte) error {
	tmp, err := ParseVoteType(string(text))
	if err != nil {
		return err
	}
	*v = tmp
	return nil
}

// ParseVoteType accepts yes, no or abstain in any case
func ParseVoteType(s string) (VoteType, error) {
	switch strings.ToLower(s) {
	case "no":
		return VoteTypeNo, nil
	case "yes":
		return VoteTypeYes, nil
	case "abstain":
		return VoteTypeAbstain, nil
	}
	return 0, fmt.Errorf("%w: unknown vote type %q", ErrInvalidProposal, s)
}

type ProposalVote struct {
	ProposalID uint64   `json:"proposalId"`
	Voter      Identity `json:"voter"`
	VoteType   VoteType `json:"voteType"`
	Timestamp  uint64   `json:"timestamp"`
	Weight     uint64   `json:"weight"`
}

type AuditCategory string

const (
	AuditCategoryVoting     AuditCategory = "VOTING"
	AuditCategoryAdmin      AuditCategory = "ADMIN"
	AuditCategoryDelegation AuditCategory = "DELEGATION"
	AuditCategoryProposal   AuditCategory = "PROPOSAL"
)

type AuditEntry struct {
	ID            uint64            `json:"id"`
	Category      AuditCategory     `json:"category"`
	Action        string            `json:"action"`
	Actor         Identity          `json:"actor"`
	Timestamp     uint64            `json:"timestamp"`
	BlockHeight   uint64            `json:"blockHeight"`
	Details       string            `json:"details"`
	AffectedParty Identity          `json:"affectedParty,omitempty"`
	PrevHash      commitment.Digest `json:"prevHash"`
	TxHash        commitment.Digest `json:"txHash"`
}

// auditHashRecord is the CBOR record an audit entry's TxHash is taken over
type auditHashRecord struct {
	_             struct{} `cbor:",toarray"`
	ID            uint64
	Category      string
	Action        string
	Actor         string
	Timestamp     uint64
	BlockHeight   uint64
	Details       string
	AffectedParty string
	PrevHash      []byte
}

// ComputeHash returns the hash over every field of the entry except TxHash
func (a AuditEntry) ComputeHash() (commitment.Digest, error) {
	return commitment.HashRecord(auditHashRecord{
		ID:            a.ID,
		Category:      string(a.Category),
		Action:        a.Action,
		Actor:         string(a.Actor),
		Timestamp:     a.Timestamp,
		BlockHeight:   a.BlockHeight,
		Details:       a.Details,
		AffectedParty: string(a.AffectedParty),
		PrevHash:      a.PrevHash.Bytes(),
	})
}

type GlobalState struct {
	VotingActive       bool       `json:"votingActive"`
	VotingStart        uint64     `json:"votingStart"`
	VotingEnd          uint64     `json:"votingEnd"`
	TotalVotes         uint64     `json:"totalVotes"`
	TotalWeightedVotes uint64     `json:"totalWeightedVotes"`
	VotingPaused       bool       `json:"votingPaused"`
	EmergencyMode      bool       `json:"emergencyMode"`
	MinStakeRequired   uint64     `json:"minStakeRequired"`
	ProposalCounter    uint64     `json:"proposalCounter"`
	DelegateCounter    uint64     `json:"delegateCounter"`
	AuditCounter       uint64     `json:"auditCounter"`
	ElectionRound      uint64     `json:"electionRound"`
	Owner              Identity   `json:"owner"`
	EmergencyContacts  []Identity `json:"emergencyContacts"`
}

func (s GlobalState) clone() GlobalState {
	s.EmergencyContacts = slices.Clone(s.EmergencyContacts)
	return s
}

// VotingStats aggregates the global counters for observers
type VotingStats struct {
	VotingActive       bool   `json:"votingActive"`
	VotingStart        uint64 `json:"votingStart"`
	VotingEnd          uint64 `json:"votingEnd"`
	VotingPaused       bool   `json:"votingPaused"`
	EmergencyMode      bool   `json:"emergencyMode"`
	ElectionRound      uint64 `json:"electionRound"`
	TotalVotes         uint64 `json:"totalVotes"`
	TotalWeightedVotes uint64 `json:"totalWeightedVotes"`
	MinStakeRequired   uint64 `json:"minStakeRequired"`
	RegisteredVoters   uint64 `json:"registeredVoters"`
	Candidates         uint64 `json:"candidates"`
	ProposalCount      uint64 `json:"proposalCount"`
	DelegationCount    uint64 `json:"delegationCount"`
	AuditEntryCount    uint64 `json:"auditEntryCount"`
}
