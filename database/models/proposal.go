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

package models

import (
	"fmt"

	"github.com/blinklabs-io/tally/commitment"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/blinklabs-io/tally/governance"
)

// Proposal status constants, matching governance.ProposalStatus
const (
	ProposalStatusActive   = 0
	ProposalStatusPassed   = 1
	ProposalStatusRejected = 2
	ProposalStatusExpired  = 3
)

type Proposal struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement:false"`
	Title          string
	Description    string
	Proposer       string `gorm:"index;size:255"`
	ExecutionHash  []byte `gorm:"size:32"`
	CreationTime   types.Uint64
	VotingStart    types.Uint64
	VotingEnd      types.Uint64
	YesVotes       types.Uint64
	NoVotes        types.Uint64
	AbstainVotes   types.Uint64
	QuorumRequired types.Uint64
	ClosedTime     types.Uint64
	Status         uint8 `gorm:"index"` // 0=Active, 1=Passed, 2=Rejected, 3=Expired
}

func (Proposal) TableName() string {
	return "proposal"
}

func ProposalFromGovernance(p governance.Proposal) Proposal {
	return Proposal{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Proposer:       string(p.Proposer),
		ExecutionHash:  p.ExecutionHash.Bytes(),
		CreationTime:   types.Uint64(p.CreationTime),
		VotingStart:    types.Uint64(p.VotingStart),
		VotingEnd:      types.Uint64(p.VotingEnd),
		YesVotes:       types.Uint64(p.YesVotes),
		NoVotes:        types.Uint64(p.NoVotes),
		AbstainVotes:   types.Uint64(p.AbstainVotes),
		QuorumRequired: types.Uint64(p.QuorumRequired),
		ClosedTime:     types.Uint64(p.ClosedTime),
		Status:         uint8(p.Status),
	}
}

func (p Proposal) Governance() (governance.Proposal, error) {
	if p.Status > ProposalStatusExpired {
		return governance.Proposal{}, fmt.Errorf(
			"proposal %d: unknown status %d",
			p.ID,
			p.Status,
		)
	}
	executionHash, err := commitment.DigestFromBytes(p.ExecutionHash)
	if err != nil {
		return governance.Proposal{}, fmt.Errorf("proposal %d: %w", p.ID, err)
	}
	return governance.Proposal{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Proposer:       governance.Identity(p.Proposer),
		CreationTime:   uint64(p.CreationTime),
		VotingStart:    uint64(p.VotingStart),
		VotingEnd:      uint64(p.VotingEnd),
		YesVotes:       uint64(p.YesVotes),
		NoVotes:        uint64(p.NoVotes),
		AbstainVotes:   uint64(p.AbstainVotes),
		Status:         governance.ProposalStatus(p.Status),
		QuorumRequired: uint64(p.QuorumRequired),
		ExecutionHash:  executionHash,
		ClosedTime:     uint64(p.ClosedTime),
	}, nil
}

// ProposalVote is one voter's choice on a proposal
type ProposalVote struct {
	ID         uint   `gorm:"primarykey"`
	ProposalID uint64 `gorm:"uniqueIndex:idx_proposal_vote_unique,priority:1;not null"`
	Voter      string `gorm:"uniqueIndex:idx_proposal_vote_unique,priority:2;size:255;not null"`
	Timestamp  types.Uint64
	Weight     types.Uint64
	Vote       uint8 `gorm:"not null"` // 0=No, 1=Yes, 2=Abstain
}

func (ProposalVote) TableName() string {
	return "proposal_vote"
}

func ProposalVoteFromGovernance(v governance.ProposalVote) ProposalVote {
	return ProposalVote{
		ProposalID: v.ProposalID,
		Voter:      string(v.Voter),
		Timestamp:  types.Uint64(v.Timestamp),
		Weight:     types.Uint64(v.Weight),
		Vote:       uint8(v.VoteType),
	}
}

func (v ProposalVote) Governance() (governance.ProposalVote, error) {
	voteType := governance.VoteType(v.Vote)
	if !voteType.Valid() {
		return governance.ProposalVote{}, fmt.Errorf(
			"proposal %d vote by %s: unknown vote type %d",
			v.ProposalID,
			v.Voter,
			v.Vote,
		)
	}
	return governance.ProposalVote{
		ProposalID: v.ProposalID,
		Voter:      governance.Identity(v.Voter),
		VoteType:   voteType,
		Timestamp:  uint64(v.Timestamp),
		Weight:     uint64(v.Weight),
	}, nil
}
