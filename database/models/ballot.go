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

type Candidate struct {
	Name              string `gorm:"primaryKey;size:255"`
	Metadata          string
	VoteCount         types.Uint64
	WeightedVoteCount types.Uint64
	RegistrationTime  types.Uint64
	IsActive          bool `gorm:"index"`
}

func (Candidate) TableName() string {
	return "candidate"
}

func CandidateFromGovernance(c governance.Candidate) Candidate {
	return Candidate{
		Name:              c.Name,
		Metadata:          c.Metadata,
		VoteCount:         types.Uint64(c.VoteCount),
		WeightedVoteCount: types.Uint64(c.WeightedVoteCount),
		RegistrationTime:  types.Uint64(c.RegistrationTime),
		IsActive:          c.IsActive,
	}
}

func (c Candidate) Governance() governance.Candidate {
	return governance.Candidate{
		Name:              c.Name,
		VoteCount:         uint64(c.VoteCount),
		WeightedVoteCount: uint64(c.WeightedVoteCount),
		IsActive:          c.IsActive,
		Metadata:          c.Metadata,
		RegistrationTime:  uint64(c.RegistrationTime),
	}
}

// VotingRecord is the latest revealed ballot of a voter
type VotingRecord struct {
	Voter        string `gorm:"primaryKey;size:255"`
	Candidate    string `gorm:"index;size:255"`
	DelegatedBy  string `gorm:"size:255"`
	VoteHash     []byte `gorm:"size:32"`
	IdentityHash []byte `gorm:"size:32"`
	Timestamp    types.Uint64
	BlockHeight  types.Uint64
	VoteWeight   types.Uint64
	Round        types.Uint64
}

func (VotingRecord) TableName() string {
	return "voting_record"
}

func VotingRecordFromGovernance(r governance.VotingRecord) VotingRecord {
	return VotingRecord{
		Voter:        string(r.Voter),
		Candidate:    r.Candidate,
		DelegatedBy:  string(r.DelegatedBy),
		VoteHash:     r.VoteHash.Bytes(),
		IdentityHash: r.IdentityHash.Bytes(),
		Timestamp:    types.Uint64(r.Timestamp),
		BlockHeight:  types.Uint64(r.BlockHeight),
		VoteWeight:   types.Uint64(r.VoteWeight),
		Round:        types.Uint64(r.Round),
	}
}

func (r VotingRecord) Governance() (governance.VotingRecord, error) {
	voteHash, err := commitment.DigestFromBytes(r.VoteHash)
	if err != nil {
		return governance.VotingRecord{}, fmt.Errorf("voting record %s: %w", r.Voter, err)
	}
	identityHash, err := commitment.DigestFromBytes(r.IdentityHash)
	if err != nil {
		return governance.VotingRecord{}, fmt.Errorf("voting record %s: %w", r.Voter, err)
	}
	return governance.VotingRecord{
		Voter:        governance.Identity(r.Voter),
		Candidate:    r.Candidate,
		Timestamp:    uint64(r.Timestamp),
		BlockHeight:  uint64(r.BlockHeight),
		VoteWeight:   uint64(r.VoteWeight),
		DelegatedBy:  governance.Identity(r.DelegatedBy),
		VoteHash:     voteHash,
		IdentityHash: identityHash,
		Round:        uint64(r.Round),
	}, nil
}
