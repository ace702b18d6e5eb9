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
	"github.com/blinklabs-io/tally/commitment"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/blinklabs-io/tally/governance"
)

// GovernanceStateRowId is the ID of the single governance state row
const GovernanceStateRowId = 1

// GovernanceState holds the engine-wide counters and flags. There is only
// ever one row.
type GovernanceState struct {
	ID                 uint   `gorm:"primarykey"`
	Owner              string `gorm:"size:255"`
	VotingStart        types.Uint64
	VotingEnd          types.Uint64
	TotalVotes         types.Uint64
	TotalWeightedVotes types.Uint64
	MinStakeRequired   types.Uint64
	ProposalCounter    types.Uint64
	DelegateCounter    types.Uint64
	AuditCounter       types.Uint64
	ElectionRound      types.Uint64
	VotingActive       bool
	VotingPaused       bool
	EmergencyMode      bool
}

func (GovernanceState) TableName() string {
	return "governance_state"
}

// GovernanceStateFromGlobal converts the engine state. Emergency contacts
// are stored separately as EmergencyContact rows.
func GovernanceStateFromGlobal(s governance.GlobalState) GovernanceState {
	return GovernanceState{
		ID:                 GovernanceStateRowId,
		Owner:              string(s.Owner),
		VotingStart:        types.Uint64(s.VotingStart),
		VotingEnd:          types.Uint64(s.VotingEnd),
		TotalVotes:         types.Uint64(s.TotalVotes),
		TotalWeightedVotes: types.Uint64(s.TotalWeightedVotes),
		MinStakeRequired:   types.Uint64(s.MinStakeRequired),
		ProposalCounter:    types.Uint64(s.ProposalCounter),
		DelegateCounter:    types.Uint64(s.DelegateCounter),
		AuditCounter:       types.Uint64(s.AuditCounter),
		ElectionRound:      types.Uint64(s.ElectionRound),
		VotingActive:       s.VotingActive,
		VotingPaused:       s.VotingPaused,
		EmergencyMode:      s.EmergencyMode,
	}
}

func (s GovernanceState) Global(contacts []EmergencyContact) governance.GlobalState {
	ret := governance.GlobalState{
		VotingActive:       s.VotingActive,
		VotingStart:        uint64(s.VotingStart),
		VotingEnd:          uint64(s.VotingEnd),
		TotalVotes:         uint64(s.TotalVotes),
		TotalWeightedVotes: uint64(s.TotalWeightedVotes),
		VotingPaused:       s.VotingPaused,
		EmergencyMode:      s.EmergencyMode,
		MinStakeRequired:   uint64(s.MinStakeRequired),
		ProposalCounter:    uint64(s.ProposalCounter),
		DelegateCounter:    uint64(s.DelegateCounter),
		AuditCounter:       uint64(s.AuditCounter),
		ElectionRound:      uint64(s.ElectionRound),
		Owner:              governance.Identity(s.Owner),
	}
	for _, c := range contacts {
		ret.EmergencyContacts = append(
			ret.EmergencyContacts,
			governance.Identity(c.Identity),
		)
	}
	return ret
}

// EmergencyContact is an identity allowed to pause voting. Rows keep their
// insertion order through the auto-increment ID.
type EmergencyContact struct {
	ID       uint   `gorm:"primarykey"`
	Identity string `gorm:"uniqueIndex;size:255;not null"`
}

func (EmergencyContact) TableName() string {
	return "emergency_contact"
}

// AuditEntry indexes an audit log entry for SQL queries. The canonical
// encoded entry lives in the blob store.
type AuditEntry struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement:false"`
	Category      string `gorm:"index;size:32"`
	Action        string `gorm:"index;size:64"`
	Actor         string `gorm:"index;size:255"`
	AffectedParty string `gorm:"index;size:255"`
	Details       string
	PrevHash      []byte `gorm:"size:32"`
	TxHash        []byte `gorm:"uniqueIndex;size:32"`
	Timestamp     types.Uint64
	BlockHeight   types.Uint64
}

func (AuditEntry) TableName() string {
	return "audit_entry"
}

func AuditEntryFromGovernance(a governance.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:            a.ID,
		Category:      string(a.Category),
		Action:        a.Action,
		Actor:         string(a.Actor),
		AffectedParty: string(a.AffectedParty),
		Details:       a.Details,
		PrevHash:      a.PrevHash.Bytes(),
		TxHash:        a.TxHash.Bytes(),
		Timestamp:     types.Uint64(a.Timestamp),
		BlockHeight:   types.Uint64(a.BlockHeight),
	}
}

func (a AuditEntry) Governance() (governance.AuditEntry, error) {
	prevHash, err := commitment.DigestFromBytes(a.PrevHash)
	if err != nil {
		return governance.AuditEntry{}, err
	}
	txHash, err := commitment.DigestFromBytes(a.TxHash)
	if err != nil {
		return governance.AuditEntry{}, err
	}
	return governance.AuditEntry{
		ID:            a.ID,
		Category:      governance.AuditCategory(a.Category),
		Action:        a.Action,
		Actor:         governance.Identity(a.Actor),
		Timestamp:     uint64(a.Timestamp),
		BlockHeight:   uint64(a.BlockHeight),
		Details:       a.Details,
		AffectedParty: governance.Identity(a.AffectedParty),
		PrevHash:      prevHash,
		TxHash:        txHash,
	}, nil
}
