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

package database

import (
	"fmt"

	"github.com/blinklabs-io/tally/commitment"
	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/blinklabs-io/tally/governance"
)

var _ governance.Store = (*Database)(nil)

// commitmentRecord is the blob encoding of a sealed ballot
type commitmentRecord struct {
	_              struct{} `cbor:",toarray"`
	Voter          string
	CommitmentHash []byte
	RevealDeadline uint64
	Revealed       bool
	Round          uint64
	CommitTime     uint64
}

// auditRecord is the blob encoding of an audit entry
type auditRecord struct {
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
	TxHash        []byte
}

// ApplyChangeSet writes every entity in the change set in a single
// transaction across both stores
func (d *Database) ApplyChangeSet(cs *governance.ChangeSet) error {
	txn := d.Transaction(true)
	return txn.Do(func(txn *Txn) error {
		return d.applyChangeSet(txn, cs)
	})
}

func (d *Database) applyChangeSet(txn *Txn, cs *governance.ChangeSet) error {
	state := models.GovernanceStateFromGlobal(cs.State)
	if err := d.metadata.SetGovernanceState(&state, txn.Metadata()); err != nil {
		return fmt.Errorf("save governance state: %w", err)
	}
	if len(cs.RemovedContacts) > 0 {
		removed := make([]string, 0, len(cs.RemovedContacts))
		for _, c := range cs.RemovedContacts {
			removed = append(removed, string(c))
		}
		if err := d.metadata.DeleteEmergencyContacts(removed, txn.Metadata()); err != nil {
			return fmt.Errorf("remove emergency contacts: %w", err)
		}
	}
	if len(cs.State.EmergencyContacts) > 0 {
		contacts := make([]string, 0, len(cs.State.EmergencyContacts))
		for _, c := range cs.State.EmergencyContacts {
			contacts = append(contacts, string(c))
		}
		if err := d.metadata.AddEmergencyContacts(contacts, txn.Metadata()); err != nil {
			return fmt.Errorf("save emergency contacts: %w", err)
		}
	}
	if len(cs.Voters) > 0 {
		rows := make([]models.Voter, 0, len(cs.Voters))
		for _, v := range cs.Voters {
			rows = append(rows, models.VoterFromProfile(v))
		}
		if err := d.metadata.SetVoters(rows, txn.Metadata()); err != nil {
			return fmt.Errorf("save voters: %w", err)
		}
	}
	if len(cs.Delegations) > 0 {
		rows := make([]models.Delegation, 0, len(cs.Delegations))
		for _, del := range cs.Delegations {
			rows = append(rows, models.DelegationFromGovernance(del))
		}
		if err := d.metadata.SetDelegations(rows, txn.Metadata()); err != nil {
			return fmt.Errorf("save delegations: %w", err)
		}
	}
	if len(cs.Candidates) > 0 {
		rows := make([]models.Candidate, 0, len(cs.Candidates))
		for _, c := range cs.Candidates {
			rows = append(rows, models.CandidateFromGovernance(c))
		}
		if err := d.metadata.SetCandidates(rows, txn.Metadata()); err != nil {
			return fmt.Errorf("save candidates: %w", err)
		}
	}
	if len(cs.Records) > 0 {
		rows := make([]models.VotingRecord, 0, len(cs.Records))
		for _, r := range cs.Records {
			rows = append(rows, models.VotingRecordFromGovernance(r))
		}
		if err := d.metadata.SetVotingRecords(rows, txn.Metadata()); err != nil {
			return fmt.Errorf("save voting records: %w", err)
		}
	}
	if len(cs.Proposals) > 0 {
		rows := make([]models.Proposal, 0, len(cs.Proposals))
		for _, p := range cs.Proposals {
			rows = append(rows, models.ProposalFromGovernance(p))
		}
		if err := d.metadata.SetProposals(rows, txn.Metadata()); err != nil {
			return fmt.Errorf("save proposals: %w", err)
		}
	}
	if len(cs.ProposalVotes) > 0 {
		rows := make([]models.ProposalVote, 0, len(cs.ProposalVotes))
		for _, pv := range cs.ProposalVotes {
			rows = append(rows, models.ProposalVoteFromGovernance(pv))
		}
		if err := d.metadata.SetProposalVotes(rows, txn.Metadata()); err != nil {
			return fmt.Errorf("save proposal votes: %w", err)
		}
	}
	for _, c := range cs.Commitments {
		if err := d.setCommitment(txn, c); err != nil {
			return err
		}
	}
	auditRow := models.AuditEntryFromGovernance(cs.Audit)
	if err := d.metadata.SetAuditEntry(&auditRow, txn.Metadata()); err != nil {
		return fmt.Errorf("save audit entry %d: %w", cs.Audit.ID, err)
	}
	return d.setAuditBlob(txn, cs.Audit)
}

func (d *Database) setCommitment(txn *Txn, c governance.VoteCommitment) error {
	data, err := commitment.Encode(commitmentRecord{
		Voter:          string(c.Voter),
		CommitmentHash: c.CommitmentHash.Bytes(),
		RevealDeadline: c.RevealDeadline,
		Revealed:       c.Revealed,
		Round:          c.Round,
		CommitTime:     c.CommitTime,
	})
	if err != nil {
		return fmt.Errorf("encode commitment for %s: %w", c.Voter, err)
	}
	key := types.CommitmentBlobKey(string(c.Voter))
	if err := d.blob.Set(txn.Blob(), key, data); err != nil {
		return fmt.Errorf("save commitment for %s: %w", c.Voter, err)
	}
	return nil
}

func (d *Database) setAuditBlob(txn *Txn, a governance.AuditEntry) error {
	data, err := commitment.Encode(auditRecord{
		ID:            a.ID,
		Category:      string(a.Category),
		Action:        a.Action,
		Actor:         string(a.Actor),
		Timestamp:     a.Timestamp,
		BlockHeight:   a.BlockHeight,
		Details:       a.Details,
		AffectedParty: string(a.AffectedParty),
		PrevHash:      a.PrevHash.Bytes(),
		TxHash:        a.TxHash.Bytes(),
	})
	if err != nil {
		return fmt.Errorf("encode audit entry %d: %w", a.ID, err)
	}
	if err := d.blob.Set(txn.Blob(), types.AuditBlobKey(a.ID), data); err != nil {
		return fmt.Errorf("save audit entry %d: %w", a.ID, err)
	}
	return nil
}

// LoadSnapshot reads the full governance state. It returns nil if no state
// has been persisted yet.
func (d *Database) LoadSnapshot() (*governance.Snapshot, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	stateRow, err := d.metadata.GetGovernanceState(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load governance state: %w", err)
	}
	if stateRow == nil {
		return nil, nil
	}
	contacts, err := d.metadata.GetEmergencyContacts(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load emergency contacts: %w", err)
	}
	snap := &governance.Snapshot{
		State: stateRow.Global(contacts),
	}
	voters, err := d.metadata.GetVoters(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load voters: %w", err)
	}
	for _, v := range voters {
		snap.Voters = append(snap.Voters, v.Profile())
	}
	delegations, err := d.metadata.GetDelegations(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load delegations: %w", err)
	}
	for _, del := range delegations {
		snap.Delegations = append(snap.Delegations, del.Governance())
	}
	candidates, err := d.metadata.GetCandidates(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	for _, c := range candidates {
		snap.Candidates = append(snap.Candidates, c.Governance())
	}
	records, err := d.metadata.GetVotingRecords(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load voting records: %w", err)
	}
	for _, r := range records {
		tmpRecord, err := r.Governance()
		if err != nil {
			return nil, err
		}
		snap.Records = append(snap.Records, tmpRecord)
	}
	proposals, err := d.metadata.GetProposals(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	for _, p := range proposals {
		tmpProposal, err := p.Governance()
		if err != nil {
			return nil, err
		}
		snap.Proposals = append(snap.Proposals, tmpProposal)
	}
	votes, err := d.metadata.GetProposalVotes(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load proposal votes: %w", err)
	}
	for _, v := range votes {
		tmpVote, err := v.Governance()
		if err != nil {
			return nil, err
		}
		snap.ProposalVotes = append(snap.ProposalVotes, tmpVote)
	}
	if snap.Commitments, err = d.loadCommitments(txn); err != nil {
		return nil, err
	}
	if snap.Audit, err = d.loadAudit(txn); err != nil {
		return nil, err
	}
	auditRows, err := d.metadata.CountAuditEntries(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}
	if auditRows != int64(len(snap.Audit)) {
		return nil, fmt.Errorf(
			"audit index has %d entries but blob store has %d",
			auditRows,
			len(snap.Audit),
		)
	}
	return snap, nil
}

func (d *Database) loadCommitments(txn *Txn) ([]governance.VoteCommitment, error) {
	var ret []governance.VoteCommitment
	err := d.blob.Iterate(
		txn.Blob(),
		[]byte(types.CommitmentBlobKeyPrefix),
		func(key []byte, val []byte) error {
			var tmp commitmentRecord
			if err := commitment.Decode(val, &tmp); err != nil {
				return fmt.Errorf("decode commitment %q: %w", key, err)
			}
			hash, err := commitment.DigestFromBytes(tmp.CommitmentHash)
			if err != nil {
				return fmt.Errorf("decode commitment %q: %w", key, err)
			}
			ret = append(ret, governance.VoteCommitment{
				Voter:          governance.Identity(tmp.Voter),
				CommitmentHash: hash,
				RevealDeadline: tmp.RevealDeadline,
				Revealed:       tmp.Revealed,
				Round:          tmp.Round,
				CommitTime:     tmp.CommitTime,
			})
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load commitments: %w", err)
	}
	return ret, nil
}

func (d *Database) loadAudit(txn *Txn) ([]governance.AuditEntry, error) {
	var ret []governance.AuditEntry
	err := d.blob.Iterate(
		txn.Blob(),
		[]byte(types.AuditBlobKeyPrefix),
		func(key []byte, val []byte) error {
			id, ok := types.AuditBlobKeyId(key)
			if !ok {
				return fmt.Errorf("malformed audit key %x", key)
			}
			var tmp auditRecord
			if err := commitment.Decode(val, &tmp); err != nil {
				return fmt.Errorf("decode audit entry %d: %w", id, err)
			}
			if tmp.ID != id {
				return fmt.Errorf("audit entry %d stored under key for %d", tmp.ID, id)
			}
			prevHash, err := commitment.DigestFromBytes(tmp.PrevHash)
			if err != nil {
				return fmt.Errorf("decode audit entry %d: %w", id, err)
			}
			txHash, err := commitment.DigestFromBytes(tmp.TxHash)
			if err != nil {
				return fmt.Errorf("decode audit entry %d: %w", id, err)
			}
			ret = append(ret, governance.AuditEntry{
				ID:            tmp.ID,
				Category:      governance.AuditCategory(tmp.Category),
				Action:        tmp.Action,
				Actor:         governance.Identity(tmp.Actor),
				Timestamp:     tmp.Timestamp,
				BlockHeight:   tmp.BlockHeight,
				Details:       tmp.Details,
				AffectedParty: governance.Identity(tmp.AffectedParty),
				PrevHash:      prevHash,
				TxHash:        txHash,
			})
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load audit log: %w", err)
	}
	return ret, nil
}

// AuditTrail returns the audit entries an identity acted in or was
// affected by, oldest first
func (d *Database) AuditTrail(
	identity governance.Identity,
) ([]governance.AuditEntry, error) {
	rows, err := d.metadata.GetAuditEntriesByActor(string(identity), nil)
	if err != nil {
		return nil, err
	}
	ret := make([]governance.AuditEntry, 0, len(rows))
	for _, row := range rows {
		tmpEntry, err := row.Governance()
		if err != nil {
			return nil, fmt.Errorf("audit entry %d: %w", row.ID, err)
		}
		ret = append(ret, tmpEntry)
	}
	return ret, nil
}
