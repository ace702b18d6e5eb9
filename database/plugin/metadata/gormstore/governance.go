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

package gormstore

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
)

// upsertAll replaces rows matching on primary key
var upsertAll = clause.OnConflict{UpdateAll: true}

func upsert[T any](db *gorm.DB, rows []T, conflict clause.OnConflict) error {
	if len(rows) == 0 {
		return nil
	}
	if result := db.Clauses(conflict).Create(&rows); result.Error != nil {
		return result.Error
	}
	return nil
}

func loadAll[T any](db *gorm.DB, order string) ([]T, error) {
	var ret []T
	if result := db.Order(order).Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetGovernanceState returns the governance state row, or nil if none has
// been written yet
func (s *Store) GetGovernanceState(
	txn types.Txn,
) (*models.GovernanceState, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.GovernanceState{}
	result := db.Where("id = ?", models.GovernanceStateRowId).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetGovernanceState(
	state *models.GovernanceState,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	state.ID = models.GovernanceStateRowId
	if result := db.Clauses(upsertAll).Create(state); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetEmergencyContacts returns the contacts in the order they were added
func (s *Store) GetEmergencyContacts(
	txn types.Txn,
) ([]models.EmergencyContact, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.EmergencyContact](db, "id")
}

// AddEmergencyContacts inserts contacts, ignoring those already present
func (s *Store) AddEmergencyContacts(identities []string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	rows := make([]models.EmergencyContact, 0, len(identities))
	for _, identity := range identities {
		rows = append(rows, models.EmergencyContact{Identity: identity})
	}
	return upsert(db, rows, clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoNothing: true,
	})
}

func (s *Store) DeleteEmergencyContacts(identities []string, txn types.Txn) error {
	if len(identities) == 0 {
		return nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("identity IN ?", identities).
		Delete(&models.EmergencyContact{})
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (s *Store) GetVoters(txn types.Txn) ([]models.Voter, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.Voter](db, "voter")
}

func (s *Store) SetVoters(voters []models.Voter, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, voters, upsertAll)
}

func (s *Store) GetDelegations(txn types.Txn) ([]models.Delegation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.Delegation](db, "id")
}

func (s *Store) SetDelegations(
	delegations []models.Delegation,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, delegations, upsertAll)
}

func (s *Store) GetCandidates(txn types.Txn) ([]models.Candidate, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.Candidate](db, "name")
}

func (s *Store) SetCandidates(
	candidates []models.Candidate,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, candidates, upsertAll)
}

func (s *Store) GetVotingRecords(txn types.Txn) ([]models.VotingRecord, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.VotingRecord](db, "voter")
}

func (s *Store) SetVotingRecords(
	records []models.VotingRecord,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, records, upsertAll)
}

func (s *Store) GetProposals(txn types.Txn) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.Proposal](db, "id")
}

func (s *Store) SetProposals(proposals []models.Proposal, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, proposals, upsertAll)
}

func (s *Store) GetProposalVotes(txn types.Txn) ([]models.ProposalVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return loadAll[models.ProposalVote](db, "proposal_id, voter")
}

func (s *Store) SetProposalVotes(
	votes []models.ProposalVote,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, votes, clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "voter"},
		},
		DoUpdates: clause.AssignmentColumns(
			[]string{"timestamp", "weight", "vote"},
		),
	})
}

func (s *Store) CountAuditEntries(txn types.Txn) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var count int64
	if result := db.Model(&models.AuditEntry{}).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GetAuditEntriesByActor returns the entries where the identity acted or
// was affected, oldest first
func (s *Store) GetAuditEntriesByActor(
	actor string,
	txn types.Txn,
) ([]models.AuditEntry, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.AuditEntry
	result := db.Where("actor = ? OR affected_party = ?", actor, actor).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetAuditEntry(entry *models.AuditEntry, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(entry); result.Error != nil {
		return result.Error
	}
	return nil
}
