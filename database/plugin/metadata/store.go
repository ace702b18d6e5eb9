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

package metadata

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/plugin"
	"github.com/blinklabs-io/tally/database/types"
)

type MetadataStore interface {
	// matches gorm.DB
	AutoMigrate(...any) error
	Close() error
	DB() *gorm.DB
	Transaction() types.Txn

	// Our specific functions
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error

	GetGovernanceState(types.Txn) (*models.GovernanceState, error)
	SetGovernanceState(*models.GovernanceState, types.Txn) error
	GetEmergencyContacts(types.Txn) ([]models.EmergencyContact, error)
	AddEmergencyContacts([]string, types.Txn) error
	DeleteEmergencyContacts([]string, types.Txn) error

	GetVoters(types.Txn) ([]models.Voter, error)
	SetVoters([]models.Voter, types.Txn) error
	GetDelegations(types.Txn) ([]models.Delegation, error)
	SetDelegations([]models.Delegation, types.Txn) error
	GetCandidates(types.Txn) ([]models.Candidate, error)
	SetCandidates([]models.Candidate, types.Txn) error
	GetVotingRecords(types.Txn) ([]models.VotingRecord, error)
	SetVotingRecords([]models.VotingRecord, types.Txn) error
	GetProposals(types.Txn) ([]models.Proposal, error)
	SetProposals([]models.Proposal, types.Txn) error
	GetProposalVotes(types.Txn) ([]models.ProposalVote, error)
	SetProposalVotes([]models.ProposalVote, types.Txn) error

	CountAuditEntries(types.Txn) (int64, error)
	GetAuditEntriesByActor(string, types.Txn) ([]models.AuditEntry, error)
	SetAuditEntry(*models.AuditEntry, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string, opts plugin.Options) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName, opts)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
