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

package sqlite_test

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/tally/database/types"
)

type fakeTxn struct{}

func (fakeTxn) Commit() error   { return nil }
func (fakeTxn) Rollback() error { return nil }

func newStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	a := newStore(t)
	b := newStore(t)
	require.NoError(t, a.SetVoters([]models.Voter{{Voter: "alice", Registered: true}}, nil))
	voters, err := b.GetVoters(nil)
	require.NoError(t, err)
	assert.Empty(t, voters)
}

func TestCommitTimestamp(t *testing.T) {
	store := newStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	require.NoError(t, store.SetCommitTimestamp(10, nil))
	require.NoError(t, store.SetCommitTimestamp(20, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(20), ts)
}

func TestGovernanceState(t *testing.T) {
	store := newStore(t)
	state, err := store.GetGovernanceState(nil)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, store.SetGovernanceState(&models.GovernanceState{
		Owner:              "owner",
		TotalWeightedVotes: math.MaxUint64,
		VotingPaused:       true,
	}, nil))
	require.NoError(t, store.SetGovernanceState(&models.GovernanceState{
		Owner:        "owner",
		AuditCounter: 5,
	}, nil))
	state, err = store.GetGovernanceState(nil)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint(models.GovernanceStateRowId), state.ID)
	assert.Equal(t, types.Uint64(5), state.AuditCounter)
	assert.Equal(t, types.Uint64(0), state.TotalWeightedVotes)
	assert.False(t, state.VotingPaused)
}

func TestEmergencyContacts(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.AddEmergencyContacts([]string{"zed", "amy"}, nil))
	// Re-adding keeps the original position
	require.NoError(t, store.AddEmergencyContacts([]string{"zed", "bob"}, nil))
	contacts, err := store.GetEmergencyContacts(nil)
	require.NoError(t, err)
	var ids []string
	for _, c := range contacts {
		ids = append(ids, c.Identity)
	}
	assert.Equal(t, []string{"zed", "amy", "bob"}, ids)

	require.NoError(t, store.DeleteEmergencyContacts([]string{"amy"}, nil))
	require.NoError(t, store.DeleteEmergencyContacts(nil, nil))
	contacts, err = store.GetEmergencyContacts(nil)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "zed", contacts[0].Identity)
	assert.Equal(t, "bob", contacts[1].Identity)
}

func TestUpsertReplacesRows(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetVoters([]models.Voter{
		{Voter: "bob", Registered: true, StakeAmount: 1},
		{Voter: "alice", Registered: true, StakeAmount: math.MaxUint64},
	}, nil))
	require.NoError(t, store.SetVoters([]models.Voter{
		{Voter: "bob", Registered: true, StakeAmount: 2, Delegate: "alice"},
	}, nil))
	voters, err := store.GetVoters(nil)
	require.NoError(t, err)
	require.Len(t, voters, 2)
	assert.Equal(t, "alice", voters[0].Voter)
	assert.Equal(t, types.Uint64(math.MaxUint64), voters[0].StakeAmount)
	assert.Equal(t, types.Uint64(2), voters[1].StakeAmount)
	assert.Equal(t, "alice", voters[1].Delegate)

	// Clearing a delegate pointer writes the empty value
	require.NoError(t, store.SetVoters([]models.Voter{
		{Voter: "bob", Registered: true, StakeAmount: 2},
	}, nil))
	voters, err = store.GetVoters(nil)
	require.NoError(t, err)
	assert.Empty(t, voters[1].Delegate)
}

func TestProposalVotesUniquePerVoter(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetProposalVotes([]models.ProposalVote{
		{ProposalID: 1, Voter: "a", Vote: 1, Weight: 10},
		{ProposalID: 2, Voter: "a", Vote: 0, Weight: 10},
	}, nil))
	require.NoError(t, store.SetProposalVotes([]models.ProposalVote{
		{ProposalID: 1, Voter: "a", Vote: 2, Weight: 11},
	}, nil))
	votes, err := store.GetProposalVotes(nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, uint8(2), votes[0].Vote)
	assert.Equal(t, types.Uint64(11), votes[0].Weight)
}

func TestAuditEntries(t *testing.T) {
	store := newStore(t)
	entries := []models.AuditEntry{
		{ID: 0, Action: "RegisterVoter", Actor: "owner", AffectedParty: "a", TxHash: []byte{0}},
		{ID: 1, Action: "DelegateVote", Actor: "a", AffectedParty: "b", TxHash: []byte{1}},
		{ID: 2, Action: "PauseVoting", Actor: "owner", TxHash: []byte{2}},
	}
	for i := range entries {
		require.NoError(t, store.SetAuditEntry(&entries[i], nil))
	}
	// Entry ids are unique
	require.Error(t, store.SetAuditEntry(&models.AuditEntry{ID: 1, TxHash: []byte{9}}, nil))

	count, err := store.CountAuditEntries(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	byActor, err := store.GetAuditEntriesByActor("a", nil)
	require.NoError(t, err)
	require.Len(t, byActor, 2)
	assert.Equal(t, uint64(0), byActor[0].ID)
	assert.Equal(t, uint64(1), byActor[1].ID)
}

func TestTransactionRollback(t *testing.T) {
	store := newStore(t)
	txn := store.Transaction()
	require.NoError(t, store.SetCandidates([]models.Candidate{{Name: "Alice", IsActive: true}}, txn))
	require.NoError(t, txn.Rollback())
	require.ErrorIs(t, store.SetCandidates(nil, txn), types.ErrTxnFinished)
	candidates, err := store.GetCandidates(nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	txn = store.Transaction()
	require.NoError(t, store.SetCandidates([]models.Candidate{{Name: "Alice", IsActive: true}}, txn))
	require.NoError(t, txn.Commit())
	candidates, err = store.GetCandidates(nil)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)

	_, err = store.GetCandidates(fakeTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)
	other := newStore(t)
	_, err = store.GetCandidates(other.Transaction())
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestOnDiskPersistence(t *testing.T) {
	dataDir := t.TempDir()
	store, err := sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetProposals([]models.Proposal{{ID: 3, Title: "t"}}, nil))
	require.NoError(t, store.Close())

	store, err = sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	defer store.Close()
	proposals, err := store.GetProposals(nil)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, "t", proposals[0].Title)
}

func TestPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := sqlite.New("", nil, reg)
	require.NoError(t, err)
	defer store.Close()
	count, err := testutil.GatherAndCount(reg, "go_sql_open_connections")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOnDiskStoreOptions(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.NewWithOptions(
		sqlite.WithDataDir(dir),
		sqlite.WithCacheSize(4096),
		sqlite.WithVacuumInterval(time.Hour),
	)
	require.NoError(t, err)
	var cacheSize int64
	require.NoError(t, store.DB().Raw("PRAGMA cache_size").Scan(&cacheSize).Error)
	assert.Equal(t, int64(-4096), cacheSize)
	require.NoError(t, store.SetVoters([]models.Voter{{Voter: "alice", Registered: true}}, nil))
	require.NoError(t, store.Close())

	// Zero values fall back to the defaults
	store, err = sqlite.NewWithOptions(
		sqlite.WithDataDir(dir),
		sqlite.WithCacheSize(0),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.DB().Raw("PRAGMA cache_size").Scan(&cacheSize).Error)
	assert.Equal(t, int64(-sqlite.DefaultCacheSizeKiB), cacheSize)
	voters, err := store.GetVoters(nil)
	require.NoError(t, err)
	require.Len(t, voters, 1)
	assert.Equal(t, "alice", voters[0].Voter)
}
