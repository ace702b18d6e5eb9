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

package governance_test

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
)

const (
	testOwner   governance.Identity = "owner"
	testContact governance.Identity = "guardian"
)

type testEngine struct {
	*governance.Engine
	clock *governance.ManualClock
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	return newTestEngineWithConfig(t, governance.EngineConfig{})
}

func newTestEngineWithConfig(
	t *testing.T,
	cfg governance.EngineConfig,
) *testEngine {
	t.Helper()
	clock := governance.NewManualClock(100, 1000)
	if cfg.Owner == "" {
		cfg.Owner = testOwner
	}
	if cfg.EmergencyContacts == nil {
		cfg.EmergencyContacts = []governance.Identity{testContact}
	}
	cfg.Clock = clock
	e, err := governance.NewEngine(cfg)
	require.NoError(t, err)
	return &testEngine{Engine: e, clock: clock}
}

func (te *testEngine) mustRegister(t *testing.T, voter governance.Identity, stake uint64) {
	t.Helper()
	require.NoError(t, te.RegisterVoter(testOwner, voter, stake))
}

func (te *testEngine) mustCandidate(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, te.RegisterCandidate(testOwner, name, ""))
}

// memoryStore records change sets and can be told to fail
type memoryStore struct {
	mu         sync.Mutex
	changeSets []governance.ChangeSet
	snapshot   *governance.Snapshot
	failNext   bool
}

var errStoreFailed = errors.New("store failed")

func (s *memoryStore) ApplyChangeSet(cs *governance.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errStoreFailed
	}
	s.changeSets = append(s.changeSets, *cs)
	return nil
}

func (s *memoryStore) LoadSnapshot() (*governance.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, nil
}

// buildSnapshot folds the recorded change sets into a snapshot
func (s *memoryStore) buildSnapshot() *governance.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &governance.Snapshot{}
	voters := map[governance.Identity]governance.VoterProfile{}
	candidates := map[string]governance.Candidate{}
	proposals := map[uint64]governance.Proposal{}
	for _, cs := range s.changeSets {
		snap.State = cs.State
		for _, v := range cs.Voters {
			voters[v.Voter] = v
		}
		for _, c := range cs.Candidates {
			candidates[c.Name] = c
		}
		for _, p := range cs.Proposals {
			proposals[p.ID] = p
		}
		snap.ProposalVotes = append(snap.ProposalVotes, cs.ProposalVotes...)
		snap.Audit = append(snap.Audit, cs.Audit)
	}
	for _, v := range voters {
		snap.Voters = append(snap.Voters, v)
	}
	for _, c := range candidates {
		snap.Candidates = append(snap.Candidates, c)
	}
	for _, p := range proposals {
		snap.Proposals = append(snap.Proposals, p)
	}
	return snap
}

func TestNewEngineRequiresOwnerAndClock(t *testing.T) {
	_, err := governance.NewEngine(governance.EngineConfig{Owner: testOwner})
	require.Error(t, err)
	_, err = governance.NewEngine(governance.EngineConfig{
		Clock: governance.NewManualClock(0, 0),
	})
	require.Error(t, err)
}

func TestInitialState(t *testing.T) {
	te := newTestEngine(t)
	state := te.State()
	assert.False(t, state.VotingActive)
	assert.False(t, state.VotingPaused)
	assert.False(t, state.EmergencyMode)
	assert.Equal(t, testOwner, state.Owner)
	assert.Equal(t, uint64(0), state.AuditCounter)
	assert.True(t, te.IsEmergencyContact(testContact))
	assert.Equal(t, uint64(0), te.AuditCount())
}

func TestQueriesReturnCopies(t *testing.T) {
	te := newTestEngineWithConfig(t, governance.EngineConfig{
		EmergencyContacts: []governance.Identity{testContact},
	})
	state := te.State()
	state.EmergencyContacts[0] = "mallory"
	assert.True(t, te.IsEmergencyContact(testContact))
	assert.False(t, te.IsEmergencyContact("mallory"))

	te.mustRegister(t, "alice", 0)
	p, err := te.GetVoterProfile("alice")
	require.NoError(t, err)
	p.StakeAmount = 1 << 40
	p2, err := te.GetVoterProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p2.StakeAmount)
}

func TestStoreFailureLeavesNoTrace(t *testing.T) {
	store := &memoryStore{}
	te := newTestEngineWithConfig(t, governance.EngineConfig{Store: store})
	te.mustRegister(t, "alice", 0)

	store.failNext = true
	err := te.RegisterVoter(testOwner, "bob", 0)
	require.ErrorIs(t, err, governance.ErrPersistence)
	require.ErrorIs(t, err, errStoreFailed)

	_, err = te.GetVoterProfile("bob")
	require.ErrorIs(t, err, governance.ErrNotFound)
	assert.Equal(t, uint64(1), te.AuditCount())
	assert.Equal(t, uint64(1), te.State().AuditCounter)

	// The next operation reuses the audit id that failed to persist
	te.mustRegister(t, "bob", 0)
	entry, err := te.GetAuditEntry(1)
	require.NoError(t, err)
	assert.Equal(t, governance.Identity("bob"), entry.AffectedParty)
	require.NoError(t, te.VerifyAuditChain())
}

func TestChangeSetCarriesAuditEntry(t *testing.T) {
	store := &memoryStore{}
	te := newTestEngineWithConfig(t, governance.EngineConfig{Store: store})
	te.mustRegister(t, "alice", 250000)
	require.Len(t, store.changeSets, 1)
	cs := store.changeSets[0]
	require.Len(t, cs.Voters, 1)
	assert.Equal(t, uint64(3), cs.Voters[0].VoteWeight)
	assert.Equal(t, uint64(0), cs.Audit.ID)
	assert.Equal(t, uint64(1), cs.State.AuditCounter)
	assert.Equal(t, "RegisterVoter", cs.Audit.Action)
}

func TestEngineRestoresFromSnapshot(t *testing.T) {
	store := &memoryStore{}
	te := newTestEngineWithConfig(t, governance.EngineConfig{Store: store})
	te.mustRegister(t, "alice", 200000)
	te.mustRegister(t, "bob", 0)
	te.mustCandidate(t, "Alice")
	id, err := te.CreateProposal("alice", "upgrade", "", 50, 1)
	require.NoError(t, err)
	require.NoError(t, te.VoteOnProposal("bob", id, governance.VoteTypeYes))

	store.snapshot = store.buildSnapshot()
	restored, err := governance.NewEngine(governance.EngineConfig{
		// Persisted state wins over the configured owner
		Owner: "someone-else",
		Clock: te.clock,
		Store: store,
	})
	require.NoError(t, err)
	assert.Equal(t, testOwner, restored.State().Owner)
	assert.Equal(t, te.AuditCount(), restored.AuditCount())
	require.NoError(t, restored.VerifyAuditChain())

	p, err := restored.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), p.YesVotes)
	require.ErrorIs(
		t,
		restored.VoteOnProposal("bob", id, governance.VoteTypeNo),
		governance.ErrAlreadyVoted,
	)

	// Continuing on the restored engine extends the same chain
	require.NoError(t, restored.RegisterVoter(testOwner, "carol", 0))
	require.NoError(t, restored.VerifyAuditChain())
}

func TestEngineRejectsCorruptSnapshot(t *testing.T) {
	store := &memoryStore{}
	te := newTestEngineWithConfig(t, governance.EngineConfig{Store: store})
	te.mustRegister(t, "alice", 0)
	te.mustRegister(t, "bob", 0)
	snap := store.buildSnapshot()
	snap.Audit[1].Details = "tampered"
	store.snapshot = snap
	_, err := governance.NewEngine(governance.EngineConfig{
		Clock: te.clock,
		Store: store,
	})
	require.ErrorIs(t, err, governance.ErrPersistence)
	require.ErrorIs(t, err, governance.ErrAuditChainBroken)
}

func TestAuditEventsPublished(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, ch := bus.Subscribe(governance.AuditEventType)
	te := newTestEngineWithConfig(t, governance.EngineConfig{EventBus: bus})
	te.mustRegister(t, "alice", 0)
	select {
	case evt := <-ch:
		data, ok := evt.Data.(governance.AuditEvent)
		require.True(t, ok, "unexpected event data type %T", evt.Data)
		assert.Equal(t, "RegisterVoter", data.Entry.Action)
		assert.Equal(t, uint64(0), data.Entry.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for audit event")
	}
}

func TestConcurrentOperationsSerialize(t *testing.T) {
	te := newTestEngine(t)
	voters := []governance.Identity{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, v := range voters {
		wg.Add(1)
		go func(v governance.Identity) {
			defer wg.Done()
			assert.NoError(t, te.RegisterVoter(testOwner, v, 0))
			_, _ = te.GetVoterProfile(v)
		}(v)
	}
	wg.Wait()
	assert.Equal(t, uint64(len(voters)), te.AuditCount())
	require.NoError(t, te.VerifyAuditChain())
	entries := te.AuditEntries(0, 0)
	var got []governance.Identity
	for _, entry := range entries {
		got = append(got, entry.AffectedParty)
	}
	slices.Sort(got)
	assert.Equal(t, voters, got)
}

func TestRejectsInvalidUTF8(t *testing.T) {
	const bad = "Al\xffice"
	testDefs := []struct {
		name    string
		op      func(te *testEngine) error
		wantErr error
	}{
		{
			name:    "voter identity",
			op:      func(te *testEngine) error { return te.RegisterVoter(testOwner, bad, 0) },
			wantErr: governance.ErrUnauthorized,
		},
		{
			name:    "emergency contact",
			op:      func(te *testEngine) error { return te.AddEmergencyContact(testOwner, bad) },
			wantErr: governance.ErrUnauthorized,
		},
		{
			name:    "candidate name",
			op:      func(te *testEngine) error { return te.RegisterCandidate(testOwner, bad, "") },
			wantErr: governance.ErrInvalidCandidate,
		},
		{
			name:    "candidate metadata",
			op:      func(te *testEngine) error { return te.RegisterCandidate(testOwner, "Alice", bad) },
			wantErr: governance.ErrInvalidCandidate,
		},
		{
			name: "proposal title",
			op: func(te *testEngine) error {
				_, err := te.CreateProposal("proposer", bad, "", 50, 1)
				return err
			},
			wantErr: governance.ErrInvalidProposal,
		},
		{
			name: "proposal description",
			op: func(te *testEngine) error {
				_, err := te.CreateProposal("proposer", "Title", bad, 50, 1)
				return err
			},
			wantErr: governance.ErrInvalidProposal,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			store := &memoryStore{}
			te := newTestEngineWithConfig(t, governance.EngineConfig{Store: store})
			te.mustRegister(t, "proposer", 0)
			require.ErrorIs(t, testDef.op(te), testDef.wantErr)
			assert.Len(t, store.changeSets, 1)
			assert.Equal(t, uint64(1), te.AuditCount())
		})
	}

	_, err := governance.NewEngine(governance.EngineConfig{
		Owner: bad,
		Clock: governance.NewManualClock(0, 0),
	})
	require.Error(t, err)
	_, err = governance.NewEngine(governance.EngineConfig{
		Owner:             testOwner,
		EmergencyContacts: []governance.Identity{bad},
		Clock:             governance.NewManualClock(0, 0),
	})
	require.Error(t, err)
}
