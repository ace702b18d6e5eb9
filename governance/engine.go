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

// Package governance implements the weighted voting engine: voter registry,
// delegation, commit-reveal candidate ballots, proposals, the audit log and
// emergency controls. Every mutation is serialized by a single lock and
// either commits fully or leaves no trace.
package governance

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/tally/event"
)

type EngineConfig struct {
	Owner             Identity
	EmergencyContacts []Identity
	MinStakeRequired  uint64
	Clock             Clock
	Store             Store
	EventBus          *event.EventBus
	Logger            *slog.Logger
	PromRegistry      prometheus.Registerer
}

type proposalVoteKey struct {
	proposalID uint64
	voter      Identity
}

type Engine struct {
	sync.RWMutex
	logger        *slog.Logger
	clock         Clock
	store         Store
	eventBus      *event.EventBus
	metrics       *engineMetrics
	state         GlobalState
	voters        map[Identity]VoterProfile
	delegations   map[uint64]Delegation
	candidates    map[string]Candidate
	commitments   map[Identity]VoteCommitment
	records       map[Identity]VotingRecord
	proposals     map[uint64]Proposal
	proposalVotes map[proposalVoteKey]ProposalVote
	audit         []AuditEntry
}

// NewEngine creates an engine. When a Store is configured and holds
// previously persisted state, that state takes precedence over the
// owner, contacts and minimum stake in the config.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Clock == nil {
		return nil, errors.New("governance: no clock provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &Engine{
		logger:        cfg.Logger.With("component", "governance"),
		clock:         cfg.Clock,
		store:         cfg.Store,
		eventBus:      cfg.EventBus,
		metrics:       newEngineMetrics(cfg.PromRegistry),
		voters:        make(map[Identity]VoterProfile),
		delegations:   make(map[uint64]Delegation),
		candidates:    make(map[string]Candidate),
		commitments:   make(map[Identity]VoteCommitment),
		records:       make(map[Identity]VotingRecord),
		proposals:     make(map[uint64]Proposal),
		proposalVotes: make(map[proposalVoteKey]ProposalVote),
	}
	if e.store != nil {
		snap, err := e.store.LoadSnapshot()
		if err != nil {
			return nil, fmt.Errorf("%w: load snapshot: %w", ErrPersistence, err)
		}
		if snap != nil && snap.State.Owner != "" {
			if err := e.hydrate(snap); err != nil {
				return nil, err
			}
			e.logger.Info(
				"loaded governance state",
				"voters", len(e.voters),
				"proposals", len(e.proposals),
				"audit_entries", len(e.audit),
			)
			e.metrics.sync(e)
			e.metrics.loadProposals(e)
			return e, nil
		}
	}
	if cfg.Owner == "" {
		return nil, errors.New("governance: no owner provided")
	}
	if !utf8.ValidString(string(cfg.Owner)) {
		return nil, errors.New("governance: owner is not valid UTF-8")
	}
	for _, contact := range cfg.EmergencyContacts {
		if !utf8.ValidString(string(contact)) {
			return nil, errors.New("governance: emergency contact is not valid UTF-8")
		}
	}
	e.state = GlobalState{
		Owner:             cfg.Owner,
		EmergencyContacts: slices.Clone(cfg.EmergencyContacts),
		MinStakeRequired:  cfg.MinStakeRequired,
	}
	e.metrics.sync(e)
	return e, nil
}

func (e *Engine) hydrate(snap *Snapshot) error {
	e.state = snap.State.clone()
	for _, v := range snap.Voters {
		e.voters[v.Voter] = v
	}
	for _, d := range snap.Delegations {
		e.delegations[d.ID] = d
	}
	for _, c := range snap.Candidates {
		e.candidates[c.Name] = c
	}
	for _, c := range snap.Commitments {
		e.commitments[c.Voter] = c
	}
	for _, r := range snap.Records {
		e.records[r.Voter] = r
	}
	for _, p := range snap.Proposals {
		e.proposals[p.ID] = p
	}
	for _, pv := range snap.ProposalVotes {
		e.proposalVotes[proposalVoteKey{pv.ProposalID, pv.Voter}] = pv
	}
	e.audit = slices.Clone(snap.Audit)
	slices.SortFunc(e.audit, func(a, b AuditEntry) int {
		return cmp.Compare(a.ID, b.ID)
	})
	if uint64(len(e.audit)) != e.state.AuditCounter {
		return fmt.Errorf(
			"%w: audit counter %d does not match %d stored entries",
			ErrPersistence,
			e.state.AuditCounter,
			len(e.audit),
		)
	}
	if err := e.verifyAuditChain(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// newChangeSet starts a change set from a copy of the current global state
func (e *Engine) newChangeSet() *ChangeSet {
	return &ChangeSet{
		State: e.state.clone(),
	}
}

// gate enforces the emergency and pause flags on gated operations
func (e *Engine) gate() error {
	if e.state.EmergencyMode {
		return ErrEmergencyMode
	}
	if e.state.VotingPaused {
		return ErrVotingPaused
	}
	return nil
}

func (e *Engine) isOwner(caller Identity) bool {
	return caller != "" && caller == e.state.Owner
}

func (e *Engine) registeredVoter(id Identity) (VoterProfile, bool) {
	if id == "" {
		return VoterProfile{}, false
	}
	p, ok := e.voters[id]
	if !ok || !p.Registered {
		return VoterProfile{}, false
	}
	return p, true
}

// instant is a single clock reading shared by an operation and its audit entry
type instant struct {
	Timestamp   uint64
	BlockHeight uint64
}

func (e *Engine) now() instant {
	return instant{
		Timestamp:   e.clock.Timestamp(),
		BlockHeight: e.clock.BlockHeight(),
	}
}

// commit appends the audit entry for the change set, persists it and then
// applies it in memory. It must be called with the write lock held.
func (e *Engine) commit(
	cs *ChangeSet,
	at instant,
	category AuditCategory,
	action string,
	actor Identity,
	affected Identity,
	details string,
) (uint64, error) {
	entry := AuditEntry{
		ID:            cs.State.AuditCounter,
		Category:      category,
		Action:        action,
		Actor:         actor,
		Timestamp:     at.Timestamp,
		BlockHeight:   at.BlockHeight,
		Details:       details,
		AffectedParty: affected,
	}
	if n := len(e.audit); n > 0 {
		entry.PrevHash = e.audit[n-1].TxHash
	}
	txHash, err := entry.ComputeHash()
	if err != nil {
		return 0, fmt.Errorf("hash audit entry: %w", err)
	}
	entry.TxHash = txHash
	cs.State.AuditCounter++
	cs.Audit = entry
	if e.store != nil {
		if err := e.store.ApplyChangeSet(cs); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	e.apply(cs)
	e.metrics.sync(e)
	e.logger.Debug(
		"committed operation",
		"action", action,
		"actor", string(actor),
		"audit_id", entry.ID,
	)
	if e.eventBus != nil {
		e.eventBus.PublishAsync(
			AuditEventType,
			event.NewEvent(AuditEventType, AuditEvent{Entry: entry}),
		)
	}
	return entry.ID, nil
}

func (e *Engine) apply(cs *ChangeSet) {
	e.state = cs.State.clone()
	for _, v := range cs.Voters {
		e.voters[v.Voter] = v
	}
	for _, d := range cs.Delegations {
		e.delegations[d.ID] = d
	}
	for _, c := range cs.Candidates {
		e.candidates[c.Name] = c
	}
	for _, c := range cs.Commitments {
		e.commitments[c.Voter] = c
	}
	for _, r := range cs.Records {
		e.records[r.Voter] = r
	}
	for _, p := range cs.Proposals {
		e.proposals[p.ID] = p
	}
	for _, pv := range cs.ProposalVotes {
		e.proposalVotes[proposalVoteKey{pv.ProposalID, pv.Voter}] = pv
	}
	e.audit = append(e.audit, cs.Audit)
}

// observe records the outcome of a public operation in the metrics
func (e *Engine) observe(action string, err error) error {
	if err != nil {
		e.metrics.failures.WithLabelValues(action, errorReason(err)).Inc()
		e.logger.Debug(
			"operation rejected",
			"action", action,
			"error", err,
		)
		return err
	}
	e.metrics.operations.WithLabelValues(action).Inc()
	return nil
}
