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
	"math"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/blinklabs-io/tally/commitment"
)

// executionRecord is the CBOR record a proposal's execution hash covers
type executionRecord struct {
	_           struct{} `cbor:",toarray"`
	ID          uint64
	Title       string
	Description string
	Proposer    string
}

// CreateProposal opens a proposal for votingDuration timestamp units and
// returns its id
func (e *Engine) CreateProposal(
	proposer Identity,
	title string,
	description string,
	votingDuration uint64,
	quorumRequired uint64,
) (uint64, error) {
	e.Lock()
	defer e.Unlock()
	id, err := e.createProposal(proposer, title, description, votingDuration, quorumRequired)
	return id, e.observe("CreateProposal", err)
}

func (e *Engine) createProposal(
	proposer Identity,
	title string,
	description string,
	votingDuration uint64,
	quorumRequired uint64,
) (uint64, error) {
	at := e.now()
	profile, ok := e.registeredVoter(proposer)
	if !ok {
		return 0, fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, proposer)
	}
	if profile.ReputationScore < MinProposerReputation {
		return 0, fmt.Errorf(
			"%w: reputation %d below %d",
			ErrUnauthorized,
			profile.ReputationScore,
			MinProposerReputation,
		)
	}
	if err := e.gate(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(title) == "" {
		return 0, fmt.Errorf("%w: empty title", ErrInvalidProposal)
	}
	if !utf8.ValidString(title) || !utf8.ValidString(description) {
		return 0, fmt.Errorf("%w: title and description must be valid UTF-8", ErrInvalidProposal)
	}
	if votingDuration == 0 {
		return 0, fmt.Errorf("%w: zero voting duration", ErrInvalidProposal)
	}
	now := at.Timestamp
	end, carry := bits.Add64(now, votingDuration, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: voting duration %d too large", ErrInvalidProposal, votingDuration)
	}
	cs := e.newChangeSet()
	id := cs.State.ProposalCounter
	cs.State.ProposalCounter++
	execHash, err := commitment.HashRecord(executionRecord{
		ID:          id,
		Title:       title,
		Description: description,
		Proposer:    string(proposer),
	})
	if err != nil {
		return 0, fmt.Errorf("hash proposal: %w", err)
	}
	cs.Proposals = append(cs.Proposals, Proposal{
		ID:             id,
		Title:          title,
		Description:    description,
		Proposer:       proposer,
		CreationTime:   now,
		VotingStart:    now,
		VotingEnd:      end,
		Status:         ProposalStatusActive,
		QuorumRequired: quorumRequired,
		ExecutionHash:  execHash,
	})
	if _, err := e.commit(
		cs,
		at,
		AuditCategoryProposal,
		"CreateProposal",
		proposer,
		"",
		fmt.Sprintf("proposal=%d end=%d quorum=%d", id, end, quorumRequired),
	); err != nil {
		return 0, err
	}
	e.metrics.activeProposals.Inc()
	return id, nil
}

// VoteOnProposal adds the voter's current weight to the chosen tally. Each
// voter may vote once per proposal.
func (e *Engine) VoteOnProposal(
	voter Identity,
	proposalID uint64,
	voteType VoteType,
) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("VoteOnProposal", e.voteOnProposal(voter, proposalID, voteType))
}

func (e *Engine) voteOnProposal(
	voter Identity,
	proposalID uint64,
	voteType VoteType,
) error {
	at := e.now()
	profile, ok := e.registeredVoter(voter)
	if !ok {
		return fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, voter)
	}
	if err := e.gate(); err != nil {
		return err
	}
	if !voteType.Valid() {
		return fmt.Errorf("%w: unknown vote type %d", ErrInvalidProposal, voteType)
	}
	p, ok := e.proposals[proposalID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	if _, ok := e.proposalVotes[proposalVoteKey{proposalID, voter}]; ok {
		return fmt.Errorf(
			"%w: voter %q already voted on proposal %d",
			ErrAlreadyVoted,
			voter,
			proposalID,
		)
	}
	if p.Status != ProposalStatusActive {
		return fmt.Errorf("%w: proposal %d is %s", ErrVotingClosed, proposalID, p.Status)
	}
	now := at.Timestamp
	if now > p.VotingEnd {
		return fmt.Errorf(
			"%w: proposal %d voting ended at %d",
			ErrVotingClosed,
			proposalID,
			p.VotingEnd,
		)
	}
	weight, err := ComputeVoteWeight(profile)
	if err != nil {
		return err
	}
	var bucket *uint64
	switch voteType {
	case VoteTypeYes:
		bucket = &p.YesVotes
	case VoteTypeNo:
		bucket = &p.NoVotes
	case VoteTypeAbstain:
		bucket = &p.AbstainVotes
	}
	if *bucket, err = addWeight(*bucket, weight); err != nil {
		return err
	}
	profile.VoteWeight = weight
	cs := e.newChangeSet()
	cs.stageVoter(profile)
	cs.Proposals = append(cs.Proposals, p)
	cs.ProposalVotes = append(cs.ProposalVotes, ProposalVote{
		ProposalID: proposalID,
		Voter:      voter,
		VoteType:   voteType,
		Timestamp:  now,
		Weight:     weight,
	})
	_, err = e.commit(
		cs,
		at,
		AuditCategoryProposal,
		"VoteOnProposal",
		voter,
		"",
		fmt.Sprintf("proposal=%d vote=%s weight=%d", proposalID, voteType, weight),
	)
	return err
}

// CloseProposal finalizes a proposal whose voting window has ended and
// returns its terminal status
func (e *Engine) CloseProposal(caller Identity, proposalID uint64) (ProposalStatus, error) {
	e.Lock()
	defer e.Unlock()
	status, err := e.closeProposal(caller, proposalID)
	return status, e.observe("CloseProposal", err)
}

func (e *Engine) closeProposal(caller Identity, proposalID uint64) (ProposalStatus, error) {
	at := e.now()
	if _, ok := e.registeredVoter(caller); !ok && !e.isOwner(caller) {
		return ProposalStatusActive, fmt.Errorf(
			"%w: caller %q may not close proposals",
			ErrUnauthorized,
			caller,
		)
	}
	if err := e.gate(); err != nil {
		return ProposalStatusActive, err
	}
	p, ok := e.proposals[proposalID]
	if !ok {
		return ProposalStatusActive, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	if p.Status != ProposalStatusActive {
		return p.Status, fmt.Errorf("%w: proposal %d is %s", ErrVotingClosed, proposalID, p.Status)
	}
	now := at.Timestamp
	if now <= p.VotingEnd {
		return ProposalStatusActive, fmt.Errorf(
			"%w: proposal %d voting ends at %d",
			ErrVotingOpen,
			proposalID,
			p.VotingEnd,
		)
	}
	p.Status = decideProposal(p)
	p.ClosedTime = now
	cs := e.newChangeSet()
	cs.Proposals = append(cs.Proposals, p)
	if _, err := e.commit(
		cs,
		at,
		AuditCategoryProposal,
		"CloseProposal",
		caller,
		p.Proposer,
		fmt.Sprintf(
			"proposal=%d status=%s yes=%d no=%d abstain=%d quorum=%d",
			proposalID,
			p.Status,
			p.YesVotes,
			p.NoVotes,
			p.AbstainVotes,
			p.QuorumRequired,
		),
	); err != nil {
		return ProposalStatusActive, err
	}
	e.metrics.activeProposals.Dec()
	return p.Status, nil
}

// decideProposal returns expired when participation misses quorum, passed
// when yes outweighs no and rejected otherwise
func decideProposal(p Proposal) ProposalStatus {
	participation := saturatingAdd(saturatingAdd(p.YesVotes, p.NoVotes), p.AbstainVotes)
	if participation < p.QuorumRequired {
		return ProposalStatusExpired
	}
	if p.YesVotes > p.NoVotes {
		return ProposalStatusPassed
	}
	return ProposalStatusRejected
}

func saturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
