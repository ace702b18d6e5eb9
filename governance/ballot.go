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

	"github.com/blinklabs-io/tally/commitment"
)

// CommitVote stores the voter's sealed ballot for the current election
// round. An unrevealed commitment is replaced; a revealed one in the same
// round is final.
func (e *Engine) CommitVote(
	voter Identity,
	commitmentHash commitment.Digest,
	revealDeadline uint64,
) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("CommitVote", e.commitVote(voter, commitmentHash, revealDeadline))
}

func (e *Engine) commitVote(
	voter Identity,
	commitmentHash commitment.Digest,
	revealDeadline uint64,
) error {
	at := e.now()
	if _, ok := e.registeredVoter(voter); !ok {
		return fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, voter)
	}
	if err := e.gate(); err != nil {
		return err
	}
	now := at.Timestamp
	if !e.electionOpen(now) {
		return fmt.Errorf("%w: no election open at %d", ErrVotingClosed, now)
	}
	if commitmentHash.IsZero() {
		return fmt.Errorf("%w: empty commitment hash", ErrUnauthorized)
	}
	height := at.BlockHeight
	if revealDeadline < height {
		return fmt.Errorf(
			"%w: reveal deadline %d is before current height %d",
			ErrVotingClosed,
			revealDeadline,
			height,
		)
	}
	if existing, ok := e.commitments[voter]; ok && existing.Revealed &&
		existing.Round == e.state.ElectionRound {
		return fmt.Errorf(
			"%w: voter %q already revealed in round %d",
			ErrAlreadyVoted,
			voter,
			existing.Round,
		)
	}
	cs := e.newChangeSet()
	cs.Commitments = append(cs.Commitments, VoteCommitment{
		Voter:          voter,
		CommitmentHash: commitmentHash,
		RevealDeadline: revealDeadline,
		Round:          e.state.ElectionRound,
		CommitTime:     now,
	})
	_, err := e.commit(
		cs,
		at,
		AuditCategoryVoting,
		"CommitVote",
		voter,
		"",
		fmt.Sprintf(
			"round=%d deadline=%d hash=%s",
			e.state.ElectionRound,
			revealDeadline,
			commitmentHash,
		),
	)
	return err
}

// RevealAndCastVote opens the voter's commitment and counts the ballot with
// the voter's weight at reveal time
func (e *Engine) RevealAndCastVote(
	voter Identity,
	candidate string,
	nonce uint64,
) error {
	e.Lock()
	defer e.Unlock()
	return e.observe(
		"RevealAndCastVote",
		e.revealAndCastVote(voter, candidate, nonce),
	)
}

func (e *Engine) revealAndCastVote(
	voter Identity,
	candidate string,
	nonce uint64,
) error {
	at := e.now()
	profile, ok := e.registeredVoter(voter)
	if !ok {
		return fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, voter)
	}
	if err := e.gate(); err != nil {
		return err
	}
	vc, ok := e.commitments[voter]
	if !ok {
		return fmt.Errorf("%w: voter %q has no commitment", ErrUnauthorized, voter)
	}
	// A mismatch is reported before anything about the candidate is checked
	if !commitment.Verify(vc.CommitmentHash, candidate, nonce) {
		return fmt.Errorf("%w: commitment mismatch", ErrUnauthorized)
	}
	if vc.Revealed {
		return fmt.Errorf("%w: voter %q already revealed", ErrAlreadyVoted, voter)
	}
	if vc.Round != e.state.ElectionRound {
		return fmt.Errorf(
			"%w: commitment belongs to round %d, current round is %d",
			ErrVotingClosed,
			vc.Round,
			e.state.ElectionRound,
		)
	}
	height := at.BlockHeight
	if height > vc.RevealDeadline {
		return fmt.Errorf(
			"%w: reveal deadline %d passed at height %d",
			ErrVotingClosed,
			vc.RevealDeadline,
			height,
		)
	}
	cand, ok := e.candidates[candidate]
	if !ok {
		return fmt.Errorf("%w: unknown candidate %q", ErrInvalidCandidate, candidate)
	}
	if !cand.IsActive {
		return fmt.Errorf("%w: candidate %q is not active", ErrInvalidCandidate, candidate)
	}
	weight, err := ComputeVoteWeight(profile)
	if err != nil {
		return err
	}
	cs := e.newChangeSet()
	if cand.VoteCount, err = addWeight(cand.VoteCount, 1); err != nil {
		return err
	}
	if cand.WeightedVoteCount, err = addWeight(cand.WeightedVoteCount, weight); err != nil {
		return err
	}
	if cs.State.TotalVotes, err = addWeight(cs.State.TotalVotes, 1); err != nil {
		return err
	}
	if cs.State.TotalWeightedVotes, err = addWeight(cs.State.TotalWeightedVotes, weight); err != nil {
		return err
	}
	if profile.VotesCast, err = addWeight(profile.VotesCast, 1); err != nil {
		return err
	}
	profile.VoteWeight = weight
	vc.Revealed = true
	cs.stageVoter(profile)
	cs.Candidates = append(cs.Candidates, cand)
	cs.Commitments = append(cs.Commitments, vc)
	cs.Records = append(cs.Records, VotingRecord{
		Voter:        voter,
		Candidate:    candidate,
		Timestamp:    at.Timestamp,
		BlockHeight:  height,
		VoteWeight:   weight,
		DelegatedBy:  profile.Delegate,
		VoteHash:     vc.CommitmentHash,
		IdentityHash: commitment.HashBytes([]byte(voter)),
		Round:        vc.Round,
	})
	_, err = e.commit(
		cs,
		at,
		AuditCategoryVoting,
		"RevealAndCastVote",
		voter,
		"",
		fmt.Sprintf("candidate=%s weight=%d round=%d", candidate, weight, vc.Round),
	)
	return err
}
