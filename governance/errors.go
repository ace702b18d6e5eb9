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

import "errors"

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrVotingClosed      = errors.New("voting closed")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrInvalidCandidate  = errors.New("invalid candidate")
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrInsufficientStake = errors.New("insufficient stake")
	ErrDelegationFailed  = errors.New("delegation failed")
	ErrVotingPaused      = errors.New("voting paused")
	ErrEmergencyMode     = errors.New("emergency mode active")
	ErrInvalidWeight     = errors.New("invalid weight")
	ErrVotingOpen        = errors.New("voting still open")
	ErrInvalidProposal   = errors.New("invalid proposal")
	ErrElectionActive    = errors.New("election already active")
	ErrPersistence       = errors.New("persistence failure")
	ErrNotFound          = errors.New("not found")
	ErrAuditChainBroken  = errors.New("audit chain broken")
)

// errorReasons maps each error kind to the label used in failure metrics
var errorReasons = []struct {
	err    error
	reason string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrVotingClosed, "voting_closed"},
	{ErrAlreadyVoted, "already_voted"},
	{ErrInvalidCandidate, "invalid_candidate"},
	{ErrProposalNotFound, "proposal_not_found"},
	{ErrInsufficientStake, "insufficient_stake"},
	{ErrDelegationFailed, "delegation_failed"},
	{ErrVotingPaused, "voting_paused"},
	{ErrEmergencyMode, "emergency_mode"},
	{ErrInvalidWeight, "invalid_weight"},
	{ErrVotingOpen, "voting_open"},
	{ErrInvalidProposal, "invalid_proposal"},
	{ErrElectionActive, "election_active"},
	{ErrPersistence, "persistence"},
	{ErrNotFound, "not_found"},
}

func errorReason(err error) string {
	for _, r := range errorReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
