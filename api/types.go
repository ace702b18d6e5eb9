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

package api

import (
	"github.com/blinklabs-io/tally/commitment"
	"github.com/blinklabs-io/tally/governance"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy     bool   `json:"is_healthy"`
	AuditEntries  uint64 `json:"audit_entries"`
	EmergencyMode bool   `json:"emergency_mode"`
}

type RegisterVoterRequest struct {
	Voter        governance.Identity `json:"voter"`
	InitialStake uint64              `json:"initialStake"`
}

type UpdateReputationRequest struct {
	Delta int64 `json:"delta"`
}

type ReputationResponse struct {
	Voter           governance.Identity `json:"voter"`
	ReputationScore uint64              `json:"reputationScore"`
}

type UpdateStakeRequest struct {
	Stake uint64 `json:"stake"`
}

type DelegationPermissionRequest struct {
	Allowed bool `json:"allowed"`
}

type MinStakeRequest struct {
	Amount uint64 `json:"amount"`
}

// VoterResponse is a voter profile plus the weight it would vote with now
type VoterResponse struct {
	governance.VoterProfile
	CurrentWeight uint64 `json:"currentWeight"`
}

type DelegateRequest struct {
	DelegateTo governance.Identity `json:"delegateTo"`
}

type IDResponse struct {
	ID uint64 `json:"id"`
}

type RegisterCandidateRequest struct {
	Name     string `json:"name"`
	Metadata string `json:"metadata"`
}

type StartElectionRequest struct {
	Duration uint64 `json:"duration"`
}

type CommitBallotRequest struct {
	CommitmentHash commitment.Digest `json:"commitmentHash"`
	RevealDeadline uint64            `json:"revealDeadline"`
}

type RevealBallotRequest struct {
	Candidate string `json:"candidate"`
	Nonce     uint64 `json:"nonce"`
}

type CreateProposalRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	VotingDuration uint64 `json:"votingDuration"`
	QuorumRequired uint64 `json:"quorumRequired"`
}

type ProposalVoteRequest struct {
	Vote governance.VoteType `json:"vote"`
}

type CloseProposalResponse struct {
	ID     uint64                    `json:"id"`
	Status governance.ProposalStatus `json:"status"`
}

type EmergencyContactRequest struct {
	Contact governance.Identity `json:"contact"`
}

type AuditVerifyResponse struct {
	Valid   bool   `json:"valid"`
	Entries uint64 `json:"entries"`
	Error   string `json:"error,omitempty"`
}
