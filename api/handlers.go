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
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/blinklabs-io/tally/governance"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// decodeJSON reads a request body into dst. It writes the error response
// and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(
				w,
				http.StatusRequestEntityTooLarge,
				"payload_too_large",
				"request body too large",
			)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

// pathUint64 parses a numeric path value. It writes the error response and
// returns false on failure.
func pathUint64(
	w http.ResponseWriter,
	r *http.Request,
	name string,
) (uint64, bool) {
	val, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid_path",
			"invalid "+name+": "+r.PathValue(name),
		)
		return 0, false
	}
	return val, true
}

func pathIdentity(r *http.Request, name string) governance.Identity {
	return governance.Identity(r.PathValue(name))
}

func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	stats := a.engine.GetVotingStats()
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy:     true,
		AuditEntries:  a.engine.AuditCount(),
		EmergencyMode: stats.EmergencyMode,
	})
}

// Voter registry

func (a *API) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req RegisterVoterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.RegisterVoter(caller, req.Voter, req.InitialStake); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	a.writeVoter(w, r, req.Voter, http.StatusCreated)
}

func (a *API) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	a.writeVoter(w, r, pathIdentity(r, "id"), http.StatusOK)
}

func (a *API) writeVoter(
	w http.ResponseWriter,
	r *http.Request,
	voter governance.Identity,
	status int,
) {
	profile, err := a.engine.GetVoterProfile(voter)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	resp := VoterResponse{VoterProfile: profile}
	// Unregistered profiles have no current weight
	if weight, err := a.engine.VoteWeight(voter); err == nil {
		resp.CurrentWeight = weight
	}
	writeJSON(w, status, resp)
}

func (a *API) handleUpdateReputation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req UpdateReputationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	voter := pathIdentity(r, "id")
	score, err := a.engine.UpdateReputation(caller, voter, req.Delta)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReputationResponse{
		Voter:           voter,
		ReputationScore: score,
	})
}

func (a *API) handleUpdateStake(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req UpdateStakeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	voter := pathIdentity(r, "id")
	if err := a.engine.UpdateStake(caller, voter, req.Stake); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	a.writeVoter(w, r, voter, http.StatusOK)
}

func (a *API) handleSetDelegationPermission(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req DelegationPermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	voter := pathIdentity(r, "id")
	if err := a.engine.SetDelegationPermission(caller, voter, req.Allowed); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	a.writeVoter(w, r, voter, http.StatusOK)
}

func (a *API) handleSetMinStake(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req MinStakeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.SetMinStake(caller, req.Amount); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.GetVotingStats())
}

// Delegation

func (a *API) handleDelegate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req DelegateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := a.engine.DelegateVote(caller, req.DelegateTo)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (a *API) handleGetDelegation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	d, err := a.engine.GetDelegation(id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	if err := a.engine.RevokeDelegation(caller, id); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Candidates and ballots

func (a *API) handleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req RegisterCandidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.RegisterCandidate(caller, req.Name, req.Metadata); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	c, err := a.engine.GetCandidate(req.Name)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleListCandidates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.ListCandidates())
}

func (a *API) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := a.engine.GetCandidate(r.PathValue("name"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleDeactivateCandidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := a.engine.DeactivateCandidate(caller, r.PathValue("name")); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleStartElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req StartElectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.StartVoting(caller, req.Duration); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.GetVotingStats())
}

func (a *API) handleEndElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := a.engine.EndVoting(caller); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.GetVotingStats())
}

func (a *API) handleCommitBallot(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req CommitBallotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.CommitVote(caller, req.CommitmentHash, req.RevealDeadline); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	c, err := a.engine.GetCommitment(caller)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleRevealBallot(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req RevealBallotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.RevealAndCastVote(caller, req.Candidate, req.Nonce); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	record, err := a.engine.GetVotingRecord(caller)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	c, err := a.engine.GetCommitment(pathIdentity(r, "voter"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := a.engine.GetVotingRecord(pathIdentity(r, "voter"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Proposals

func (a *API) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := a.engine.CreateProposal(
		caller,
		req.Title,
		req.Description,
		req.VotingDuration,
		req.QuorumRequired,
	)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	p, err := a.engine.GetProposal(id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleListProposals(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pagination", err.Error())
		return
	}
	proposals := a.engine.ListProposals()
	SetPaginationHeaders(w, len(proposals), params)
	writeJSON(w, http.StatusOK, Paginate(proposals, params))
}

func (a *API) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	p, err := a.engine.GetProposal(id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleVoteOnProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	var req ProposalVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.VoteOnProposal(caller, id, req.Vote); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	vote, err := a.engine.GetProposalVote(id, caller)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

func (a *API) handleGetProposalVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	vote, err := a.engine.GetProposalVote(id, pathIdentity(r, "voter"))
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (a *API) handleCloseProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	status, err := a.engine.CloseProposal(caller, id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CloseProposalResponse{ID: id, Status: status})
}

// Emergency controls

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.handleEmergencyCall(w, r, a.engine.PauseVoting)
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.handleEmergencyCall(w, r, a.engine.ResumeVoting)
}

func (a *API) handleActivateEmergency(w http.ResponseWriter, r *http.Request) {
	a.handleEmergencyCall(w, r, a.engine.ActivateEmergencyMode)
}

func (a *API) handleEmergencyCall(
	w http.ResponseWriter,
	r *http.Request,
	fn func(governance.Identity) error,
) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := fn(caller); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.GetVotingStats())
}

func (a *API) handleAddContact(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req EmergencyContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.engine.AddEmergencyContact(caller, req.Contact); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := a.engine.RemoveEmergencyContact(caller, pathIdentity(r, "id")); err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats and audit

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.GetVotingStats())
}

func (a *API) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint64(w, r, "id")
	if !ok {
		return
	}
	entry, err := a.engine.GetAuditEntry(id)
	if err != nil {
		a.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleListAudit handles GET /api/v1/audit. The optional actor query
// parameter selects entries an identity acted in or was affected by.
func (a *API) handleListAudit(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pagination", err.Error())
		return
	}
	if actor := r.URL.Query().Get("actor"); actor != "" {
		entries, err := a.auditTrail(governance.Identity(actor))
		if err != nil {
			a.logger.Error(
				"failed to query audit trail",
				"error", err,
				"actor", actor,
				"request_id", RequestID(r.Context()),
			)
			writeError(
				w,
				http.StatusInternalServerError,
				"internal_error",
				"failed to query audit trail",
			)
			return
		}
		SetPaginationHeaders(w, len(entries), params)
		writeJSON(w, http.StatusOK, Paginate(entries, params))
		return
	}
	total := a.engine.AuditCount()
	SetPaginationHeaders(w, int(total), params) //nolint:gosec
	start := uint64(params.Page-1) * uint64(params.Count)
	if start >= total {
		writeJSON(w, http.StatusOK, []governance.AuditEntry{})
		return
	}
	var entries []governance.AuditEntry
	if params.Order == PaginationOrderDesc {
		hi := total - start
		lo := hi - min(hi, uint64(params.Count))
		entries = a.engine.AuditEntries(lo, hi-lo)
		slices.Reverse(entries)
	} else {
		entries = a.engine.AuditEntries(start, uint64(params.Count))
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) auditTrail(
	identity governance.Identity,
) ([]governance.AuditEntry, error) {
	if a.config.AuditIndex != nil {
		return a.config.AuditIndex.AuditTrail(identity)
	}
	var ret []governance.AuditEntry
	for _, entry := range a.engine.AuditEntries(0, 0) {
		if entry.Actor == identity || entry.AffectedParty == identity {
			ret = append(ret, entry)
		}
	}
	return ret, nil
}

func (a *API) handleVerifyAudit(w http.ResponseWriter, _ *http.Request) {
	resp := AuditVerifyResponse{
		Valid:   true,
		Entries: a.engine.AuditCount(),
	}
	if err := a.engine.VerifyAuditChain(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
