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
	"errors"
	"net/http"

	"github.com/blinklabs-io/tally/governance"
)

// errorStatuses maps engine error kinds to HTTP responses, most specific
// first
var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{governance.ErrPersistence, http.StatusInternalServerError, "persistence_failure"},
	{governance.ErrAuditChainBroken, http.StatusInternalServerError, "audit_chain_broken"},
	{governance.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{governance.ErrNotFound, http.StatusNotFound, "not_found"},
	{governance.ErrProposalNotFound, http.StatusNotFound, "proposal_not_found"},
	{governance.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
	{governance.ErrElectionActive, http.StatusConflict, "election_active"},
	{governance.ErrVotingClosed, http.StatusConflict, "voting_closed"},
	{governance.ErrVotingOpen, http.StatusConflict, "voting_open"},
	{governance.ErrVotingPaused, http.StatusServiceUnavailable, "voting_paused"},
	{governance.ErrEmergencyMode, http.StatusServiceUnavailable, "emergency_mode"},
	{governance.ErrInvalidCandidate, http.StatusBadRequest, "invalid_candidate"},
	{governance.ErrInsufficientStake, http.StatusBadRequest, "insufficient_stake"},
	{governance.ErrDelegationFailed, http.StatusBadRequest, "delegation_failed"},
	{governance.ErrInvalidWeight, http.StatusBadRequest, "invalid_weight"},
	{governance.ErrInvalidProposal, http.StatusBadRequest, "invalid_proposal"},
}

// statusForError returns the HTTP status and error code for an engine error
func statusForError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusBadRequest, "bad_request"
}

// writeEngineError writes the response for a failed engine call
func (a *API) writeEngineError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(
			"engine call failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
		)
	} else {
		a.logger.Debug(
			"engine call rejected",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
		)
	}
	writeError(w, status, code, err.Error())
}
