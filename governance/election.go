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
	"math/bits"
)

// StartVoting opens a new election round lasting duration timestamp units
func (e *Engine) StartVoting(admin Identity, duration uint64) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("StartVoting", e.startVoting(admin, duration))
}

func (e *Engine) startVoting(admin Identity, duration uint64) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	if e.state.VotingActive {
		return fmt.Errorf("%w: round %d", ErrElectionActive, e.state.ElectionRound)
	}
	if duration == 0 {
		return fmt.Errorf("%w: zero voting duration", ErrVotingClosed)
	}
	now := at.Timestamp
	end, carry := bits.Add64(now, duration, 0)
	if carry != 0 {
		return fmt.Errorf("%w: voting duration %d too large", ErrVotingClosed, duration)
	}
	cs := e.newChangeSet()
	cs.State.VotingActive = true
	cs.State.VotingStart = now
	cs.State.VotingEnd = end
	cs.State.ElectionRound++
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"StartVoting",
		admin,
		"",
		fmt.Sprintf("round=%d start=%d end=%d", cs.State.ElectionRound, now, end),
	)
	return err
}

// EndVoting closes the current election round. Pending commitments may still
// be revealed until their deadlines.
func (e *Engine) EndVoting(admin Identity) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("EndVoting", e.endVoting(admin))
}

func (e *Engine) endVoting(admin Identity) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	if !e.state.VotingActive {
		return fmt.Errorf("%w: no active election", ErrVotingClosed)
	}
	cs := e.newChangeSet()
	cs.State.VotingActive = false
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"EndVoting",
		admin,
		"",
		fmt.Sprintf("round=%d", cs.State.ElectionRound),
	)
	return err
}

// electionOpen reports whether commitments are accepted at this timestamp
func (e *Engine) electionOpen(now uint64) bool {
	return e.state.VotingActive &&
		now >= e.state.VotingStart &&
		now <= e.state.VotingEnd
}
