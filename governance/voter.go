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
	"unicode/utf8"
)

// RegisterVoter creates a voter profile. Only the owner may register voters.
func (e *Engine) RegisterVoter(
	admin Identity,
	voter Identity,
	initialStake uint64,
) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("RegisterVoter", e.registerVoter(admin, voter, initialStake))
}

func (e *Engine) registerVoter(
	admin Identity,
	voter Identity,
	initialStake uint64,
) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	if voter == "" {
		return fmt.Errorf("%w: empty voter identity", ErrUnauthorized)
	}
	if !utf8.ValidString(string(voter)) {
		return fmt.Errorf("%w: voter identity is not valid UTF-8", ErrUnauthorized)
	}
	if _, ok := e.voters[voter]; ok {
		return fmt.Errorf("%w: voter %q already registered", ErrUnauthorized, voter)
	}
	if initialStake < e.state.MinStakeRequired {
		return fmt.Errorf(
			"%w: stake %d below minimum %d",
			ErrInsufficientStake,
			initialStake,
			e.state.MinStakeRequired,
		)
	}
	profile := VoterProfile{
		Voter:            voter,
		Registered:       true,
		StakeAmount:      initialStake,
		VoteWeight:       registrationWeight(initialStake),
		ReputationScore:  InitialReputation,
		RegistrationTime: at.Timestamp,
		CanDelegate:      true,
	}
	cs := e.newChangeSet()
	cs.stageVoter(profile)
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"RegisterVoter",
		admin,
		voter,
		fmt.Sprintf("stake=%d weight=%d", initialStake, profile.VoteWeight),
	)
	return err
}

// UpdateReputation applies a signed delta to the voter's reputation,
// clamping at zero, and returns the new score
func (e *Engine) UpdateReputation(
	admin Identity,
	voter Identity,
	delta int64,
) (uint64, error) {
	e.Lock()
	defer e.Unlock()
	score, err := e.updateReputation(admin, voter, delta)
	return score, e.observe("UpdateReputation", err)
}

func (e *Engine) updateReputation(
	admin Identity,
	voter Identity,
	delta int64,
) (uint64, error) {
	at := e.now()
	if !e.isOwner(admin) {
		return 0, fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return 0, err
	}
	profile, ok := e.registeredVoter(voter)
	if !ok {
		return 0, fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, voter)
	}
	score := profile.ReputationScore
	if delta >= 0 {
		var err error
		score, err = addWeight(score, uint64(delta))
		if err != nil {
			return 0, err
		}
	} else {
		// Negate without overflowing on math.MinInt64
		decrease := uint64(-(delta + 1)) + 1
		if decrease >= score {
			score = 0
		} else {
			score -= decrease
		}
	}
	profile.ReputationScore = score
	cs := e.newChangeSet()
	cs.stageVoter(profile)
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"UpdateReputation",
		admin,
		voter,
		fmt.Sprintf("delta=%d reputation=%d", delta, score),
	)
	if err != nil {
		return 0, err
	}
	return score, nil
}

// UpdateStake replaces the voter's stake amount. The stored vote weight is
// refreshed on the voter's next cast.
func (e *Engine) UpdateStake(
	admin Identity,
	voter Identity,
	newStake uint64,
) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("UpdateStake", e.updateStake(admin, voter, newStake))
}

func (e *Engine) updateStake(
	admin Identity,
	voter Identity,
	newStake uint64,
) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	profile, ok := e.registeredVoter(voter)
	if !ok {
		return fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, voter)
	}
	if newStake < e.state.MinStakeRequired {
		return fmt.Errorf(
			"%w: stake %d below minimum %d",
			ErrInsufficientStake,
			newStake,
			e.state.MinStakeRequired,
		)
	}
	oldStake := profile.StakeAmount
	profile.StakeAmount = newStake
	cs := e.newChangeSet()
	cs.stageVoter(profile)
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"UpdateStake",
		admin,
		voter,
		fmt.Sprintf("stake=%d previous=%d", newStake, oldStake),
	)
	return err
}

// SetDelegationPermission controls whether the voter may delegate
func (e *Engine) SetDelegationPermission(
	admin Identity,
	voter Identity,
	allowed bool,
) error {
	e.Lock()
	defer e.Unlock()
	return e.observe(
		"SetDelegationPermission",
		e.setDelegationPermission(admin, voter, allowed),
	)
}

func (e *Engine) setDelegationPermission(
	admin Identity,
	voter Identity,
	allowed bool,
) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	profile, ok := e.registeredVoter(voter)
	if !ok {
		return fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, voter)
	}
	profile.CanDelegate = allowed
	cs := e.newChangeSet()
	cs.stageVoter(profile)
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"SetDelegationPermission",
		admin,
		voter,
		fmt.Sprintf("canDelegate=%t", allowed),
	)
	return err
}

// SetMinStake changes the minimum stake for future registrations and stake
// updates. Existing profiles are unaffected.
func (e *Engine) SetMinStake(admin Identity, amount uint64) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("SetMinStake", e.setMinStake(admin, amount))
}

func (e *Engine) setMinStake(admin Identity, amount uint64) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	cs := e.newChangeSet()
	cs.State.MinStakeRequired = amount
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"SetMinStake",
		admin,
		"",
		fmt.Sprintf("minStake=%d", amount),
	)
	return err
}

// updateProfileDelegate stages a change to the voter's delegate pointer.
// It is the only path that writes VoterProfile.Delegate.
func (e *Engine) updateProfileDelegate(
	cs *ChangeSet,
	voter Identity,
	delegate Identity,
) error {
	profile, ok := e.registeredVoter(voter)
	if !ok {
		return fmt.Errorf("%w: voter %q is not registered", ErrDelegationFailed, voter)
	}
	profile.Delegate = delegate
	cs.stageVoter(profile)
	return nil
}
