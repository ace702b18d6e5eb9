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
)

// DelegateVote records a delegation from delegator to delegateTo and
// returns its id. The weight snapshot is bookkeeping only and is never added
// to the delegate's ballots or proposal votes.
func (e *Engine) DelegateVote(
	delegator Identity,
	delegateTo Identity,
) (uint64, error) {
	e.Lock()
	defer e.Unlock()
	id, err := e.delegateVote(delegator, delegateTo)
	return id, e.observe("DelegateVote", err)
}

func (e *Engine) delegateVote(
	delegator Identity,
	delegateTo Identity,
) (uint64, error) {
	at := e.now()
	profile, ok := e.registeredVoter(delegator)
	if !ok {
		return 0, fmt.Errorf("%w: voter %q is not registered", ErrUnauthorized, delegator)
	}
	if err := e.gate(); err != nil {
		return 0, err
	}
	if !profile.CanDelegate {
		return 0, fmt.Errorf("%w: voter %q may not delegate", ErrDelegationFailed, delegator)
	}
	if delegateTo == delegator {
		return 0, fmt.Errorf("%w: cannot delegate to self", ErrDelegationFailed)
	}
	if _, ok := e.registeredVoter(delegateTo); !ok {
		return 0, fmt.Errorf(
			"%w: delegate %q is not registered",
			ErrDelegationFailed,
			delegateTo,
		)
	}
	if profile.Delegate != "" {
		return 0, fmt.Errorf(
			"%w: voter %q already delegates to %q",
			ErrDelegationFailed,
			delegator,
			profile.Delegate,
		)
	}
	weight, err := ComputeVoteWeight(profile)
	if err != nil {
		return 0, err
	}
	cs := e.newChangeSet()
	id := cs.State.DelegateCounter
	cs.State.DelegateCounter++
	cs.Delegations = append(cs.Delegations, Delegation{
		ID:              id,
		Delegator:       delegator,
		Delegate:        delegateTo,
		DelegationTime:  at.Timestamp,
		Active:          true,
		WeightDelegated: weight,
	})
	if err := e.updateProfileDelegate(cs, delegator, delegateTo); err != nil {
		return 0, err
	}
	if _, err := e.commit(
		cs,
		at,
		AuditCategoryDelegation,
		"DelegateVote",
		delegator,
		delegateTo,
		fmt.Sprintf("delegation=%d weight=%d", id, weight),
	); err != nil {
		return 0, err
	}
	return id, nil
}

// RevokeDelegation deactivates a delegation. Only its delegator may revoke it.
func (e *Engine) RevokeDelegation(caller Identity, delegationID uint64) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("RevokeDelegation", e.revokeDelegation(caller, delegationID))
}

func (e *Engine) revokeDelegation(caller Identity, delegationID uint64) error {
	at := e.now()
	d, ok := e.delegations[delegationID]
	if !ok {
		return fmt.Errorf("%w: unknown delegation %d", ErrDelegationFailed, delegationID)
	}
	if caller == "" || caller != d.Delegator {
		return fmt.Errorf(
			"%w: caller %q is not the delegator of delegation %d",
			ErrUnauthorized,
			caller,
			delegationID,
		)
	}
	if err := e.gate(); err != nil {
		return err
	}
	if !d.Active {
		return fmt.Errorf("%w: delegation %d is not active", ErrDelegationFailed, delegationID)
	}
	d.Active = false
	d.RevokedTime = at.Timestamp
	cs := e.newChangeSet()
	cs.Delegations = append(cs.Delegations, d)
	if err := e.updateProfileDelegate(cs, d.Delegator, ""); err != nil {
		return err
	}
	_, err := e.commit(
		cs,
		at,
		AuditCategoryDelegation,
		"RevokeDelegation",
		caller,
		d.Delegate,
		fmt.Sprintf("delegation=%d", delegationID),
	)
	return err
}
