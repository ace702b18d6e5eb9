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

const (
	StakeWeightDivisor      = 100000
	ReputationWeightDivisor = 10
	InitialReputation       = 100
	MinProposerReputation   = 50
)

// ComputeVoteWeight returns 1 + stake/100000 + reputation/10 using floor
// division
func ComputeVoteWeight(p VoterProfile) (uint64, error) {
	w, err := addWeight(1, p.StakeAmount/StakeWeightDivisor)
	if err != nil {
		return 0, err
	}
	return addWeight(w, p.ReputationScore/ReputationWeightDivisor)
}

// registrationWeight is the weight stored on a freshly registered profile
func registrationWeight(stake uint64) uint64 {
	return 1 + stake/StakeWeightDivisor
}

// addWeight adds two weights, failing on overflow
func addWeight(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrInvalidWeight, a, b)
	}
	return sum, nil
}

// VoteWeight returns the weight the voter would cast right now
func (e *Engine) VoteWeight(voter Identity) (uint64, error) {
	e.RLock()
	defer e.RUnlock()
	p, ok := e.registeredVoter(voter)
	if !ok {
		return 0, fmt.Errorf("%w: voter %q", ErrNotFound, voter)
	}
	return ComputeVoteWeight(p)
}
