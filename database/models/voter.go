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

package models

import (
	"github.com/blinklabs-io/tally/database/types"
	"github.com/blinklabs-io/tally/governance"
)

// Voter is a registered voter profile
type Voter struct {
	Voter            string `gorm:"primaryKey;size:255"`
	Delegate         string `gorm:"index;size:255"`
	StakeAmount      types.Uint64
	VoteWeight       types.Uint64
	ReputationScore  types.Uint64
	RegistrationTime types.Uint64
	VotesCast        types.Uint64
	Registered       bool
	CanDelegate      bool
}

func (Voter) TableName() string {
	return "voter"
}

func VoterFromProfile(p governance.VoterProfile) Voter {
	return Voter{
		Voter:            string(p.Voter),
		Delegate:         string(p.Delegate),
		StakeAmount:      types.Uint64(p.StakeAmount),
		VoteWeight:       types.Uint64(p.VoteWeight),
		ReputationScore:  types.Uint64(p.ReputationScore),
		RegistrationTime: types.Uint64(p.RegistrationTime),
		VotesCast:        types.Uint64(p.VotesCast),
		Registered:       p.Registered,
		CanDelegate:      p.CanDelegate,
	}
}

func (v Voter) Profile() governance.VoterProfile {
	return governance.VoterProfile{
		Voter:            governance.Identity(v.Voter),
		Registered:       v.Registered,
		StakeAmount:      uint64(v.StakeAmount),
		VoteWeight:       uint64(v.VoteWeight),
		ReputationScore:  uint64(v.ReputationScore),
		RegistrationTime: uint64(v.RegistrationTime),
		VotesCast:        uint64(v.VotesCast),
		Delegate:         governance.Identity(v.Delegate),
		CanDelegate:      v.CanDelegate,
	}
}

// Delegation records one voter delegating to another
type Delegation struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement:false"`
	Delegator       string `gorm:"index;size:255"`
	Delegate        string `gorm:"index;size:255"`
	DelegationTime  types.Uint64
	RevokedTime     types.Uint64
	WeightDelegated types.Uint64
	Active          bool
}

func (Delegation) TableName() string {
	return "delegation"
}

func DelegationFromGovernance(d governance.Delegation) Delegation {
	return Delegation{
		ID:              d.ID,
		Delegator:       string(d.Delegator),
		Delegate:        string(d.Delegate),
		DelegationTime:  types.Uint64(d.DelegationTime),
		RevokedTime:     types.Uint64(d.RevokedTime),
		WeightDelegated: types.Uint64(d.WeightDelegated),
		Active:          d.Active,
	}
}

func (d Delegation) Governance() governance.Delegation {
	return governance.Delegation{
		ID:              d.ID,
		Delegator:       governance.Identity(d.Delegator),
		Delegate:        governance.Identity(d.Delegate),
		DelegationTime:  uint64(d.DelegationTime),
		Active:          d.Active,
		WeightDelegated: uint64(d.WeightDelegated),
		RevokedTime:     uint64(d.RevokedTime),
	}
}
