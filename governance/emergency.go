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
	"slices"
	"unicode/utf8"
)

// Emergency operations are never gated by the pause or emergency flags

func (e *Engine) isEmergencyContact(id Identity) bool {
	return id != "" && slices.Contains(e.state.EmergencyContacts, id)
}

func (e *Engine) PauseVoting(caller Identity) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("PauseVoting", e.pauseVoting(caller))
}

func (e *Engine) pauseVoting(caller Identity) error {
	at := e.now()
	if !e.isOwner(caller) && !e.isEmergencyContact(caller) {
		return fmt.Errorf("%w: caller %q may not pause voting", ErrUnauthorized, caller)
	}
	cs := e.newChangeSet()
	cs.State.VotingPaused = true
	_, err := e.commit(cs, at, AuditCategoryAdmin, "PauseVoting", caller, "", "votingPaused=true")
	return err
}

// ResumeVoting clears both the pause and emergency flags
func (e *Engine) ResumeVoting(caller Identity) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("ResumeVoting", e.resumeVoting(caller))
}

func (e *Engine) resumeVoting(caller Identity) error {
	at := e.now()
	if !e.isOwner(caller) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, caller)
	}
	cs := e.newChangeSet()
	cs.State.VotingPaused = false
	cs.State.EmergencyMode = false
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"ResumeVoting",
		caller,
		"",
		"votingPaused=false emergencyMode=false",
	)
	return err
}

// ActivateEmergencyMode sets both flags. Only the owner can lift it.
func (e *Engine) ActivateEmergencyMode(caller Identity) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("ActivateEmergencyMode", e.activateEmergencyMode(caller))
}

func (e *Engine) activateEmergencyMode(caller Identity) error {
	at := e.now()
	if !e.isOwner(caller) && !e.isEmergencyContact(caller) {
		return fmt.Errorf(
			"%w: caller %q may not activate emergency mode",
			ErrUnauthorized,
			caller,
		)
	}
	cs := e.newChangeSet()
	cs.State.EmergencyMode = true
	cs.State.VotingPaused = true
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"ActivateEmergencyMode",
		caller,
		"",
		"votingPaused=true emergencyMode=true",
	)
	return err
}

// AddEmergencyContact grants contact the right to pause voting and raise
// emergency mode. Adding an existing contact is recorded but changes nothing.
func (e *Engine) AddEmergencyContact(caller Identity, contact Identity) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("AddEmergencyContact", e.addEmergencyContact(caller, contact))
}

func (e *Engine) addEmergencyContact(caller Identity, contact Identity) error {
	at := e.now()
	if !e.isOwner(caller) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, caller)
	}
	if contact == "" {
		return fmt.Errorf("%w: empty contact identity", ErrUnauthorized)
	}
	if !utf8.ValidString(string(contact)) {
		return fmt.Errorf("%w: contact identity is not valid UTF-8", ErrUnauthorized)
	}
	cs := e.newChangeSet()
	if !slices.Contains(cs.State.EmergencyContacts, contact) {
		cs.State.EmergencyContacts = append(cs.State.EmergencyContacts, contact)
	}
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"AddEmergencyContact",
		caller,
		contact,
		"",
	)
	return err
}

func (e *Engine) RemoveEmergencyContact(caller Identity, contact Identity) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("RemoveEmergencyContact", e.removeEmergencyContact(caller, contact))
}

func (e *Engine) removeEmergencyContact(caller Identity, contact Identity) error {
	at := e.now()
	if !e.isOwner(caller) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, caller)
	}
	if !e.isEmergencyContact(contact) {
		return fmt.Errorf("%w: emergency contact %q", ErrNotFound, contact)
	}
	cs := e.newChangeSet()
	cs.State.EmergencyContacts = slices.DeleteFunc(
		cs.State.EmergencyContacts,
		func(id Identity) bool { return id == contact },
	)
	cs.RemovedContacts = append(cs.RemovedContacts, contact)
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"RemoveEmergencyContact",
		caller,
		contact,
		"",
	)
	return err
}
