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
	"strings"
	"unicode/utf8"
)

func (e *Engine) RegisterCandidate(admin Identity, name string, metadata string) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("RegisterCandidate", e.registerCandidate(admin, name, metadata))
}

func (e *Engine) registerCandidate(admin Identity, name string, metadata string) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty candidate name", ErrInvalidCandidate)
	}
	if !utf8.ValidString(name) || !utf8.ValidString(metadata) {
		return fmt.Errorf("%w: name and metadata must be valid UTF-8", ErrInvalidCandidate)
	}
	if _, ok := e.candidates[name]; ok {
		return fmt.Errorf("%w: candidate %q already registered", ErrInvalidCandidate, name)
	}
	cs := e.newChangeSet()
	cs.Candidates = append(cs.Candidates, Candidate{
		Name:             name,
		IsActive:         true,
		Metadata:         metadata,
		RegistrationTime: at.Timestamp,
	})
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"RegisterCandidate",
		admin,
		"",
		"candidate="+name,
	)
	return err
}

// DeactivateCandidate stops a candidate from receiving further ballots. Its
// counts are kept.
func (e *Engine) DeactivateCandidate(admin Identity, name string) error {
	e.Lock()
	defer e.Unlock()
	return e.observe("DeactivateCandidate", e.deactivateCandidate(admin, name))
}

func (e *Engine) deactivateCandidate(admin Identity, name string) error {
	at := e.now()
	if !e.isOwner(admin) {
		return fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, admin)
	}
	if err := e.gate(); err != nil {
		return err
	}
	c, ok := e.candidates[name]
	if !ok {
		return fmt.Errorf("%w: unknown candidate %q", ErrInvalidCandidate, name)
	}
	if !c.IsActive {
		return fmt.Errorf("%w: candidate %q is not active", ErrInvalidCandidate, name)
	}
	c.IsActive = false
	cs := e.newChangeSet()
	cs.Candidates = append(cs.Candidates, c)
	_, err := e.commit(
		cs,
		at,
		AuditCategoryAdmin,
		"DeactivateCandidate",
		admin,
		"",
		"candidate="+name,
	)
	return err
}
