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

	"github.com/blinklabs-io/tally/commitment"
)

// The audit log is an arena indexed by entry id. Entries are only ever
// appended by Engine.commit.

// GetAuditEntry returns the entry with the given sequence id
func (e *Engine) GetAuditEntry(id uint64) (AuditEntry, error) {
	e.RLock()
	defer e.RUnlock()
	if id >= uint64(len(e.audit)) {
		return AuditEntry{}, fmt.Errorf("%w: audit entry %d", ErrNotFound, id)
	}
	return e.audit[id], nil
}

// AuditEntries returns up to limit entries starting at from. A zero limit
// returns everything after from.
func (e *Engine) AuditEntries(from uint64, limit uint64) []AuditEntry {
	e.RLock()
	defer e.RUnlock()
	total := uint64(len(e.audit))
	if from >= total {
		return []AuditEntry{}
	}
	end := total
	if limit > 0 && limit < total-from {
		end = from + limit
	}
	return slices.Clone(e.audit[from:end])
}

func (e *Engine) AuditCount() uint64 {
	e.RLock()
	defer e.RUnlock()
	return uint64(len(e.audit))
}

// VerifyAuditChain recomputes every entry hash and checks the links between
// consecutive entries
func (e *Engine) VerifyAuditChain() error {
	e.RLock()
	defer e.RUnlock()
	return e.verifyAuditChain()
}

func (e *Engine) verifyAuditChain() error {
	return VerifyAuditEntries(e.audit)
}

// VerifyAuditEntries checks a contiguous run of audit entries starting at id 0
func VerifyAuditEntries(entries []AuditEntry) error {
	var prev commitment.Digest
	for i, entry := range entries {
		if entry.ID != uint64(i) {
			return fmt.Errorf(
				"%w: entry at position %d has id %d",
				ErrAuditChainBroken,
				i,
				entry.ID,
			)
		}
		if entry.PrevHash != prev {
			return fmt.Errorf("%w: entry %d does not link to its predecessor", ErrAuditChainBroken, entry.ID)
		}
		hash, err := entry.ComputeHash()
		if err != nil {
			return fmt.Errorf("hash audit entry %d: %w", entry.ID, err)
		}
		if hash != entry.TxHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrAuditChainBroken, entry.ID)
		}
		prev = entry.TxHash
	}
	return nil
}
