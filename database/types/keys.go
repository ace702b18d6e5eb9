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

package types

import (
	"encoding/binary"
	"slices"
)

const (
	CommitmentBlobKeyPrefix = "vc"
	AuditBlobKeyPrefix      = "al"
)

func BlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// CommitmentBlobKey returns the key for a voter's sealed ballot
func CommitmentBlobKey(voter string) []byte {
	return slices.Concat([]byte(CommitmentBlobKeyPrefix), []byte(voter))
}

// AuditBlobKey returns the key for an audit entry. Keys sort by entry id.
func AuditBlobKey(id uint64) []byte {
	return slices.Concat(
		[]byte(AuditBlobKeyPrefix),
		BlobKeyUint64ToBytes(id),
	)
}

// AuditBlobKeyId extracts the entry id from an audit blob key
func AuditBlobKeyId(key []byte) (uint64, bool) {
	if len(key) != len(AuditBlobKeyPrefix)+8 {
		return 0, false
	}
	if string(key[:len(AuditBlobKeyPrefix)]) != AuditBlobKeyPrefix {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(AuditBlobKeyPrefix):]), true
}
