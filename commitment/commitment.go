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

// Package commitment provides the digest primitive used for ballot
// commitments, audit entry hashes and other identifiers. Records are
// encoded as deterministic CBOR and hashed with BLAKE2b-256.
package commitment

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// Size is the length of a digest in bytes
const Size = blake2b.Size256

var ErrInvalidDigest = errors.New("invalid digest")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Digests must be reproducible from the record alone
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("commitment: failed to build CBOR encoder: %s", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("commitment: failed to build CBOR decoder: %s", err))
	}
}

// Digest is a BLAKE2b-256 hash
type Digest [Size]byte

// Ballot is the record a voter commits to before the reveal phase
type Ballot struct {
	Candidate string `cbor:"candidate"`
	Nonce     uint64 `cbor:"nonce"`
}

// Hash returns the commitment for the given candidate and nonce
func Hash(candidate string, nonce uint64) Digest {
	// Encoding a struct of a string and an integer cannot fail
	d, _ := HashRecord(Ballot{Candidate: candidate, Nonce: nonce})
	return d
}

// Verify reports whether the candidate and nonce open the commitment
func Verify(expected Digest, candidate string, nonce uint64) bool {
	actual := Hash(candidate, nonce)
	return subtle.ConstantTimeCompare(expected[:], actual[:]) == 1
}

// HashRecord encodes the record as deterministic CBOR and hashes it
func HashRecord(record any) (Digest, error) {
	data, err := Encode(record)
	if err != nil {
		return Digest{}, err
	}
	return HashBytes(data), nil
}

// HashBytes hashes raw bytes
func HashBytes(data []byte) Digest {
	return Digest(blake2b.Sum256(data))
}

// Encode returns the deterministic CBOR encoding of v
func Encode(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// Decode decodes CBOR data into v
func Decode(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// DigestFromBytes copies a 32-byte slice into a Digest
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidDigest,
			Size,
			len(b),
		)
	}
	copy(d[:], b)
	return d, nil
}

// ParseDigest decodes a hex string into a Digest
func ParseDigest(s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %w", ErrInvalidDigest, err)
	}
	return DigestFromBytes(b)
}

func (d Digest) Bytes() []byte {
	return d[:]
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText encodes the digest as hex
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	tmp, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = tmp
	return nil
}
