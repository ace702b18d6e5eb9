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
	"sync"
	"time"
)

// Clock supplies the two monotonic counters the engine gates on. Reveal
// deadlines are expressed in block height, election and proposal windows
// in timestamp units.
type Clock interface {
	BlockHeight() uint64
	Timestamp() uint64
}

// ManualClock is a Clock that only moves when told to
type ManualClock struct {
	mu          sync.Mutex
	blockHeight uint64
	timestamp   uint64
}

func NewManualClock(blockHeight, timestamp uint64) *ManualClock {
	return &ManualClock{
		blockHeight: blockHeight,
		timestamp:   timestamp,
	}
}

func (c *ManualClock) BlockHeight() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockHeight
}

func (c *ManualClock) Timestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timestamp
}

// Advance moves both counters forward
func (c *ManualClock) Advance(blocks, seconds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockHeight += blocks
	c.timestamp += seconds
}

// Set moves the clock to the given position. Values behind the current
// position are ignored so the counters stay monotonic.
func (c *ManualClock) Set(blockHeight, timestamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blockHeight > c.blockHeight {
		c.blockHeight = blockHeight
	}
	if timestamp > c.timestamp {
		c.timestamp = timestamp
	}
}

// SystemClock derives block height from wall time since a genesis instant,
// one block per BlockInterval. Timestamp is Unix seconds.
type SystemClock struct {
	genesis       time.Time
	blockInterval time.Duration
}

func NewSystemClock(genesis time.Time, blockInterval time.Duration) *SystemClock {
	if blockInterval <= 0 {
		blockInterval = time.Second
	}
	return &SystemClock{
		genesis:       genesis,
		blockInterval: blockInterval,
	}
}

func (c *SystemClock) BlockHeight() uint64 {
	elapsed := time.Since(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.blockInterval)
}

func (c *SystemClock) Timestamp() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}
