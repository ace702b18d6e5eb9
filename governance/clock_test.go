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

package governance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blinklabs-io/tally/governance"
)

func TestManualClockMonotonic(t *testing.T) {
	c := governance.NewManualClock(10, 100)
	c.Advance(2, 3)
	assert.Equal(t, uint64(12), c.BlockHeight())
	assert.Equal(t, uint64(103), c.Timestamp())
	c.Set(5, 200)
	assert.Equal(t, uint64(12), c.BlockHeight())
	assert.Equal(t, uint64(200), c.Timestamp())
}

func TestSystemClock(t *testing.T) {
	c := governance.NewSystemClock(time.Now().Add(-10*time.Second), time.Second)
	assert.GreaterOrEqual(t, c.BlockHeight(), uint64(10))
	assert.Greater(t, c.Timestamp(), uint64(0))

	future := governance.NewSystemClock(time.Now().Add(time.Hour), 0)
	assert.Equal(t, uint64(0), future.BlockHeight())
}
