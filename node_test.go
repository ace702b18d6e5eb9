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

package tally

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/blinklabs-io/tally/governance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeStartServesAPI(t *testing.T) {
	n, err := New(NewConfig(
		WithOwner("owner"),
		WithEmergencyContacts("guardian"),
		WithClock(governance.NewManualClock(10, 100)),
		WithApiListenAddress("127.0.0.1:0"),
	))
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	defer n.Stop() //nolint:errcheck

	require.NotNil(t, n.Engine())
	require.NoError(t, n.Engine().RegisterVoter("owner", "alice", 1000))

	addr := n.ApiAddr()
	require.NotNil(t, addr)
	client := &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	resp, err := client.Get("http://" + addr.String() + "/api/v1/voters/alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile struct {
		Voter       string `json:"voter"`
		StakeAmount uint64 `json:"stakeAmount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "alice", profile.Voter)
	assert.Equal(t, uint64(1000), profile.StakeAmount)

	err = n.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestNodeRunStopsOnContextCancel(t *testing.T) {
	n, err := New(NewConfig(WithOwner("owner")))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, n.Stop())
	// Repeated stops are no-ops
	require.NoError(t, n.Stop())
}

func TestNodeRestartKeepsState(t *testing.T) {
	dataDir := t.TempDir()
	clock := governance.NewManualClock(10, 100)

	first, err := New(NewConfig(
		WithOwner("owner"),
		WithClock(clock),
		WithDatabasePath(dataDir),
	))
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Engine().RegisterVoter("owner", "alice", 500))
	require.NoError(t, first.Engine().RegisterCandidate("owner", "bob", "ballot entry"))
	require.NoError(t, first.Stop())

	// The stored owner wins over the configured one
	second, err := New(NewConfig(
		WithOwner("someone-else"),
		WithClock(clock),
		WithDatabasePath(dataDir),
	))
	require.NoError(t, err)
	require.NoError(t, second.Start(context.Background()))
	defer second.Stop() //nolint:errcheck

	engine := second.Engine()
	assert.Equal(t, governance.Identity("owner"), engine.State().Owner)
	profile, err := engine.GetVoterProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), profile.StakeAmount)
	candidate, err := engine.GetCandidate("bob")
	require.NoError(t, err)
	assert.Equal(t, "ballot entry", candidate.Metadata)
	require.NoError(t, engine.VerifyAuditChain())
}

func TestNodeStartBadPlugin(t *testing.T) {
	n, err := New(NewConfig(
		WithOwner("owner"),
		WithBlobPlugin("does-not-exist"),
	))
	require.NoError(t, err)
	err = n.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
	require.NoError(t, n.Stop())
}
