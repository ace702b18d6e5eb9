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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	operations         *prometheus.CounterVec
	failures           *prometheus.CounterVec
	auditEntries       prometheus.Gauge
	totalVotes         prometheus.Gauge
	totalWeightedVotes prometheus.Gauge
	voters             prometheus.Gauge
	activeProposals    prometheus.Gauge
	electionRound      prometheus.Gauge
	votingPaused       prometheus.Gauge
	emergencyMode      prometheus.Gauge
}

// newEngineMetrics creates the engine collectors. A nil registry yields
// working but unregistered collectors.
func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &engineMetrics{
		operations: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_governance_operations_total",
				Help: "committed governance operations",
			},
			[]string{"action"},
		),
		failures: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_governance_operation_failures_total",
				Help: "rejected governance operations",
			},
			[]string{"action", "reason"},
		),
		auditEntries: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_audit_entries",
			Help: "number of audit log entries",
		}),
		totalVotes: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_votes",
			Help: "revealed candidate ballots",
		}),
		totalWeightedVotes: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_weighted_votes",
			Help: "sum of revealed ballot weights",
		}),
		voters: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_voters",
			Help: "registered voters",
		}),
		activeProposals: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_active_proposals",
			Help: "proposals not yet closed",
		}),
		electionRound: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_election_round",
			Help: "current election round",
		}),
		votingPaused: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_voting_paused",
			Help: "1 when voting is paused",
		}),
		emergencyMode: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "tally_governance_emergency_mode",
			Help: "1 when emergency mode is active",
		}),
	}
}

// sync refreshes the gauges from engine state. Callers hold the engine lock.
func (m *engineMetrics) sync(e *Engine) {
	m.auditEntries.Set(float64(len(e.audit)))
	m.totalVotes.Set(float64(e.state.TotalVotes))
	m.totalWeightedVotes.Set(float64(e.state.TotalWeightedVotes))
	m.voters.Set(float64(len(e.voters)))
	m.electionRound.Set(float64(e.state.ElectionRound))
	m.votingPaused.Set(boolGauge(e.state.VotingPaused))
	m.emergencyMode.Set(boolGauge(e.state.EmergencyMode))
}

// loadProposals sets the active proposal gauge from hydrated state. After
// start-up the gauge follows createProposal and closeProposal.
func (m *engineMetrics) loadProposals(e *Engine) {
	var active int
	for _, p := range e.proposals {
		if p.Status == ProposalStatusActive {
			active++
		}
	}
	m.activeProposals.Set(float64(active))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
