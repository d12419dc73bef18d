// Package pipeline holds the pure decision logic for moving deals through
// the sales funnel: who may move a deal where, what extra data a terminal
// move requires, and which display probability each stage carries.
package pipeline

import "github.com/vendaflow/crm-api/internal/domain"

// StageProbabilities maps each stage to its display win probability. It is
// injected into the services that need it rather than read from a package
// global, so tests and deployments can vary the table.
type StageProbabilities map[domain.DealStage]int

// DefaultStageProbabilities returns the standard funnel probabilities.
func DefaultStageProbabilities() StageProbabilities {
	return StageProbabilities{
		domain.DealStageLead:        10,
		domain.DealStageQualified:   40,
		domain.DealStageProposal:    60,
		domain.DealStageNegotiation: 80,
		domain.DealStageClosedWon:   100,
		domain.DealStageClosedLost:  0,
	}
}

// For returns the probability for a stage, 0 for unknown stages.
func (sp StageProbabilities) For(stage domain.DealStage) int {
	return sp[stage]
}
