package stages

import (
	"fmt"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
)

// buildCompetitiveLens positions the business from its own shape: who the
// work concentrates on, how seasonal it runs, and how fast quotes turn
// into yes or no. Local trades compete on responsiveness and reliability,
// so that is the axis the lens reads.
func buildCompetitiveLens(run contextbuild.Run, in *contracts.StageInput, modelID, promptVersion string) (contracts.Artifact, error) {
	concentration := bucketValue(run, bucketing.SignalRevenueConcentration)
	seasonality := bucketValue(run, bucketing.SignalSeasonality)
	latency := bucketValue(run, bucketing.SignalDecisionLatency)
	noun := tradeNoun(in.Industry)

	var positioning string
	switch concentration {
	case "high":
		positioning = fmt.Sprintf("The book leans on a handful of accounts, which reads as a relationship shop: known %s for known customers, won on trust rather than on being first to answer the phone.", noun)
	case "medium":
		positioning = fmt.Sprintf("The book mixes repeat accounts with one-off %s; the shop competes partly on relationships and partly on responsiveness to new callers.", noun)
	default:
		positioning = fmt.Sprintf("The book is spread across many small %s, which reads as a volume shop competing on availability and speed of response.", noun)
	}

	tableStakes := []string{
		"Answer new inquiries the same day they arrive.",
		"Show up inside the promised arrival window.",
		"Send a written quote with a clear scope before starting work.",
	}

	var edges []string
	if concentration == "high" {
		edges = append(edges, "Repeat accounts already trust the work, which shortcuts the bidding contest new entrants fight.")
	} else {
		edges = append(edges, "A wide customer base means no single loss moves the quarter.")
	}
	if latency == "low" {
		edges = append(edges, "Quotes turn to decisions quickly, which most local rivals cannot match.")
	}

	var exposures []string
	if concentration == "high" {
		exposures = append(exposures, "Losing one of the top accounts would leave a hole no single new customer fills.")
	}
	if latency == "high" {
		exposures = append(exposures, "Slow quote decisions hand the faster rival the job before the bid is even read.")
	}
	if seasonality == "strong" {
		exposures = append(exposures, "Deep seasonal valleys invite year-round competitors to pick up the idle-month customers.")
	}
	if len(exposures) == 0 {
		exposures = append(exposures, "No single sharp exposure shows in the current window; the risk is drift rather than shock.")
	}

	return &contracts.CompetitiveLensArtifact{
		Envelope:    newEnvelope(contracts.StageCompetitiveLens, in, modelID, promptVersion, carriedConfidence(run)),
		Positioning: positioning,
		TableStakes: tableStakes,
		Edges:       edges,
		Exposures:   exposures,
	}, nil
}
