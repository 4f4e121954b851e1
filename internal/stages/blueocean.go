package stages

import (
	"fmt"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
)

// buildBlueOcean proposes a small number of moves into work the local
// market is not contesting. Every move carries its own capacity note:
// a move the calendar cannot absorb is not a move.
func buildBlueOcean(run contextbuild.Run, in *contracts.StageInput, modelID, promptVersion string) (contracts.Artifact, error) {
	seasonality := bucketValue(run, bucketing.SignalSeasonality)
	squeeze := bucketValue(run, bucketing.SignalCapacitySqueeze)
	pipeline := bucketValue(run, bucketing.SignalOpenPipeline)
	noun := tradeNoun(in.Industry)

	var moves []contracts.Move

	if seasonality == "strong" || seasonality == "weak" {
		moves = append(moves, contracts.Move{
			Name:         "Off-season service plan",
			Rationale:    fmt.Sprintf("Quiet months show up plainly in the volume rhythm. A simple annual plan sells the slow-season visit to customers who already buy the busy-season %s, with no new audience to win.", noun),
			CapacityNote: "Plan visits land in the months the schedule is emptiest, so the move fills capacity instead of competing for it.",
		})
	}

	if pipeline == "high" || pipeline == "medium" {
		moves = append(moves, contracts.Move{
			Name:         "Decision-day quoting",
			Rationale:    "Open quotes pile up because customers stall on unclear bids. A same-visit quote with two fixed options closes the choice on the spot, which few local shops offer.",
			CapacityNote: "Quoting on site adds minutes per visit and removes the follow-up workload from the back office.",
		})
	}

	if squeeze != "high" {
		moves = append(moves, contracts.Move{
			Name:         "Small-job express lane",
			Rationale:    fmt.Sprintf("Jobs too small for the big outfits and too fiddly for handymen sit uncontested. A fixed-price menu for the five most common small %s owns that gap.", noun),
			CapacityNote: "Express work slots into gaps the crew already has between larger bookings; it needs spare capacity, not more of it.",
		})
	}

	if len(moves) == 0 {
		moves = append(moves, contracts.Move{
			Name:         "Maintenance walkthrough add-on",
			Rationale:    "A short end-of-job walkthrough that lists the next likely failure turns one visit into a planned second one, with no marketing spend.",
			CapacityNote: "The walkthrough costs minutes inside an existing visit and feeds the calendar weeks ahead instead of same-week.",
		})
	}
	if len(moves) > 3 {
		moves = moves[:3]
	}

	return &contracts.BlueOceanArtifact{
		Envelope: newEnvelope(contracts.StageBlueOcean, in, modelID, promptVersion, carriedConfidence(run)),
		Moves:    moves,
	}, nil
}
