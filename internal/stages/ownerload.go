package stages

import (
	"fmt"
	"strings"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
)

// buildOwnerLoad reads the load picture off three buckets: how long
// approvals sit with the owner, how squeezed the completion rhythm is,
// and how much open work is queued. The narrative stays on the owner's
// week; money talk belongs to other stages.
func buildOwnerLoad(run contextbuild.Run, in *contracts.StageInput, modelID, promptVersion string) (contracts.Artifact, error) {
	latency := bucketValue(run, bucketing.SignalDecisionLatency)
	squeeze := bucketValue(run, bucketing.SignalCapacitySqueeze)
	pipeline := bucketValue(run, bucketing.SignalOpenPipeline)
	noun := tradeNoun(in.Industry)

	var picture strings.Builder
	fmt.Fprintf(&picture, "Quote decisions sit at %s latency, which puts the approval queue on the owner's desk. ", latency)
	switch squeeze {
	case "high":
		fmt.Fprintf(&picture, "Scheduled %s are outrunning completed ones, so the calendar is the tightest constraint in the week.", noun)
	case "medium":
		fmt.Fprintf(&picture, "Completed %s lag the scheduled count somewhat; the calendar has slack but not much.", noun)
	case "low":
		fmt.Fprintf(&picture, "Scheduled and completed %s stay close together; the calendar itself is not the bottleneck.", noun)
	default:
		fmt.Fprintf(&picture, "Job records are too thin to read the calendar directly; the volume rhythm stands in for it.")
	}

	points := []string{
		fmt.Sprintf("Approval wait is in the %s band; quotes age while they wait on a decision.", latency),
	}
	if squeeze == "high" || squeeze == "medium" {
		points = append(points, "Scheduling runs ahead of completion, so finished work queues behind new bookings.")
	}
	if pipeline == "high" || pipeline == "medium" {
		points = append(points, "A meaningful share of sent quotes is still open, and each one is a follow-up the owner carries.")
	}

	relief := []string{
		"Put a standing weekly slot on the calendar for clearing the approval queue in one sitting.",
	}
	if pipeline == "high" || pipeline == "medium" {
		relief = append(relief, "Send a single templated nudge on open quotes past their normal wait instead of ad hoc follow-ups.")
	}
	if squeeze == "high" {
		relief = append(relief, "Hold one protected day per week for completion-only work so the backlog drains.")
	}

	return &contracts.OwnerLoadArtifact{
		Envelope:         newEnvelope(contracts.StageOwnerLoad, in, modelID, promptVersion, carriedConfidence(run)),
		LoadPicture:      picture.String(),
		PressurePoints:   points,
		ReliefCandidates: relief,
	}, nil
}
