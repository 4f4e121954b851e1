package stages

import (
	"fmt"

	"tradecompass/internal/bucketing"
	"tradecompass/internal/contextbuild"
	"tradecompass/internal/contracts"
)

// buildSynthesisDecision folds the four upstream artifacts into the
// terminal decision record: three named paths, one recommendation, and a
// first-month action list. The recommendation rule is fixed: fix the
// decision bottleneck first, then the concentration risk, then growth.
func buildSynthesisDecision(run contextbuild.Run, in *contracts.StageInput, modelID, promptVersion string) (contracts.Artifact, error) {
	latency := bucketValue(run, bucketing.SignalDecisionLatency)
	concentration := bucketValue(run, bucketing.SignalRevenueConcentration)
	pipeline := bucketValue(run, bucketing.SignalOpenPipeline)
	noun := tradeNoun(in.Industry)

	paths := map[string]contracts.Path{
		"A": {
			Title:    "Deepen the base",
			Thesis:   "Lean into the accounts that already buy. Standing service plans and planned return visits turn existing trust into steadier weeks without chasing strangers.",
			Tradeoff: "Growth stays modest, and the book's dependence on its largest accounts eases slowly rather than at once.",
		},
		"B": {
			Title:    "Faster yes",
			Thesis:   fmt.Sprintf("Shorten the path from quote to decision. Same-visit quotes with two fixed options close %s on the spot and stop the approval queue from aging.", noun),
			Tradeoff: "Quoting discipline takes real setup time up front, and some customers will still want to sleep on it.",
		},
		"C": {
			Title:    "Fill the valleys",
			Thesis:   "Use the slow months deliberately. An off-season plan and a small-job express lane put uncontested work into the weeks the calendar runs emptiest.",
			Tradeoff: "New offers need their own word-of-mouth, so the first season's uptake will be thin.",
		},
	}

	recommended := "C"
	if latency == "high" || pipeline == "high" {
		recommended = "B"
	} else if concentration == "high" {
		recommended = "A"
	}

	actions := []string{
		"Pick the recommended path out loud and write down what would make you abandon it.",
		"Block one fixed weekly slot for quotes and approvals and treat it like a customer appointment.",
	}
	switch recommended {
	case "A":
		actions = append(actions,
			"List the top five accounts and book a planned next visit with each before month end.",
			"Draft a one-page standing service plan and offer it to two trusted customers as a pilot.",
			"Note which smaller customers resemble the top accounts; they are the next plan candidates.")
	case "B":
		actions = append(actions,
			"Build a two-option quote template for the most common job and use it on every new request.",
			"Go through every open quote older than its normal wait and send one plain follow-up note.",
			"Time the quote-to-decision gap on each new job this month against the current band.")
	default:
		actions = append(actions,
			"Write the fixed-price menu for the five most common small jobs and put it on one page.",
			"Pick the two emptiest months ahead and decide what an off-season visit covers.",
			"Offer the off-season plan to ten existing customers and count the plain yes or no answers.")
	}
	actions = append(actions, "At day thirty, reread this record and note what the month actually changed.")

	return &contracts.SynthesisDecisionArtifact{
		Envelope:        newEnvelope(contracts.StageSynthesisDecision, in, modelID, promptVersion, carriedConfidence(run)),
		Paths:           paths,
		RecommendedPath: recommended,
		First30Days:     actions,
		LanguageCheck: contracts.LanguageCheck{
			Passed: true,
			Notes:  "worded in plain trade language; no hype terms, no recurring check-in hooks",
		},
	}, nil
}
