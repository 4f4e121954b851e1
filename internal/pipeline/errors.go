package pipeline

import (
	"fmt"

	"tradecompass/internal/contracts"
	"tradecompass/internal/doctrine"
)

// FailureCode classifies the terminal failure of a run. Every failure maps
// to exactly one class and one next action for the operator.
type FailureCode string

const (
	FailSchemaValidation FailureCode = "SCHEMA_VALIDATION_FAILED"
	FailDoctrineGuard    FailureCode = "DOCTRINE_GUARD_FAILED"
	FailStageExecution   FailureCode = "STAGE_EXECUTION_FAILED"
	FailOutputNotJSON    FailureCode = "MODEL_OUTPUT_NOT_JSON"
)

var nextActions = map[FailureCode]string{
	FailSchemaValidation: "inspect the recorded violations and correct the stage contract or the producing model",
	FailDoctrineGuard:    "review the flagged terms against the doctrine policy before rerunning",
	FailStageExecution:   "check backend credentials, model id and run logs, then rerun",
	FailOutputNotJSON:    "the model returned prose instead of JSON; retry the run or switch the stage to rules/v1",
}

// NextAction returns the canned operator guidance for a failure class.
func NextAction(code FailureCode) string {
	if a, ok := nextActions[code]; ok {
		return a
	}
	return "inspect the run logs"
}

// StageFailure is the terminal failure record of a run: the stage that
// stopped it, the class, a human-readable detail line, and the structured
// findings of whichever gate fired.
type StageFailure struct {
	Stage            string                      `json:"stage_failed"`
	Code             FailureCode                 `json:"reason"`
	Detail           string                      `json:"detail"`
	ValidationErrors []contracts.ValidationError `json:"validation_errors,omitempty"`
	GuardFailures    []doctrine.Failure          `json:"guard_failures,omitempty"`
	Action           string                      `json:"next_action"`
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %s", f.Stage, f.Code, f.Detail)
}
