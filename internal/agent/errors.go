package agent

import "fmt"

// Stage names the point of a turn where a fatal error happened.
type Stage string

const (
	StageCompletion Stage = "completion"
	StageTool       Stage = "tool"
)

// TurnError is the only error RunTurn returns. Completion failures and tool
// transport failures end the turn; every other tool failure is fed back to
// the model as a tool message instead.
type TurnError struct {
	Stage  Stage
	Tool   string // set for StageTool
	Rounds int    // tool rounds completed before the failure
	Err    error
}

func (e *TurnError) Error() string {
	if e.Stage == StageTool {
		return fmt.Sprintf("turn failed at %s %s: %v", e.Stage, e.Tool, e.Err)
	}
	return fmt.Sprintf("turn failed at %s: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }
