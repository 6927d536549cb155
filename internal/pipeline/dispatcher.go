package pipeline

import (
	"github.com/e-laute/meipipe/internal/mei"
	"github.com/e-laute/meipipe/internal/workpackage"
)

// StepMessage is one step's contribution to the run report.
type StepMessage struct {
	Step    string
	Message string
}

// Dispatch applies the named steps in order to the active document.
//
// The document is threaded by value: each step receives the previous step's
// output and returns a new (possibly identical) wrapper, so no step aliases
// mutable state outside the pipeline. The first error stops the run; it is
// wrapped with the step name but otherwise propagates unmodified, and no
// later step runs. Messages from the steps that did run are returned either
// way, for observability.
func Dispatch(reg Registry, steps []string, active *mei.Document, contexts []*mei.Document, params workpackage.Params) (*mei.Document, []StepMessage, error) {
	messages := make([]StepMessage, 0, len(steps))
	for _, step := range steps {
		fn, err := reg.Resolve(step)
		if err != nil {
			return nil, messages, err
		}
		next, msg, err := fn(active, contexts, params)
		if err != nil {
			return nil, messages, &StepError{Step: step, Err: err}
		}
		if msg != "" {
			messages = append(messages, StepMessage{Step: step, Message: msg})
		}
		active = next
	}
	return active, messages, nil
}
