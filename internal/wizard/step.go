package wizard

import "fmt"

// Step is a wizard step. Steps advance forward only.
type Step int

const (
	StepForm Step = iota
	StepUpload
	StepProcessing
	StepReview
	StepSuccess
)

// NumSteps is the number of wizard steps.
const NumSteps = 5

var stepNames = [NumSteps]string{"form", "upload", "processing", "review", "success"}

func (s Step) String() string {
	if s.Valid() {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s names a wizard step.
func (s Step) Valid() bool {
	return s >= StepForm && s <= StepSuccess
}

// ParseStep returns the step with the given name.
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStep, name)
}
