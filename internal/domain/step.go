package domain

import (
	"encoding/json"
	"fmt"
)

// Step identifies a wizard step.
type Step int

const (
	StepBasicInfo Step = iota
	StepMetadata
	StepReview
)

// String returns the wire name of the step.
func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "BASIC_INFO"
	case StepMetadata:
		return "METADATA"
	case StepReview:
		return "REVIEW"
	default:
		return fmt.Sprintf("STEP(%d)", int(s))
	}
}

// Index returns the 1-based position of the step for progress display.
func (s Step) Index() int {
	return int(s) + 1
}

// MarshalJSON encodes the step by name.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a step name.
func (s *Step) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStep(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStep converts a wire name to a Step.
func ParseStep(name string) (Step, error) {
	switch name {
	case "BASIC_INFO":
		return StepBasicInfo, nil
	case "METADATA":
		return StepMetadata, nil
	case "REVIEW":
		return StepReview, nil
	default:
		return 0, fmt.Errorf("unknown step %q", name)
	}
}
