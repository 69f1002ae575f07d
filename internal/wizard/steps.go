package wizard

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/validation"
)

var (
	// ErrValidationFailed is wrapped by *ValidationError.
	ErrValidationFailed = errors.New("validation failed")
	// ErrInvalidTransition is returned for a move the current step does not allow.
	ErrInvalidTransition = errors.New("invalid step transition")
	// ErrLocked is returned for mutations while a deploy is in flight or after success.
	ErrLocked = errors.New("draft is locked by deployment")
)

// ValidationError carries the field errors that blocked an operation.
type ValidationError struct {
	Step   domain.Step
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d field error(s) on %s", ErrValidationFailed, len(e.Result.Errors), e.Step)
}

// Unwrap lets errors.Is match ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// nextStep returns the step after s on the linear path.
func nextStep(s domain.Step) (domain.Step, bool) {
	switch s {
	case domain.StepBasicInfo:
		return domain.StepMetadata, true
	case domain.StepMetadata:
		return domain.StepReview, true
	default:
		return s, false
	}
}

// prevStep returns the step before s.
func prevStep(s domain.Step) (domain.Step, bool) {
	switch s {
	case domain.StepMetadata:
		return domain.StepBasicInfo, true
	case domain.StepReview:
		return domain.StepMetadata, true
	default:
		return s, false
	}
}

// FormatSupply renders a decimal numeral with thousands separators.
// Input that is not an integer numeral is returned unchanged.
func FormatSupply(supply string) string {
	n, ok := new(big.Int).SetString(supply, 10)
	if !ok {
		return supply
	}

	digits := n.String()
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	b.WriteString(sign)
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > len(sign) {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
