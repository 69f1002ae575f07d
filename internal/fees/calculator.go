// Package fees derives the deployment fee quote from a draft.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"token-deploy-wizard/internal/domain"
)

// Default fee schedule (Stellar, XLM).
var (
	DefaultBaseFee     = decimal.NewFromInt(5)
	DefaultMetadataFee = decimal.NewFromInt(3)
)

// DefaultUnit is the fee currency label.
const DefaultUnit = "XLM"

// Schedule is the fixed fee configuration.
type Schedule struct {
	Base     decimal.Decimal
	Metadata decimal.Decimal
	Unit     string
}

// DefaultSchedule returns the default Stellar schedule.
func DefaultSchedule() Schedule {
	return Schedule{Base: DefaultBaseFee, Metadata: DefaultMetadataFee, Unit: DefaultUnit}
}

// ParseSchedule builds a schedule from decimal strings.
func ParseSchedule(base, metadata, unit string) (Schedule, error) {
	b, err := decimal.NewFromString(base)
	if err != nil {
		return Schedule{}, fmt.Errorf("parse base fee %q: %w", base, err)
	}
	m, err := decimal.NewFromString(metadata)
	if err != nil {
		return Schedule{}, fmt.Errorf("parse metadata fee %q: %w", metadata, err)
	}
	s := Schedule{Base: b, Metadata: m, Unit: unit}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Validate checks that fees are non-negative and the metadata surcharge is
// positive, so that a non-zero surcharge identifies metadata content.
func (s Schedule) Validate() error {
	if s.Base.IsNegative() {
		return fmt.Errorf("base fee must not be negative: %s", s.Base)
	}
	if !s.Metadata.IsPositive() {
		return fmt.Errorf("metadata fee must be positive: %s", s.Metadata)
	}
	return nil
}

// Calculator computes fee quotes. It holds no cache: every call recomputes
// from the draft it is given.
type Calculator struct {
	schedule Schedule
}

// NewCalculator creates a Calculator for schedule. The schedule must pass Validate.
func NewCalculator(schedule Schedule) (*Calculator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("fee schedule: %w", err)
	}
	if schedule.Unit == "" {
		schedule.Unit = DefaultUnit
	}
	return &Calculator{schedule: schedule}, nil
}

// DefaultCalculator returns a Calculator for DefaultSchedule.
func DefaultCalculator() *Calculator {
	return &Calculator{schedule: DefaultSchedule()}
}

// Schedule returns the configured schedule.
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// Quote returns the fee breakdown for d. The metadata surcharge applies iff
// the draft carries an image or a non-empty description.
func (c *Calculator) Quote(d domain.TokenDraft) domain.FeeBreakdown {
	metadataFee := decimal.Zero
	if d.HasMetadataContent() {
		metadataFee = c.schedule.Metadata
	}
	return domain.FeeBreakdown{
		BaseFee:     c.schedule.Base,
		MetadataFee: metadataFee,
		TotalFee:    c.schedule.Base.Add(metadataFee),
		Unit:        c.schedule.Unit,
	}
}
