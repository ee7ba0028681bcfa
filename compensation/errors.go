package compensation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInactiveMembership is returned when the affiliate is below the
	// monthly activity threshold.
	ErrInactiveMembership = errors.New("inactive membership")

	// ErrIneligibleTier is returned when the tier does not qualify for the
	// elite bonus.
	ErrIneligibleTier = errors.New("tier not eligible for elite bonus")

	// ErrUnknownTier is returned for tier names the plan does not define.
	ErrUnknownTier = errors.New("unknown membership tier")

	// ErrNegativeVolume is returned for negative volumes or amounts.
	ErrNegativeVolume = errors.New("negative volume")

	// ErrInvalidPlan is returned when a plan fails validation.
	ErrInvalidPlan = errors.New("invalid compensation plan")

	// ErrInvalidSimulation is returned for malformed simulator input.
	ErrInvalidSimulation = errors.New("invalid simulation")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InactiveMembershipError carries the volume that fell short.
type InactiveMembershipError struct {
	Tier      Tier
	MonthlyBV generic.Amount
	Threshold generic.Amount
}

func (e *InactiveMembershipError) Error() string {
	if e.MonthlyBV.Unit == "" {
		return fmt.Sprintf("inactive membership: %s below %s monthly volume", e.Tier.DisplayName(), e.Threshold)
	}
	return fmt.Sprintf("inactive membership: %s has %s, needs %s", e.Tier.DisplayName(), e.MonthlyBV, e.Threshold)
}

func (e *InactiveMembershipError) Unwrap() error { return ErrInactiveMembership }

// IneligibleTierError names the tier that asked for an elite bonus and the
// tiers the plan pays it to.
type IneligibleTierError struct {
	Tier     Tier
	Eligible []Tier
}

func (e *IneligibleTierError) Error() string {
	msg := fmt.Sprintf("tier %s not eligible for elite bonus", e.Tier.DisplayName())
	if len(e.Eligible) == 0 {
		return msg
	}
	names := make([]string, len(e.Eligible))
	for i, t := range e.Eligible {
		names[i] = t.DisplayName()
	}
	last := len(names) - 1
	if last == 0 {
		return msg + " (requires " + names[0] + ")"
	}
	return msg + " (requires " + strings.Join(names[:last], ", ") + " or " + names[last] + ")"
}

func (e *IneligibleTierError) Unwrap() error { return ErrIneligibleTier }

// UnknownTierError names a tier that is not in the plan.
type UnknownTierError struct {
	Name string
}

func (e *UnknownTierError) Error() string { return fmt.Sprintf("unknown membership tier %q", e.Name) }
func (e *UnknownTierError) Unwrap() error { return ErrUnknownTier }

// NegativeVolumeError names the offending field.
type NegativeVolumeError struct {
	Field string
	Value generic.Amount
}

func (e *NegativeVolumeError) Error() string {
	return fmt.Sprintf("%s must not be negative, got %s", e.Field, e.Value)
}

func (e *NegativeVolumeError) Unwrap() error { return ErrNegativeVolume }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input
// rather than a failure of the engine.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInactiveMembership) ||
		errors.Is(err, ErrIneligibleTier) ||
		errors.Is(err, ErrUnknownTier) ||
		errors.Is(err, ErrNegativeVolume) ||
		errors.Is(err, ErrInvalidPlan) ||
		errors.Is(err, ErrInvalidSimulation) ||
		generic.IsClientError(err)
}

func requireNonNegative(field string, a generic.Amount) error {
	if a.IsNegative() {
		return &NegativeVolumeError{Field: field, Value: a}
	}
	return nil
}
