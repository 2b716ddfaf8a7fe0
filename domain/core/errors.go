package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrUnknownKind      = fmt.Errorf("%w: unknown stage kind", ErrConfigInvalid)
	ErrConflictingPower = fmt.Errorf("%w: conflicting pulse normalization inputs", ErrConfigInvalid)
	ErrConflictingWidth = fmt.Errorf("%w: conflicting pulse width inputs", ErrConfigInvalid)
	ErrContradiction    = fmt.Errorf("%w: contradictory physical parameters", ErrConfigInvalid)
	ErrUnknownShape     = fmt.Errorf("%w: unknown pulse shape", ErrConfigInvalid)

	// Topology errors
	ErrMissingStageRef = errors.New("stage_chain references missing stage key")
	ErrEmptyChain      = errors.New("stage_chain must be non-empty")
	ErrChainEndpoints  = errors.New("stage_chain must start with laser_gen and end with metrics")

	// Physics errors
	ErrPhysicalDomain      = errors.New("physical domain violation")
	ErrSamplingPolicy      = errors.New("pulse sampling policy violated")
	ErrMissingPrecondition = errors.New("missing stage precondition")
	ErrNonUniformGrid      = fmt.Errorf("%w: requires a uniformly spaced pulse time grid", ErrMissingPrecondition)

	// Capability errors
	ErrMissingCapability = errors.New("missing capability")
	ErrUnsupported       = errors.New("unsupported option")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: validation failed for %s: %s", ErrConfigInvalid, field, reason)
}

func NewDomainError(context string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrPhysicalDomain, context, fmt.Sprintf(format, args...))
}

func NewPreconditionError(stage string, key string) error {
	return fmt.Errorf("%w: stage %s requires %s", ErrMissingPrecondition, stage, key)
}

func NewMissingStageRefError(family string, key string) error {
	return fmt.Errorf("%w: family=%s key=%s", ErrMissingStageRef, family, key)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid) ||
		errors.Is(err, ErrMissingStageRef) ||
		errors.Is(err, ErrEmptyChain) ||
		errors.Is(err, ErrChainEndpoints)
}

func IsPhysicalError(err error) bool {
	return errors.Is(err, ErrPhysicalDomain) ||
		errors.Is(err, ErrMissingPrecondition)
}
