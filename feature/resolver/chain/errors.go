package chain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a resource name is absent from every tier,
// including the base archives. It is definitive: base archives are the only
// tier guaranteed to contain every standard resource.
var ErrNotFound = errors.New("resource not found in any tier")

// CorruptError reports that a located resource failed to parse. It is
// surfaced instead of falling through to a lower tier: a malformed override
// must not silently degrade to a possibly-wrong lower-priority value.
type CorruptError struct {
	// Name is the resource name that failed.
	Name string
	// Tier is the tier the resource was located in.
	Tier Tier
	// Err is the underlying codec or read error.
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("resource %s in %s tier is corrupt: %v", e.Name, e.Tier, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
