package support

import "fmt"

// InputError reports an unusable input mesh. Nothing downstream runs when
// one is returned.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input mesh: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("input mesh: %s", e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigurationError reports an out-of-range generator parameter, rejected
// at configuration time rather than clamped.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Param, e.Reason)
}

// Warning records a recoverable per-region degeneracy. The batch continues
// and returns warnings alongside the surviving results.
type Warning struct {
	RegionID int    // discovery-order component id the warning refers to
	Stage    string // "region" or "synthesis"
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: region %d: %s", w.Stage, w.RegionID, w.Message)
}
