package verifier

import "errors"

// Every probe failure collapses to Result.Success == false; the sentinels only
// tell the logs why.
var (
	ErrProbeTimeout          = errors.New("probe timeout")
	ErrProbeConnectionFailed = errors.New("probe connection failed")
	ErrProbeBadStatus        = errors.New("probe bad status")
	ErrProbePanicked         = errors.New("probe panicked")
	ErrInvalidCandidate      = errors.New("invalid candidate")
	ErrSchedulerUnavailable  = errors.New("scheduler rejected probe")
)
