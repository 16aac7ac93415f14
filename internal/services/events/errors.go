package events

import "fmt"

// Stage names the remote call an UpstreamError came from.
type Stage string

const (
	StageDiscovery Stage = "discovery"
	StageDetail    Stage = "detail"
)

// ValidationError is a rejected SearchQuery. It is raised before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UpstreamError is a failed Graph call. A search that hits one returns no results at all.
type UpstreamError struct {
	Stage Stage
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
