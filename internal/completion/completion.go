// Package completion decides whether an agent reply is the final plan.
package completion

import (
	"fmt"
	"strings"
)

// Marker is the line the agent is asked to end its final document with in
// marker mode.
const Marker = "[[END OF PLAN]]"

// Modes accepted by New.
const (
	ModeKeyword = "keyword"
	ModeMarker  = "marker"
)

// Detector classifies agent replies.
type Detector interface {
	IsFinal(response string) bool
}

// Keyword reports a reply as final when it mentions "final" together with
// "plan" or "roadmap", ignoring case. Drafts that talk about the final plan
// also trigger it.
type Keyword struct{}

func (Keyword) IsFinal(response string) bool {
	r := strings.ToLower(response)
	return strings.Contains(r, "final") &&
		(strings.Contains(r, "plan") || strings.Contains(r, "roadmap"))
}

// MarkerDetector reports a reply as final when it contains Marker.
type MarkerDetector struct{}

func (MarkerDetector) IsFinal(response string) bool {
	return strings.Contains(response, Marker)
}

// Strip removes Marker from a final reply before it is rendered.
func Strip(response string) string {
	return strings.TrimSpace(strings.ReplaceAll(response, Marker, ""))
}

// New returns the detector for mode. An empty mode selects Keyword.
func New(mode string) (Detector, error) {
	switch strings.ToLower(mode) {
	case "", ModeKeyword:
		return Keyword{}, nil
	case ModeMarker:
		return MarkerDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown completion mode %q", mode)
	}
}
