package segment

import (
	"fmt"
)

// Policy identifies one mask-selection strategy. The near-duplicate
// selection heuristics of the capture pipeline are a closed set, so they
// are a tagged enum dispatched by configuration rather than free
// functions chosen by identity string comparison.
type Policy int

const (
	// PolicyMiddleFront scores candidates by horizontal closeness to
	// center, vertical position (lower is closer to the camera in this
	// imaging setup) and area.
	PolicyMiddleFront Policy = iota
	// PolicyNearestCenter picks the candidate whose box center is
	// nearest the image center.
	PolicyNearestCenter
	// PolicyLargestConfident blends confidence and area, falling back to
	// pure area when the model reports no scores.
	PolicyLargestConfident
)

func (p Policy) String() string {
	switch p {
	case PolicyMiddleFront:
		return "middle_front"
	case PolicyNearestCenter:
		return "nearest_center"
	case PolicyLargestConfident:
		return "largest_confident"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "middle_front":
		return PolicyMiddleFront, nil
	case "nearest_center":
		return PolicyNearestCenter, nil
	case "largest_confident":
		return PolicyLargestConfident, nil
	default:
		return 0, fmt.Errorf("unknown selection policy %q", s)
	}
}

// MarshalYAML encodes the policy as its configuration string.
func (p Policy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML decodes a policy from its configuration string.
func (p *Policy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PolicyTable maps plant identities to selection policies. It is explicit
// configuration passed into the selector, never ambient state.
type PolicyTable struct {
	Default  Policy            `yaml:"default"`
	PerPlant map[string]Policy `yaml:"per_plant"`
}

// For returns the policy configured for the given plant identity, or the
// table default.
func (t PolicyTable) For(plantID string) Policy {
	if p, ok := t.PerPlant[plantID]; ok {
		return p
	}
	return t.Default
}
