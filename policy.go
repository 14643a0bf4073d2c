package mycos

import "github.com/mycos-run/mycos/internal/wavefront"

// Policy names a quench policy applied when a tick detects a cycle.
type Policy = wavefront.Policy

const (
	PolicyFreezeLastStable = wavefront.PolicyFreezeLastStable
	PolicyClampCommutative = wavefront.PolicyClampCommutative
	PolicyParityQuench     = wavefront.PolicyParityQuench
)

// ParsePolicy maps a host-facing policy name to a Policy value.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "freeze_last_stable":
		return PolicyFreezeLastStable, nil
	case "clamp_commutative":
		return PolicyClampCommutative, nil
	case "parity_quench":
		return PolicyParityQuench, nil
	default:
		return 0, errInvalidPolicy(name)
	}
}

func errInvalidPolicy(name string) error {
	return &invalidPolicyError{name: name}
}

type invalidPolicyError struct{ name string }

func (e *invalidPolicyError) Error() string {
	return "mycos: unknown policy name " + e.name
}
