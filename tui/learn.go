package tui

import (
	"fmt"
	"strings"

	"midiosc/engine"
	"midiosc/mapping"
)

// ParseLearnInput reads the learn prompt: an OSC address followed by
// parameters. A parameter may be a placeholder filled from the event:
//
//	$vel         raw velocity or CC value
//	$norm        velocity or CC value scaled to 0..1
//	$track:Name  index of the track called Name
func ParseLearnInput(s string) (engine.PendingSpec, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return engine.PendingSpec{}, fmt.Errorf("%w: enter an OSC address", mapping.ErrValidation)
	}
	if _, err := mapping.ParseAddress(fields[0]); err != nil {
		return engine.PendingSpec{}, err
	}

	spec := engine.PendingSpec{Address: fields[0]}
	for i, f := range fields[1:] {
		if !strings.HasPrefix(f, "$") {
			spec.Parameters = append(spec.Parameters, mapping.ParseValue(f))
			continue
		}

		pm := mapping.ParameterMapping{Index: i}
		switch {
		case f == "$vel":
			pm.Substitution = mapping.SubstVelocity
		case f == "$norm":
			pm.Substitution = mapping.SubstVelocityNormalized
		case strings.HasPrefix(f, "$track:") && len(f) > len("$track:"):
			pm.Substitution = mapping.SubstTrackName
			pm.TrackName = strings.TrimPrefix(f, "$track:")
		default:
			return engine.PendingSpec{}, fmt.Errorf("%w: unknown placeholder %q", mapping.ErrValidation, f)
		}
		spec.Parameters = append(spec.Parameters, mapping.Number(0))
		spec.ParameterMappings = append(spec.ParameterMappings, pm)
	}
	return spec, nil
}
