package engine

import "midiosc/mapping"

// Resolve computes the value a parameter mapping puts into the command
// for msg. ok is false when the parameter should keep its base value.
// Resolve only reads msg and tracks.
func Resolve(pm mapping.ParameterMapping, msg mapping.Message, tracks TrackResolver) (v mapping.Value, ok bool) {
	switch pm.Substitution {
	case mapping.SubstVelocity:
		switch m := msg.(type) {
		case mapping.Note:
			return mapping.Number(float64(m.Velocity())), true
		case mapping.ControlChange:
			return mapping.Number(float64(m.Value())), true
		}

	case mapping.SubstVelocityNormalized:
		switch m := msg.(type) {
		case mapping.Note:
			return mapping.Number(float64(m.Velocity()) / 127), true
		case mapping.ControlChange:
			return mapping.Number(m.Normalized()), true
		}

	case mapping.SubstTrackName:
		if pm.TrackName == "" || tracks == nil {
			break
		}
		if idx, err := tracks.ResolveName(pm.TrackName); err == nil {
			return mapping.Number(float64(idx)), true
		}

	case mapping.SubstTrackIndex:
		return indexValue(pm.TrackIndex)
	case mapping.SubstClipIndex:
		return indexValue(pm.ClipIndex)
	case mapping.SubstSceneIndex:
		return indexValue(pm.SceneIndex)
	case mapping.SubstDeviceIndex:
		return indexValue(pm.DeviceIndex)

	case mapping.SubstStaticValue:
		if pm.StaticValue != nil {
			return *pm.StaticValue, true
		}
	}
	return mapping.Value{}, false
}

func indexValue(p *int) (mapping.Value, bool) {
	if p == nil {
		return mapping.Value{}, false
	}
	return mapping.Number(float64(*p)), true
}

// Apply runs every parameter mapping of m against msg, in order, starting
// from the mapping's base command.
func Apply(m mapping.Mapping, msg mapping.Message, tracks TrackResolver) (mapping.Command, error) {
	cmd := m.Command()
	for _, pm := range m.ParameterMappings() {
		v, ok := Resolve(pm, msg, tracks)
		if !ok {
			continue
		}
		next, err := cmd.WithParameter(pm.Index, v)
		if err != nil {
			return mapping.Command{}, err
		}
		cmd = next
	}
	return cmd, nil
}
