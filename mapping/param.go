package mapping

import "fmt"

// Substitution says where a parameter's value comes from at dispatch time.
type Substitution string

const (
	SubstNone               Substitution = "none"
	SubstVelocity           Substitution = "velocity"
	SubstVelocityNormalized Substitution = "velocity_normalized"
	SubstTrackIndex         Substitution = "track_index"
	SubstTrackName          Substitution = "track_name"
	SubstClipIndex          Substitution = "clip_index"
	SubstSceneIndex         Substitution = "scene_index"
	SubstDeviceIndex        Substitution = "device_index"
	SubstStaticValue        Substitution = "static_value"
)

func (s Substitution) Valid() bool {
	switch s {
	case SubstNone, SubstVelocity, SubstVelocityNormalized, SubstTrackIndex, SubstTrackName,
		SubstClipIndex, SubstSceneIndex, SubstDeviceIndex, SubstStaticValue:
		return true
	}
	return false
}

// ParameterMapping rewrites one command parameter. Exactly the field
// matching Substitution is expected to be set.
type ParameterMapping struct {
	Index        int          `json:"parameterIndex" yaml:"parameterIndex"`
	Substitution Substitution `json:"substitution" yaml:"substitution"`
	TrackIndex   *int         `json:"trackIndex,omitempty" yaml:"trackIndex,omitempty"`
	TrackName    string       `json:"trackName,omitempty" yaml:"trackName,omitempty"`
	ClipIndex    *int         `json:"clipIndex,omitempty" yaml:"clipIndex,omitempty"`
	SceneIndex   *int         `json:"sceneIndex,omitempty" yaml:"sceneIndex,omitempty"`
	DeviceIndex  *int         `json:"deviceIndex,omitempty" yaml:"deviceIndex,omitempty"`
	StaticValue  *Value       `json:"staticValue,omitempty" yaml:"staticValue,omitempty"`
}

// Validate checks the index and that the field required by the
// substitution kind is present.
func (p ParameterMapping) Validate() error {
	if p.Index < 0 {
		return fmt.Errorf("%w: parameter index %d is negative", ErrValidation, p.Index)
	}
	missing := func(field string) error {
		return fmt.Errorf("%w: %s substitution for parameter %d requires %s", ErrValidation, p.Substitution, p.Index, field)
	}
	switch p.Substitution {
	case SubstNone, SubstVelocity, SubstVelocityNormalized:
	case SubstTrackIndex:
		if p.TrackIndex == nil {
			return missing("trackIndex")
		}
	case SubstTrackName:
		if p.TrackName == "" {
			return missing("trackName")
		}
	case SubstClipIndex:
		if p.ClipIndex == nil {
			return missing("clipIndex")
		}
	case SubstSceneIndex:
		if p.SceneIndex == nil {
			return missing("sceneIndex")
		}
	case SubstDeviceIndex:
		if p.DeviceIndex == nil {
			return missing("deviceIndex")
		}
	case SubstStaticValue:
		if p.StaticValue == nil {
			return missing("staticValue")
		}
	default:
		return fmt.Errorf("%w: unknown substitution %q", ErrValidation, p.Substitution)
	}
	return nil
}

func (p ParameterMapping) clone() ParameterMapping {
	c := p
	c.TrackIndex = copyInt(p.TrackIndex)
	c.ClipIndex = copyInt(p.ClipIndex)
	c.SceneIndex = copyInt(p.SceneIndex)
	c.DeviceIndex = copyInt(p.DeviceIndex)
	if p.StaticValue != nil {
		v := *p.StaticValue
		c.StaticValue = &v
	}
	return c
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
