package glprog

import "github.com/soypat/geometry/ms3"

// Channel names one slot of a closure bundle. The target language has no
// closure type so a shading result travels as up to 15 named numeric
// channels which the program assembler finally binds to the fragment
// built-in outputs.
type Channel uint8

const (
	ChanAlbedo Channel = iota
	ChanAlpha
	ChanSSSStrength
	ChanSpecular
	ChanMetallic
	ChanRoughness
	ChanOrenNayarRoughness
	ChanClearcoat
	ChanClearcoatGloss
	ChanAnisotropy
	ChanTransmission
	ChanIOR
	ChanEmission
	ChanNormal
	ChanTangent
	NumChannels // Number of channels. Keep last.
)

var channelNames = [NumChannels]string{
	ChanAlbedo:             "albedo",
	ChanAlpha:              "alpha",
	ChanSSSStrength:        "sss_strength",
	ChanSpecular:           "specular",
	ChanMetallic:           "metallic",
	ChanRoughness:          "roughness",
	ChanOrenNayarRoughness: "oren_nayar_roughness",
	ChanClearcoat:          "clearcoat",
	ChanClearcoatGloss:     "clearcoat_gloss",
	ChanAnisotropy:         "anisotropy",
	ChanTransmission:       "transmission",
	ChanIOR:                "ior",
	ChanEmission:           "emission",
	ChanNormal:             "normal",
	ChanTangent:            "tangent",
}

func (c Channel) String() string {
	if c >= NumChannels {
		return "invalid"
	}
	return channelNames[c]
}

// ChannelByName performs the reverse of [Channel.String]. ok is false for
// unknown names.
func ChannelByName(name string) (c Channel, ok bool) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), true
		}
	}
	return 0, false
}

// Type returns the value type carried by the channel.
func (c Channel) Type() Type {
	switch c {
	case ChanAlbedo, ChanEmission, ChanNormal, ChanTangent:
		return Vec3
	}
	return Float
}

// ClosureValue aggregates the named channels representing one compiled
// Closure-typed socket. A zero channel Value means "not specified";
// consumers decide per channel what absence means.
type ClosureValue struct {
	chans [NumChannels]Value
}

func (ClosureValue) isCompiled() {}

// Set stores v in channel c. Channels are written once by the producing
// node strategy.
func (cv *ClosureValue) Set(c Channel, v Value) {
	cv.chans[c] = v
}

// Get returns the channel value and whether it was ever set.
func (cv ClosureValue) Get(c Channel) (Value, bool) {
	v := cv.chans[c]
	return v, !v.IsZero()
}

// DefaultClosure is the canonical closure for unconnected Closure inputs:
// black albedo, every other channel absent.
func DefaultClosure() ClosureValue {
	var cv ClosureValue
	cv.Set(ChanAlbedo, Vec3Lit(ms3.Vec{}))
	return cv
}
