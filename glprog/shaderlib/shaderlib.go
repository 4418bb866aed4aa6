// Package shaderlib holds the immutable catalog of target-language
// function fragments the compiler assembles programs from. The fragments
// are ports of Blender's GPU material shaders
// (source/blender/gpu/shaders/gpu_shader_material.glsl) and live in
// embedded .glsl files grouped by concern, parsed once at package init.
package shaderlib

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/gshade/gshade/glprog"
)

//go:embed bsdf.glsl
var bsdfSrc string

//go:embed math.glsl
var mathSrc string

//go:embed mix_rgb.glsl
var mixRGBSrc string

//go:embed vector_math.glsl
var vectorMathSrc string

//go:embed converters.glsl
var convertersSrc string

//go:embed normal_map.glsl
var normalMapSrc string

//go:embed tex.glsl
var texSrc string

//go:embed space_convert.glsl
var spaceConvertSrc string

//go:embed fresnel.glsl
var fresnelSrc string

var catalog = make(map[string]*glprog.Function)

func init() {
	for _, src := range []string{
		bsdfSrc, mathSrc, mixRGBSrc, vectorMathSrc, convertersSrc,
		normalMapSrc, texSrc, spaceConvertSrc, fresnelSrc,
	} {
		fns, err := glprog.ParseFunctions(src)
		if err != nil {
			panic("shaderlib: bad embedded source: " + err.Error())
		}
		for _, fn := range fns {
			if _, exists := catalog[fn.Name]; exists {
				panic("shaderlib: duplicate function " + fn.Name)
			}
			catalog[fn.Name] = fn
		}
	}
}

// Lookup finds a catalog entry by its derived function name. The second
// return is false when no entry exists for the name, which callers treat
// as an unsupported node configuration.
func Lookup(name string) (*glprog.Function, bool) {
	fn, ok := catalog[name]
	return fn, ok
}

// Intrinsic returns a catalog entry that is not tied to any node kind
// (space conversions, Fresnel). Unlike Lookup a miss is a programmer
// error and panics.
func Intrinsic(name string) *glprog.Function {
	fn, ok := catalog[name]
	if !ok {
		panic(fmt.Sprintf("shaderlib: no intrinsic %q", name))
	}
	return fn
}

// Names returns every catalog entry name, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns every catalog entry sorted by name.
func Functions() []*glprog.Function {
	fns := make([]*glprog.Function, 0, len(catalog))
	for _, name := range Names() {
		fns = append(fns, catalog[name])
	}
	return fns
}

// BSDF describes how a shading-function catalog entry binds to a node:
// which input socket feeds each in-parameter, in call order, and which
// closure channel each out-parameter lands in.
type BSDF struct {
	Func     *glprog.Function
	Sockets  []string
	Channels []glprog.Channel
}

// BSDFByFunc maps a derived shading-node function name to its socket and
// channel binding. ok is false for non-shading entries.
func BSDFByFunc(name string) (BSDF, bool) {
	meta, ok := bsdfMeta[name]
	return meta, ok
}

var bsdfMeta map[string]BSDF

func init() {
	bind := func(name string, sockets []string, channels []glprog.Channel) {
		fn := Intrinsic(name)
		if len(fn.Ins) != len(sockets) || len(fn.Outs) != len(channels) {
			panic("shaderlib: binding arity mismatch for " + name)
		}
		bsdfMeta[name] = BSDF{Func: fn, Sockets: sockets, Channels: channels}
	}
	bsdfMeta = make(map[string]BSDF)
	bind("node_bsdf_principled",
		[]string{
			"Base Color", "Subsurface", "Subsurface Color", "Metallic",
			"Specular", "Roughness", "Clearcoat", "Clearcoat Roughness",
			"Anisotropic", "Transmission", "IOR",
		},
		[]glprog.Channel{
			glprog.ChanAlbedo, glprog.ChanSSSStrength, glprog.ChanMetallic,
			glprog.ChanSpecular, glprog.ChanRoughness, glprog.ChanClearcoat,
			glprog.ChanClearcoatGloss, glprog.ChanAnisotropy,
			glprog.ChanTransmission, glprog.ChanIOR,
		})
	bind("node_emission",
		[]string{"Color", "Strength"},
		[]glprog.Channel{glprog.ChanEmission, glprog.ChanAlpha})
	bind("node_bsdf_diffuse",
		[]string{"Color", "Roughness"},
		[]glprog.Channel{
			glprog.ChanAlbedo, glprog.ChanSpecular,
			glprog.ChanOrenNayarRoughness,
		})
	bind("node_bsdf_glossy",
		[]string{"Color", "Roughness"},
		[]glprog.Channel{
			glprog.ChanAlbedo, glprog.ChanMetallic, glprog.ChanRoughness,
		})
	bind("node_bsdf_transparent",
		[]string{"Color"},
		[]glprog.Channel{glprog.ChanAlpha})
	bind("node_bsdf_glass",
		[]string{"Color", "Roughness", "IOR"},
		[]glprog.Channel{
			glprog.ChanAlbedo, glprog.ChanAlpha, glprog.ChanSpecular,
			glprog.ChanRoughness, glprog.ChanTransmission, glprog.ChanIOR,
		})
}
