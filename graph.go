// Package gshade compiles node-based shading graphs into single-pass
// spatial shader programs. A Graph is built through the New* node
// constructors and Link calls, then handed to Compile which returns the
// assembled program together with its uniform and texture tables.
package gshade

import (
	"errors"
	"fmt"

	"github.com/gshade/gshade/glprog"
	"github.com/soypat/geometry/ms3"
)

var (
	// ErrGraphCycle reports a dependency cycle among the graph's nodes.
	// It is fatal; no program text is produced.
	ErrGraphCycle = errors.New("graph contains a cycle")
	// ErrIncompatibleSockets reports a link between two sockets whose
	// types cannot coerce into one another.
	ErrIncompatibleSockets = errors.New("incompatible socket types")
)

// Graph owns the nodes and links of one material. Construction errors
// accumulate and surface joined from Err or from Compile; the
// PanicOnError flag switches to immediate panics for debugging graph
// construction.
type Graph struct {
	PanicOnError bool

	nodes     []*Node
	output    *Node
	accumErrs []error
}

// New returns an empty Graph holding the implicit material output node.
// Its Surface and Displacement inputs are the two compilation roots.
func New() *Graph {
	g := &Graph{}
	out := g.addNode(KindOutputMaterial, "Material Output")
	out.addIn("Surface", glprog.Closure, glprog.Value{})
	out.addIn("Displacement", glprog.Float, glprog.FloatLit(0))
	g.output = out
	return g
}

// Err returns the accumulated construction errors joined together, nil
// if construction went clean.
func (g *Graph) Err() error {
	if len(g.accumErrs) == 0 {
		return nil
	}
	return errors.Join(g.accumErrs...)
}

func (g *Graph) graphErrorf(msg string, args ...any) {
	err := fmt.Errorf(msg, args...)
	if g.PanicOnError {
		panic(err)
	}
	g.accumErrs = append(g.accumErrs, err)
}

func (g *Graph) addNode(kind NodeKind, name string) *Node {
	n := &Node{Kind: kind, Name: name}
	g.nodes = append(g.nodes, n)
	return n
}

// Surface returns the surface-closure root input socket.
func (g *Graph) Surface() *Socket { return g.output.In("Surface") }

// Displacement returns the displacement root input socket.
func (g *Graph) Displacement() *Socket { return g.output.In("Displacement") }

// Link connects a producer output socket to a consumer input socket.
// The endpoint types must be lattice-coercible; Closure sockets only
// ever link to Closure sockets. A second link into the same input
// replaces nothing and is an error.
func (g *Graph) Link(from, to *Socket) {
	if from == nil || to == nil {
		g.graphErrorf("link with nil socket endpoint")
		return
	}
	if from.dir != dirOut || to.dir != dirIn {
		g.graphErrorf("link %s.%s -> %s.%s must go output to input",
			from.node.Name, from.name, to.node.Name, to.name)
		return
	}
	if !glprog.Coercible(from.typ, to.typ) {
		g.graphErrorf("%w: %s.%s (%s) -> %s.%s (%s)",
			ErrIncompatibleSockets,
			from.node.Name, from.name, from.typ,
			to.node.Name, to.name, to.typ)
		return
	}
	if to.link != nil {
		g.graphErrorf("input %s.%s already linked", to.node.Name, to.name)
		return
	}
	l := &Link{From: from, To: to}
	to.link = l
	from.outLinks = append(from.outLinks, l)
}

// NewReroute returns a pass-through node of the given socket type.
func (g *Graph) NewReroute(name string, typ glprog.Type) *Node {
	n := g.addNode(KindReroute, name)
	n.addIn("Input", typ, glprog.Value{})
	n.addOut("Output", typ)
	return n
}

// NewRGB returns a color constant node.
func (g *Graph) NewRGB(name string, rgb ms3.Vec, alpha float32) *Node {
	n := g.addNode(KindRGB, name)
	out := n.addOut("Color", glprog.Color)
	out.def = glprog.ColorLit(rgb, alpha)
	return n
}

// NewValue returns a scalar constant node.
func (g *Graph) NewValue(name string, v float32) *Node {
	n := g.addNode(KindValue, name)
	out := n.addOut("Value", glprog.Float)
	out.def = glprog.FloatLit(v)
	return n
}

// NewMath returns a scalar math node. Unlinked inputs evaluate to the
// given defaults.
func (g *Graph) NewMath(name string, op MathOp, clamp bool, default1, default2 float32) *Node {
	n := g.addNode(KindMath, name)
	n.mathOp = op
	n.useClamp = clamp
	n.addIn("Value", glprog.Float, glprog.FloatLit(default1))
	n.addIn("Value2", glprog.Float, glprog.FloatLit(default2))
	n.addOut("Value", glprog.Float)
	return n
}

// NewVectorMath returns a vector math node. The Normalize operation
// takes a single vector input; every other operation takes two.
func (g *Graph) NewVectorMath(name string, op VectorMathOp) *Node {
	n := g.addNode(KindVectorMath, name)
	n.vecOp = op
	n.addIn("Vector", glprog.Vec3, glprog.Vec3Lit(ms3.Vec{}))
	if op != VectorMathNormalize {
		n.addIn("Vector2", glprog.Vec3, glprog.Vec3Lit(ms3.Vec{}))
	}
	n.addOut("Vector", glprog.Vec3)
	n.addOut("Value", glprog.Float)
	return n
}

// NewMixRGB returns a color blend node. clamp constrains the result to
// [0, 1] after blending.
func (g *Graph) NewMixRGB(name string, blend MixRGBBlend, clamp bool) *Node {
	n := g.addNode(KindMixRGB, name)
	n.blend = blend
	n.useClamp = clamp
	n.addIn("Fac", glprog.Float, glprog.FloatLit(0.5))
	n.addIn("Color1", glprog.Color, glprog.ColorLit(ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1))
	n.addIn("Color2", glprog.Color, glprog.ColorLit(ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1))
	n.addOut("Color", glprog.Color)
	return n
}

// NewRGBToBW returns a color-to-luma node.
func (g *Graph) NewRGBToBW(name string) *Node {
	n := g.addNode(KindRGBToBW, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1))
	n.addOut("Val", glprog.Float)
	return n
}

// NewGamma returns a gamma correction node.
func (g *Graph) NewGamma(name string) *Node {
	n := g.addNode(KindGamma, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 1, Y: 1, Z: 1}, 1))
	n.addIn("Gamma", glprog.Float, glprog.FloatLit(1))
	n.addOut("Color", glprog.Color)
	return n
}

// NewSeparateXYZ returns a vector component splitter.
func (g *Graph) NewSeparateXYZ(name string) *Node {
	n := g.addNode(KindSeparateXYZ, name)
	n.addIn("Vector", glprog.Vec3, glprog.Vec3Lit(ms3.Vec{}))
	n.addOut("X", glprog.Float)
	n.addOut("Y", glprog.Float)
	n.addOut("Z", glprog.Float)
	return n
}

// NewSeparateRGB returns a color component splitter.
func (g *Graph) NewSeparateRGB(name string) *Node {
	n := g.addNode(KindSeparateRGB, name)
	n.addIn("Image", glprog.Color, glprog.ColorLit(ms3.Vec{X: 1, Y: 1, Z: 1}, 1))
	n.addOut("R", glprog.Float)
	n.addOut("G", glprog.Float)
	n.addOut("B", glprog.Float)
	return n
}

// NewCombineRGB returns a color component combiner; alpha is fixed 1.
func (g *Graph) NewCombineRGB(name string) *Node {
	n := g.addNode(KindCombineRGB, name)
	n.addIn("R", glprog.Float, glprog.FloatLit(0))
	n.addIn("G", glprog.Float, glprog.FloatLit(0))
	n.addIn("B", glprog.Float, glprog.FloatLit(0))
	n.addOut("Image", glprog.Color)
	return n
}

// NewMapping returns a TRS coordinate transform node. The matrix is
// computed on the host side and emitted as a single mat4 literal.
func (g *Graph) NewMapping(name string, opts MappingOpts) *Node {
	n := g.addNode(KindMapping, name)
	n.mapping = opts
	n.addIn("Vector", glprog.Vec3, glprog.Vec3Lit(ms3.Vec{}))
	n.addOut("Vector", glprog.Vec3)
	return n
}

// NewImageTexture returns a texture sampling node. img identifies the
// source image; an empty handle compiles with a warning and still emits
// a sampler uniform.
func (g *Graph) NewImageTexture(name string, img glprog.ImageHandle) *Node {
	n := g.addNode(KindImageTexture, name)
	n.image = img
	n.addIn("Vector", glprog.Vec3, glprog.Vec3Lit(ms3.Vec{}))
	n.addOut("Color", glprog.Color)
	n.addOut("Alpha", glprog.Float)
	return n
}

// NewTexCoord returns a texture coordinate source node. The Generated
// output is not supported and compiles to a constant with a warning.
func (g *Graph) NewTexCoord(name string) *Node {
	n := g.addNode(KindTexCoord, name)
	n.addOut("Generated", glprog.Vec3)
	n.addOut("Normal", glprog.Vec3)
	n.addOut("UV", glprog.Vec3)
	n.addOut("Object", glprog.Vec3)
	n.addOut("Camera", glprog.Vec3)
	n.addOut("Window", glprog.Vec3)
	n.addOut("Reflection", glprog.Vec3)
	return n
}

// NewUVMap returns a UV coordinate source node.
func (g *Graph) NewUVMap(name string) *Node {
	n := g.addNode(KindUVMap, name)
	n.addOut("UV", glprog.Vec3)
	return n
}

// NewTangent returns a UV-map tangent source node.
func (g *Graph) NewTangent(name string) *Node {
	n := g.addNode(KindTangent, name)
	n.addOut("Tangent", glprog.Vec3)
	return n
}

// NewNormalMap returns a normal map node for the given space.
func (g *Graph) NewNormalMap(name string, space NormalMapSpace, strength float32) *Node {
	n := g.addNode(KindNormalMap, name)
	n.space = space
	n.addIn("Strength", glprog.Float, glprog.FloatLit(strength))
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 0.5, Y: 0.5, Z: 1}, 1))
	n.addOut("Normal", glprog.Vec3)
	return n
}

// NewBump returns a height-to-normal bump node.
func (g *Graph) NewBump(name string, invert bool) *Node {
	n := g.addNode(KindBump, name)
	n.invert = invert
	n.addIn("Strength", glprog.Float, glprog.FloatLit(1))
	n.addIn("Distance", glprog.Float, glprog.FloatLit(0.1))
	n.addIn("Height", glprog.Float, glprog.FloatLit(1))
	n.addIn("Normal", glprog.Vec3, glprog.Value{})
	n.addOut("Normal", glprog.Vec3)
	return n
}

// NewPrincipledBSDF returns a principled shading node with the standard
// input defaults.
func (g *Graph) NewPrincipledBSDF(name string) *Node {
	n := g.addNode(KindBsdfPrincipled, name)
	grey := glprog.ColorLit(ms3.Vec{X: 0.8, Y: 0.8, Z: 0.8}, 1)
	n.addIn("Base Color", glprog.Color, grey)
	n.addIn("Subsurface", glprog.Float, glprog.FloatLit(0))
	n.addIn("Subsurface Color", glprog.Color, grey)
	n.addIn("Metallic", glprog.Float, glprog.FloatLit(0))
	n.addIn("Specular", glprog.Float, glprog.FloatLit(0.5))
	n.addIn("Roughness", glprog.Float, glprog.FloatLit(0.5))
	n.addIn("Clearcoat", glprog.Float, glprog.FloatLit(0))
	n.addIn("Clearcoat Roughness", glprog.Float, glprog.FloatLit(0.03))
	n.addIn("Anisotropic", glprog.Float, glprog.FloatLit(0))
	n.addIn("Transmission", glprog.Float, glprog.FloatLit(0))
	n.addIn("IOR", glprog.Float, glprog.FloatLit(1.45))
	n.addIn("Normal", glprog.Vec3, glprog.Value{})
	n.addIn("Tangent", glprog.Vec3, glprog.Value{})
	n.addOut("BSDF", glprog.Closure)
	return n
}

// NewDiffuseBSDF returns a diffuse shading node.
func (g *Graph) NewDiffuseBSDF(name string) *Node {
	n := g.addNode(KindBsdfDiffuse, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 0.8, Y: 0.8, Z: 0.8}, 1))
	n.addIn("Roughness", glprog.Float, glprog.FloatLit(0))
	n.addIn("Normal", glprog.Vec3, glprog.Value{})
	n.addOut("BSDF", glprog.Closure)
	return n
}

// NewGlossyBSDF returns a glossy shading node.
func (g *Graph) NewGlossyBSDF(name string) *Node {
	n := g.addNode(KindBsdfGlossy, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 0.8, Y: 0.8, Z: 0.8}, 1))
	n.addIn("Roughness", glprog.Float, glprog.FloatLit(0.5))
	n.addIn("Normal", glprog.Vec3, glprog.Value{})
	n.addOut("BSDF", glprog.Closure)
	return n
}

// NewEmission returns an emission shading node.
func (g *Graph) NewEmission(name string) *Node {
	n := g.addNode(KindEmission, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 1, Y: 1, Z: 1}, 1))
	n.addIn("Strength", glprog.Float, glprog.FloatLit(1))
	n.addOut("Emission", glprog.Closure)
	return n
}

// NewTransparentBSDF returns a transparent shading node.
func (g *Graph) NewTransparentBSDF(name string) *Node {
	n := g.addNode(KindBsdfTransparent, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 1, Y: 1, Z: 1}, 1))
	n.addOut("BSDF", glprog.Closure)
	return n
}

// NewGlassBSDF returns a glass shading node. Compiling it enables the
// screen-texture refraction path in the surface epilogue.
func (g *Graph) NewGlassBSDF(name string) *Node {
	n := g.addNode(KindBsdfGlass, name)
	n.addIn("Color", glprog.Color, glprog.ColorLit(ms3.Vec{X: 1, Y: 1, Z: 1}, 1))
	n.addIn("Roughness", glprog.Float, glprog.FloatLit(0))
	n.addIn("IOR", glprog.Float, glprog.FloatLit(1.45))
	n.addIn("Normal", glprog.Vec3, glprog.Value{})
	n.addOut("BSDF", glprog.Closure)
	return n
}

// NewAddShader returns a closure addition node.
func (g *Graph) NewAddShader(name string) *Node {
	n := g.addNode(KindAddShader, name)
	n.addIn("Shader", glprog.Closure, glprog.Value{})
	n.addIn("Shader2", glprog.Closure, glprog.Value{})
	n.addOut("Shader", glprog.Closure)
	return n
}

// NewMixShader returns a closure interpolation node. fac seeds the Fac
// socket default and may be overridden later through SetFloat.
func (g *Graph) NewMixShader(name string, fac float32) *Node {
	n := g.addNode(KindMixShader, name)
	n.addIn("Fac", glprog.Float, glprog.FloatLit(fac))
	n.addIn("Shader", glprog.Closure, glprog.Value{})
	n.addIn("Shader2", glprog.Closure, glprog.Value{})
	n.addOut("Shader", glprog.Closure)
	return n
}
