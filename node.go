package gshade

import (
	"github.com/gshade/gshade/glprog"
	"github.com/soypat/geometry/ms3"
)

// NodeKind tags every node with its operator. The set is closed; the
// compiler dispatches one strategy per kind.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota
	KindReroute
	KindRGB
	KindValue
	KindMath
	KindVectorMath
	KindMixRGB
	KindRGBToBW
	KindGamma
	KindSeparateXYZ
	KindSeparateRGB
	KindCombineRGB
	KindMapping
	KindImageTexture
	KindTexCoord
	KindUVMap
	KindTangent
	KindNormalMap
	KindBump
	KindBsdfPrincipled
	KindBsdfDiffuse
	KindBsdfGlossy
	KindEmission
	KindBsdfTransparent
	KindBsdfGlass
	KindAddShader
	KindMixShader
	KindOutputMaterial
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindReroute:         "reroute",
	KindRGB:             "rgb",
	KindValue:           "value",
	KindMath:            "math",
	KindVectorMath:      "vector_math",
	KindMixRGB:          "mix_rgb",
	KindRGBToBW:         "rgb_to_bw",
	KindGamma:           "gamma",
	KindSeparateXYZ:     "separate_xyz",
	KindSeparateRGB:     "separate_rgb",
	KindCombineRGB:      "combine_rgb",
	KindMapping:         "mapping",
	KindImageTexture:    "tex_image",
	KindTexCoord:        "tex_coord",
	KindUVMap:           "uv_map",
	KindTangent:         "tangent",
	KindNormalMap:       "normal_map",
	KindBump:            "bump",
	KindBsdfPrincipled:  "bsdf_principled",
	KindBsdfDiffuse:     "bsdf_diffuse",
	KindBsdfGlossy:      "bsdf_glossy",
	KindEmission:        "emission",
	KindBsdfTransparent: "bsdf_transparent",
	KindBsdfGlass:       "bsdf_glass",
	KindAddShader:       "add_shader",
	KindMixShader:       "mix_shader",
	KindOutputMaterial:  "output_material",
}

func (k NodeKind) String() string {
	if int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// MathOp selects the operation of a Math node.
type MathOp uint8

const (
	MathAdd MathOp = iota
	MathSubtract
	MathMultiply
	MathDivide
	MathPower
	MathLogarithm
	MathSqrt
	MathAbsolute
	MathMinimum
	MathMaximum
	MathLessThan
	MathGreaterThan
	MathRound
	MathFloor
	MathCeil
	MathFract
	MathModulo
	MathSine
	MathCosine
	MathTangent
	MathArcsine
	MathArccosine
	MathArctangent
	MathArctan2
)

var mathOpNames = [...]string{
	MathAdd:         "add",
	MathSubtract:    "subtract",
	MathMultiply:    "multiply",
	MathDivide:      "divide",
	MathPower:       "power",
	MathLogarithm:   "logarithm",
	MathSqrt:        "sqrt",
	MathAbsolute:    "absolute",
	MathMinimum:     "minimum",
	MathMaximum:     "maximum",
	MathLessThan:    "less_than",
	MathGreaterThan: "greater_than",
	MathRound:       "round",
	MathFloor:       "floor",
	MathCeil:        "ceil",
	MathFract:       "fract",
	MathModulo:      "modulo",
	MathSine:        "sine",
	MathCosine:      "cosine",
	MathTangent:     "tangent",
	MathArcsine:     "arcsine",
	MathArccosine:   "arccosine",
	MathArctangent:  "arctangent",
	MathArctan2:     "arctan2",
}

func (op MathOp) String() string {
	if int(op) >= len(mathOpNames) {
		return "invalid"
	}
	return mathOpNames[op]
}

// VectorMathOp selects the operation of a VectorMath node.
type VectorMathOp uint8

const (
	VectorMathAdd VectorMathOp = iota
	VectorMathSubtract
	VectorMathAverage
	VectorMathDotProduct
	VectorMathCrossProduct
	VectorMathNormalize
)

var vectorMathOpNames = [...]string{
	VectorMathAdd:          "add",
	VectorMathSubtract:     "subtract",
	VectorMathAverage:      "average",
	VectorMathDotProduct:   "dot_product",
	VectorMathCrossProduct: "cross_product",
	VectorMathNormalize:    "normalize",
}

func (op VectorMathOp) String() string {
	if int(op) >= len(vectorMathOpNames) {
		return "invalid"
	}
	return vectorMathOpNames[op]
}

// MixRGBBlend selects the blend type of a MixRGB node. Blend types with
// no library entry fall back to MixBlendMix at compile time, with a
// warning.
type MixRGBBlend uint8

const (
	MixBlendMix MixRGBBlend = iota
	MixBlendAdd
	MixBlendSubtract
	MixBlendMultiply
	MixBlendDivide
	MixBlendDifference
	MixBlendDarken
	MixBlendLighten
	MixBlendScreen
	MixBlendOverlay
)

var mixBlendNames = [...]string{
	MixBlendMix:        "mix",
	MixBlendAdd:        "add",
	MixBlendSubtract:   "subtract",
	MixBlendMultiply:   "multiply",
	MixBlendDivide:     "divide",
	MixBlendDifference: "difference",
	MixBlendDarken:     "darken",
	MixBlendLighten:    "lighten",
	MixBlendScreen:     "screen",
	MixBlendOverlay:    "overlay",
}

func (b MixRGBBlend) String() string {
	if int(b) >= len(mixBlendNames) {
		return "invalid"
	}
	return mixBlendNames[b]
}

// NormalMapSpace selects which space a NormalMap node's texture color is
// expressed in.
type NormalMapSpace uint8

const (
	NormalMapTangent NormalMapSpace = iota
	NormalMapObject
	NormalMapWorld
)

var normalMapSpaceNames = [...]string{
	NormalMapTangent: "tangent",
	NormalMapObject:  "object",
	NormalMapWorld:   "world",
}

func (sp NormalMapSpace) String() string {
	if int(sp) >= len(normalMapSpaceNames) {
		return "invalid"
	}
	return normalMapSpaceNames[sp]
}

// MappingType selects how a Mapping node's TRS transform applies to its
// input.
type MappingType uint8

const (
	// MappingPoint applies the full affine transform.
	MappingPoint MappingType = iota
	// MappingTexture applies the inverse of the full transform, mapping
	// texture coordinates backwards.
	MappingTexture
	// MappingVector applies rotation and scale only.
	MappingVector
	// MappingNormal applies rotation and scale and renormalizes.
	MappingNormal
)

// MappingOpts are the static parameters of a Mapping node. Rotation is
// an XYZ-order Euler triple in radians. A zero Scale is treated as the
// unit scale (1, 1, 1).
type MappingOpts struct {
	Type        MappingType
	Translation ms3.Vec
	Rotation    ms3.Vec
	Scale       ms3.Vec
	Min, Max    ms3.Vec
	UseMin      bool
	UseMax      bool
}

type socketDir uint8

const (
	dirIn socketDir = iota
	dirOut
)

// Socket is one typed connection point of a node. Inputs accept at most
// one incoming link; outputs fan out to any number of links.
type Socket struct {
	node *Node
	name string
	typ  glprog.Type
	dir  socketDir
	// def is the literal used when an input has no incoming link.
	def glprog.Value
	// incoming link, inputs only.
	link *Link
	// outgoing links, outputs only.
	outLinks []*Link
}

// Name returns the socket's name as shown on the node.
func (s *Socket) Name() string { return s.name }

// Type returns the socket's declared lattice type.
func (s *Socket) Type() glprog.Type { return s.typ }

// Node returns the owning node.
func (s *Socket) Node() *Node { return s.node }

// Linked reports whether the socket participates in at least one link.
func (s *Socket) Linked() bool {
	return s.link != nil || len(s.outLinks) > 0
}

// SetFloat overrides the default an unlinked scalar input compiles to.
// Panics when called on an output or a socket of another type.
func (s *Socket) SetFloat(v float32) { s.setDefault(glprog.FloatLit(v)) }

// SetVec3 overrides the default of an unlinked vector input.
func (s *Socket) SetVec3(v ms3.Vec) { s.setDefault(glprog.Vec3Lit(v)) }

// SetColor overrides the default of an unlinked color input.
func (s *Socket) SetColor(rgb ms3.Vec, alpha float32) {
	s.setDefault(glprog.ColorLit(rgb, alpha))
}

func (s *Socket) setDefault(v glprog.Value) {
	if s.dir != dirIn {
		panic("gshade: default set on output socket " + s.node.Name + "." + s.name)
	}
	if v.Type() != s.typ {
		panic("gshade: default type mismatch on socket " + s.node.Name + "." + s.name)
	}
	s.def = v
}

// Link is a directed edge from a producer output socket to a consumer
// input socket.
type Link struct {
	From *Socket
	To   *Socket
}

// Node is one operator of the shading graph. Static parameters are fixed
// at construction; sockets carry the dataflow.
type Node struct {
	Kind NodeKind
	Name string

	ins  []*Socket
	outs []*Socket

	// static parameters, populated per kind by the Graph constructors.
	mathOp   MathOp
	vecOp    VectorMathOp
	blend    MixRGBBlend
	space    NormalMapSpace
	useClamp bool
	invert   bool
	mapping  MappingOpts
	image    glprog.ImageHandle
}

// In returns the input socket with the given name, nil if absent.
func (n *Node) In(name string) *Socket {
	for _, s := range n.ins {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Out returns the output socket with the given name, nil if absent.
func (n *Node) Out(name string) *Socket {
	for _, s := range n.outs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Output returns the node's first output socket. Panics on nodes with no
// outputs (OutputMaterial).
func (n *Node) Output() *Socket {
	if len(n.outs) == 0 {
		panic("gshade: node " + n.Name + " has no outputs")
	}
	return n.outs[0]
}

// Inputs returns the input sockets in declaration order.
func (n *Node) Inputs() []*Socket { return n.ins }

// Outputs returns the output sockets in declaration order.
func (n *Node) Outputs() []*Socket { return n.outs }

func (n *Node) addIn(name string, typ glprog.Type, def glprog.Value) *Socket {
	s := &Socket{node: n, name: name, typ: typ, dir: dirIn, def: def}
	n.ins = append(n.ins, s)
	return s
}

func (n *Node) addOut(name string, typ glprog.Type) *Socket {
	s := &Socket{node: n, name: name, typ: typ, dir: dirOut}
	n.outs = append(n.outs, s)
	return s
}

// funcName derives the library entry name for the node from its kind and
// the options that change emitted code.
func (n *Node) funcName() string {
	switch n.Kind {
	case KindMath:
		if n.useClamp {
			return "node_math_" + n.mathOp.String() + "_clamp"
		}
		return "node_math_" + n.mathOp.String() + "_no_clamp"
	case KindVectorMath:
		return "node_vector_math_" + n.vecOp.String()
	case KindMixRGB:
		return "node_mix_rgb_" + n.blend.String()
	case KindNormalMap:
		return "node_normal_map_" + n.space.String()
	default:
		return "node_" + n.Kind.String()
	}
}
