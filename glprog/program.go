package glprog

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

// Stage selects which generated function body a statement lands in.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

// Builtins names the target program's built-in variables. They are
// environment constants of the target engine's spatial shading language,
// supplied by the integration layer rather than discovered here.
type Builtins struct {
	Vertex        string // position, view space
	Normal        string
	Tangent       string
	Binormal      string
	UV            string
	ScreenUV      string
	ViewMat       string // world-to-view matrix
	ModelMat      string // model-to-world matrix
	ScreenTexture string
	Emission      string
	Albedo        string
	Alpha         string
	Roughness     string
}

// SpatialBuiltins is the built-in variable set of the Godot spatial
// shading language.
var SpatialBuiltins = Builtins{
	Vertex:        "VERTEX",
	Normal:        "NORMAL",
	Tangent:       "TANGENT",
	Binormal:      "BINORMAL",
	UV:            "UV",
	ScreenUV:      "SCREEN_UV",
	ViewMat:       "INV_CAMERA_MATRIX",
	ModelMat:      "WORLD_MATRIX",
	ScreenTexture: "SCREEN_TEXTURE",
	Emission:      "EMISSION",
	Albedo:        "ALBEDO",
	Alpha:         "ALPHA",
	Roughness:     "ROUGHNESS",
}

// ChannelOut returns the fragment built-in output a closure channel binds
// to in the surface epilogue.
func (b Builtins) ChannelOut(c Channel) string {
	switch c {
	case ChanAlbedo:
		return "ALBEDO"
	case ChanAlpha:
		return "ALPHA"
	case ChanSSSStrength:
		return "SSS_STRENGTH"
	case ChanSpecular:
		return "SPECULAR"
	case ChanMetallic:
		return "METALLIC"
	case ChanRoughness:
		return "ROUGHNESS"
	case ChanClearcoat:
		return "CLEARCOAT"
	case ChanClearcoatGloss:
		return "CLEARCOAT_GLOSS"
	case ChanAnisotropy:
		return "ANISOTROPY"
	case ChanTransmission:
		return "TRANSMISSION"
	case ChanEmission:
		return "EMISSION"
	case ChanNormal:
		return "NORMAL"
	case ChanTangent:
		return "TANGENT"
	}
	return ""
}

// ImageHandle identifies a source image referenced by a texture node. The
// compiler treats it as an opaque key; the caller resolves handles into
// actual texture bindings after compilation.
type ImageHandle string

// TextureBinding pairs a referenced image with the sampler uniform
// generated for it.
type TextureBinding struct {
	Image      ImageHandle
	Uniform    string
	HintNormal bool
}

// UniformDecl is one uniform declaration of the generated program.
type UniformDecl struct {
	Name    string
	Type    Type
	Hint    string // optional, e.g. "hint_normal"
	Default string // optional default value expression
}

// Program accumulates the output of one compile call: uniforms, the set
// of referenced catalog functions, per-stage statement streams and the
// image-to-sampler table. Rendering is reproducible: functions emit
// sorted by name, everything else in first-requested order.
type Program struct {
	RenderModes []string
	Builtins    Builtins

	Warnings []string

	uniforms     []UniformDecl
	uniformCount int
	funcs        map[string]*Function
	textures     []TextureBinding
	textureIdx   map[ImageHandle]int

	Vertex   StageCode
	Fragment StageCode
}

// NewSpatialProgram returns a Program targeting the spatial shading
// language with the default render modes.
func NewSpatialProgram() *Program {
	p := &Program{
		RenderModes: []string{
			"blend_mix",
			"depth_draw_always",
			"cull_back",
			"diffuse_burley",
			"specular_schlick_ggx",
		},
		Builtins:   SpatialBuiltins,
		funcs:      make(map[string]*Function),
		textureIdx: make(map[ImageHandle]int),
	}
	p.Vertex = StageCode{prog: p, stage: StageVertex}
	p.Fragment = StageCode{prog: p, stage: StageFragment}
	return p
}

// Stage returns the statement stream for s.
func (p *Program) Stage(s Stage) *StageCode {
	if s == StageVertex {
		return &p.Vertex
	}
	return &p.Fragment
}

// Warnf records a non-fatal compilation warning for the caller to log.
func (p *Program) Warnf(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

// AddFunction registers a catalog function for emission. Functions
// deduplicate by name so any number of nodes resolving to the same entry
// yield a single body in the rendered program.
func (p *Program) AddFunction(fn *Function) {
	if _, ok := p.funcs[fn.Name]; !ok {
		p.funcs[fn.Name] = fn
	}
}

// Uniform declares a new uniform with a unique generated name and
// returns a Value referring to it.
func (p *Program) Uniform(t Type, baseName, hint, defaultExpr string) Value {
	p.uniformCount++
	name := cleanIdent("uni" + strconv.Itoa(p.uniformCount) + "_" + baseName)
	p.uniforms = append(p.uniforms, UniformDecl{Name: name, Type: t, Hint: hint, Default: defaultExpr})
	return Var(t, name)
}

// Uniforms returns the declared uniforms in declaration order, sampler
// uniforms included.
func (p *Program) Uniforms() []UniformDecl {
	decls := append([]UniformDecl{}, p.uniforms...)
	for _, tb := range p.textures {
		hint := ""
		if tb.HintNormal {
			hint = "hint_normal"
		}
		decls = append(decls, UniformDecl{Name: tb.Uniform, Type: Sampler2D, Hint: hint})
	}
	return decls
}

// SamplerFor returns the sampler uniform for img, creating it on first
// use. Reuse of the same image by several texture nodes resolves to the
// single uniform created first; the normal hint of the first use wins.
func (p *Program) SamplerFor(img ImageHandle, hintNormal bool) Value {
	if i, ok := p.textureIdx[img]; ok {
		return Var(Sampler2D, p.textures[i].Uniform)
	}
	name := "texture_" + strconv.Itoa(len(p.textures))
	p.textureIdx[img] = len(p.textures)
	p.textures = append(p.textures, TextureBinding{Image: img, Uniform: name, HintNormal: hintNormal})
	return Var(Sampler2D, name)
}

// Textures returns the image-to-uniform table in first-use order.
func (p *Program) Textures() []TextureBinding {
	return p.textures
}

// Functions returns the referenced catalog functions sorted by name.
func (p *Program) Functions() []*Function {
	fns := make([]*Function, 0, len(p.funcs))
	for _, fn := range p.funcs {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns
}

// Append renders the complete program text to b and returns the result.
func (p *Program) Append(b []byte) []byte {
	b = append(b, "shader_type spatial;\n"...)
	b = append(b, "render_mode "...)
	for i, m := range p.RenderModes {
		b = append(b, m...)
		if i != len(p.RenderModes)-1 {
			b = append(b, ", "...)
		}
	}
	b = append(b, ";\n\n"...)

	for _, u := range p.Uniforms() {
		b = append(b, "uniform "...)
		b = append(b, u.Type.String()...)
		b = append(b, ' ')
		b = append(b, u.Name...)
		if u.Hint != "" {
			b = append(b, " : "...)
			b = append(b, u.Hint...)
		}
		if u.Default != "" {
			b = append(b, " = "...)
			b = append(b, u.Default...)
		}
		b = append(b, ";\n"...)
	}
	b = append(b, '\n')

	for _, fn := range p.Functions() {
		b = append(b, fn.Source...)
		b = append(b, "\n\n"...)
	}

	b = p.Vertex.append(b)
	b = append(b, '\n')
	b = p.Fragment.append(b)
	return b
}

// WriteTo renders the program text to w. Implements [io.WriterTo].
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Append(nil))
	return int64(n), err
}

var identCleanRE = regexp.MustCompile(`\W`)

func cleanIdent(s string) string {
	return identCleanRE.ReplaceAllString(s, "")
}

// StageCode is the statement stream of one generated stage function.
// Statements append in emission order; head statements (lazy inverse
// matrix computations) render before everything else.
type StageCode struct {
	prog  *Program
	stage Stage

	head     []string
	lines    []string
	varCount int

	invView  Value
	invModel Value
}

// Stage returns which stage the stream belongs to.
func (sc *StageCode) Stage() Stage { return sc.stage }

// Builtins returns the target built-in variable names.
func (sc *StageCode) Builtins() Builtins { return sc.prog.Builtins }

// Linef appends one statement. The terminating semicolon is added when
// the formatted line does not end in one already.
func (sc *StageCode) Linef(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if line != "" && line[len(line)-1] != ';' {
		line += ";"
	}
	sc.lines = append(sc.lines, line)
}

// Commentf appends a comment line.
func (sc *StageCode) Commentf(format string, args ...any) {
	sc.lines = append(sc.lines, "// "+fmt.Sprintf(format, args...))
}

// BlankLine appends an empty line, purely cosmetic.
func (sc *StageCode) BlankLine() {
	sc.lines = append(sc.lines, "")
}

// NewVar declares a fresh variable of type t and returns it. hint becomes
// part of the generated identifier after illegal characters are dropped.
func (sc *StageCode) NewVar(t Type, hint string) Value {
	sc.varCount++
	name := cleanIdent("var" + strconv.Itoa(sc.varCount) + "_" + hint)
	sc.lines = append(sc.lines, t.String()+" "+name+";")
	return Var(t, name)
}

// Assign emits dst = src. dst must be a variable.
func (sc *StageCode) Assign(dst, src Value) {
	sc.Linef("%s = %s", dst, src)
}

// Materialize returns v if it is already a variable, otherwise declares a
// fresh variable, assigns v to it and returns the variable. Used when a
// value must be mutated in place (space conversions).
func (sc *StageCode) Materialize(v Value, hint string) Value {
	if v.IsVar() {
		return v
	}
	nv := sc.NewVar(v.Type(), hint)
	sc.Assign(nv, v)
	return nv
}

// CallFunction registers fn with the program and emits a call statement
// binding ins and outs positionally. Argument types must match the
// catalog signature exactly; coercions happen before the call.
func (sc *StageCode) CallFunction(fn *Function, ins, outs []Value) error {
	if len(ins) != len(fn.Ins) || len(outs) != len(fn.Outs) {
		return fmt.Errorf("%s: got %d in / %d out arguments, want %d/%d",
			fn.Name, len(ins), len(outs), len(fn.Ins), len(fn.Outs))
	}
	for i, v := range ins {
		if v.Type() != fn.Ins[i].Type {
			return fmt.Errorf("%s: argument %q is %s, want %s",
				fn.Name, fn.Ins[i].Name, v.Type(), fn.Ins[i].Type)
		}
	}
	for i, v := range outs {
		if !v.IsVar() {
			return fmt.Errorf("%s: out argument %q is not a variable", fn.Name, fn.Outs[i].Name)
		}
		if v.Type() != fn.Outs[i].Type {
			return fmt.Errorf("%s: out argument %q is %s, want %s",
				fn.Name, fn.Outs[i].Name, v.Type(), fn.Outs[i].Type)
		}
	}
	sc.prog.AddFunction(fn)
	b := append([]byte{}, fn.Name...)
	b = append(b, '(')
	for i, v := range ins {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, v.String()...)
	}
	for _, v := range outs {
		if len(ins) > 0 || len(b) > len(fn.Name)+1 {
			b = append(b, ", "...)
		}
		b = append(b, v.String()...)
	}
	b = append(b, ");"...)
	sc.lines = append(sc.lines, string(b))
	return nil
}

// InvViewMat returns the inverse of the view matrix, computing it once at
// the top of the stage on first request.
func (sc *StageCode) InvViewMat() Value {
	if sc.invView.IsZero() {
		sc.invView = Var(Mat4, "inverted_view_matrix")
		sc.head = append(sc.head,
			"mat4 inverted_view_matrix = inverse("+sc.prog.Builtins.ViewMat+");")
	}
	return sc.invView
}

// InvModelMat returns the inverse of the model matrix, computing it once
// at the top of the stage on first request.
func (sc *StageCode) InvModelMat() Value {
	if sc.invModel.IsZero() {
		sc.invModel = Var(Mat4, "inverted_model_matrix")
		sc.head = append(sc.head,
			"mat4 inverted_model_matrix = inverse("+sc.prog.Builtins.ModelMat+");")
	}
	return sc.invModel
}

func (sc *StageCode) append(b []byte) []byte {
	b = append(b, "void "...)
	b = append(b, sc.stage.String()...)
	b = append(b, " () {\n"...)
	for _, line := range sc.head {
		b = appendWrapped(b, line)
	}
	for _, line := range sc.lines {
		if line == "" {
			b = append(b, '\n')
			continue
		}
		b = appendWrapped(b, line)
	}
	b = append(b, "}\n"...)
	return b
}
