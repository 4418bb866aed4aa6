package gshade

import (
	"fmt"

	"github.com/gshade/gshade/glprog"
	"github.com/gshade/gshade/glprog/shaderlib"
)

// Compile translates the graph into a spatial shader program. The
// surface and displacement roots compile in independent sessions; a node
// feeding both roots compiles once per session. Recoverable problems
// (unsupported node configurations, missing images) end up in the
// returned program's Warnings; malformed graphs (cycles, incompatible
// links, accumulated construction errors) fail with no program.
func Compile(g *Graph) (*glprog.Program, error) {
	if err := g.Err(); err != nil {
		return nil, err
	}
	prog := glprog.NewSpatialProgram()
	c := &compiler{graph: g, prog: prog}

	if surf := g.Surface(); surf.link != nil {
		s := c.newSession(&prog.Fragment)
		res, err := s.inputValue(surf)
		if err != nil {
			return nil, err
		}
		cv, ok := res.(glprog.ClosureValue)
		if !ok {
			return nil, fmt.Errorf("surface root produced %T, want closure", res)
		}
		if err := s.surfaceEpilogue(cv); err != nil {
			return nil, err
		}
	}
	if disp := g.Displacement(); disp.link != nil {
		s := c.newSession(&prog.Fragment)
		res, err := s.inputValue(disp)
		if err != nil {
			return nil, err
		}
		height, ok := res.(glprog.Value)
		if !ok {
			return nil, fmt.Errorf("displacement root produced %T, want scalar", res)
		}
		if err := s.displacementEpilogue(height); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

type compiler struct {
	graph *Graph
	prog  *glprog.Program

	// set when a glass or principled shading node compiles, switches the
	// surface epilogue to the Fresnel refraction path.
	glassEffect bool
}

type nodeState uint8

const (
	stateUnvisited nodeState = iota
	stateInProgress
	stateCompiled
)

// session is the per-root compilation state: one socket-to-result cache
// and one node state map, never shared across roots.
type session struct {
	c     *compiler
	sc    *glprog.StageCode
	state map[*Node]nodeState
	vals  map[*Socket]glprog.Compiled
}

func (c *compiler) newSession(sc *glprog.StageCode) *session {
	return &session{
		c:     c,
		sc:    sc,
		state: make(map[*Node]nodeState),
		vals:  make(map[*Socket]glprog.Compiled),
	}
}

func (s *session) warnf(format string, args ...any) {
	s.c.prog.Warnf(format, args...)
}

// outputValue compiles the node owning out on first demand and returns
// the cached result afterwards.
func (s *session) outputValue(out *Socket) (glprog.Compiled, error) {
	n := out.node
	switch s.state[n] {
	case stateCompiled:
		v, ok := s.vals[out]
		if !ok {
			return nil, fmt.Errorf("node %q produced no value for output %q", n.Name, out.name)
		}
		return v, nil
	case stateInProgress:
		return nil, fmt.Errorf("%w: detected at node %q", ErrGraphCycle, n.Name)
	}
	s.state[n] = stateInProgress
	for _, in := range n.ins {
		if in.link != nil {
			if _, err := s.outputValue(in.link.From); err != nil {
				return nil, err
			}
		}
	}
	s.sc.Commentf("node: %s", n.Name)
	s.sc.Commentf("type: %s", n.Kind)
	strat, ok := strategies[n.Kind]
	if !ok {
		s.unsupported(n, "no code generation strategy")
	} else if err := strat(s, n); err != nil {
		return nil, err
	}
	s.sc.BlankLine()
	s.state[n] = stateCompiled
	v, ok := s.vals[out]
	if !ok {
		return nil, fmt.Errorf("node %q produced no value for output %q", n.Name, out.name)
	}
	return v, nil
}

// inputValue resolves an input socket to its compiled value: the linked
// producer's result run through the coercion table, or the socket's
// static default.
func (s *session) inputValue(in *Socket) (glprog.Compiled, error) {
	if in.link == nil {
		if in.typ == glprog.Closure {
			return glprog.DefaultClosure(), nil
		}
		return in.defaultValue(), nil
	}
	v, err := s.outputValue(in.link.From)
	if err != nil {
		return nil, err
	}
	from := in.link.From.typ
	if from == in.typ {
		return v, nil
	}
	val, ok := v.(glprog.Value)
	if !ok {
		return nil, fmt.Errorf("cannot coerce closure at %s.%s", in.node.Name, in.name)
	}
	return coerce(val, in.typ), nil
}

// scalarInput is inputValue for non-closure sockets.
func (s *session) scalarInput(in *Socket) (glprog.Value, error) {
	v, err := s.inputValue(in)
	if err != nil {
		return glprog.Value{}, err
	}
	val, ok := v.(glprog.Value)
	if !ok {
		return glprog.Value{}, fmt.Errorf("socket %s.%s carries a closure", in.node.Name, in.name)
	}
	return val, nil
}

// argValue resolves an input for use as a function call argument. An
// unlinked input materializes its default into a named variable first,
// keeping the call site readable.
func (s *session) argValue(in *Socket) (glprog.Value, error) {
	v, err := s.scalarInput(in)
	if err != nil {
		return glprog.Value{}, err
	}
	if in.link == nil {
		nv := s.sc.NewVar(in.typ, in.name)
		s.sc.Assign(nv, v)
		return nv, nil
	}
	return v, nil
}

func (in *Socket) defaultValue() glprog.Value {
	if !in.def.IsZero() {
		return in.def
	}
	switch in.typ {
	case glprog.Float:
		return glprog.FloatLit(0)
	case glprog.Vec3:
		return glprog.Lit(glprog.Vec3, "vec3(0.0, 0.0, 0.0)")
	case glprog.Color:
		return glprog.Lit(glprog.Color, "vec4(0.0, 0.0, 0.0, 1.0)")
	}
	return glprog.Value{}
}

// coerce inserts the implicit conversion expression between two lattice
// types. Pure expression rewriting, emits nothing.
func coerce(v glprog.Value, to glprog.Type) glprog.Value {
	from := v.Type()
	expr := v.String()
	switch {
	case from == to:
		return v
	case to == glprog.Float && from == glprog.Vec3:
		return glprog.Lit(glprog.Float, "dot("+expr+", vec3(0.333333, 0.333333, 0.333333))")
	case to == glprog.Float && from == glprog.Color:
		return glprog.Lit(glprog.Float, "dot("+expr+".rgb, vec3(0.2126, 0.7152, 0.0722))")
	case to == glprog.Vec3 && from == glprog.Float:
		return glprog.Lit(glprog.Vec3, "vec3("+expr+", "+expr+", "+expr+")")
	case to == glprog.Vec3 && from == glprog.Color:
		return glprog.Lit(glprog.Vec3, expr+".rgb")
	case to == glprog.Color && from == glprog.Float:
		return glprog.Lit(glprog.Color, "vec4("+expr+", "+expr+", "+expr+", "+expr+")")
	case to == glprog.Color && from == glprog.Vec3:
		return glprog.Lit(glprog.Color, "vec4("+expr+", 1.0)")
	}
	panic(fmt.Sprintf("gshade: no coercion %s to %s", from, to))
}

// unsupported recovers from a node the compiler cannot translate: a
// warning, a comment in the program and default values on every consumed
// output, so the overall compile still completes.
func (s *session) unsupported(n *Node, reason string) {
	s.warnf("node %q (%s) not supported: %s", n.Name, n.Kind, reason)
	s.sc.Commentf("node '%s' of type '%s' is not supported", n.Name, n.Kind)
	for _, out := range n.outs {
		if len(out.outLinks) == 0 {
			continue
		}
		if out.typ == glprog.Closure {
			s.vals[out] = glprog.DefaultClosure()
			continue
		}
		sock := Socket{typ: out.typ}
		s.vals[out] = sock.defaultValue()
	}
}

// Space conversion helpers. Each materializes its argument and emits one
// intrinsic call mutating the variable in place.

func (s *session) zupToYup(v glprog.Value) (glprog.Value, error) {
	v = s.sc.Materialize(v, "dir")
	s.sc.Commentf("convert from z-up to y-up")
	err := s.sc.CallFunction(shaderlib.Intrinsic("space_convert_zup_to_yup"),
		[]glprog.Value{v}, nil)
	return v, err
}

func (s *session) yupToZup(v glprog.Value) (glprog.Value, error) {
	v = s.sc.Materialize(v, "dir")
	s.sc.Commentf("convert from y-up to z-up")
	err := s.sc.CallFunction(shaderlib.Intrinsic("space_convert_yup_to_zup"),
		[]glprog.Value{v}, nil)
	return v, err
}

func (s *session) worldToView(v glprog.Value, isDir bool) (glprog.Value, error) {
	v = s.sc.Materialize(v, "dir")
	s.sc.Commentf("convert from world space to view space")
	name := "point_space_convert_world_to_view"
	if isDir {
		name = "dir_space_convert_world_to_view"
	}
	viewMat := glprog.Var(glprog.Mat4, s.sc.Builtins().ViewMat)
	err := s.sc.CallFunction(shaderlib.Intrinsic(name),
		[]glprog.Value{v, viewMat}, nil)
	return v, err
}

func (s *session) viewToWorld(v glprog.Value, isDir bool) (glprog.Value, error) {
	v = s.sc.Materialize(v, "dir")
	s.sc.Commentf("convert from view space to world space")
	name := "point_space_convert_view_to_world"
	if isDir {
		name = "dir_space_convert_view_to_world"
	}
	err := s.sc.CallFunction(shaderlib.Intrinsic(name),
		[]glprog.Value{v, s.sc.InvViewMat()}, nil)
	return v, err
}

func (s *session) viewToModel(v glprog.Value, isDir bool) (glprog.Value, error) {
	v = s.sc.Materialize(v, "dir")
	s.sc.Commentf("convert from view space to model space")
	name := "point_space_convert_view_to_model"
	if isDir {
		name = "dir_space_convert_view_to_model"
	}
	err := s.sc.CallFunction(shaderlib.Intrinsic(name),
		[]glprog.Value{v, s.sc.InvModelMat(), s.sc.InvViewMat()}, nil)
	return v, err
}

func (s *session) modelToView(v glprog.Value, isDir bool) (glprog.Value, error) {
	v = s.sc.Materialize(v, "dir")
	s.sc.Commentf("convert from model space to view space")
	name := "point_space_convert_model_to_view"
	if isDir {
		name = "dir_space_convert_model_to_view"
	}
	b := s.sc.Builtins()
	err := s.sc.CallFunction(shaderlib.Intrinsic(name),
		[]glprog.Value{v, glprog.Var(glprog.Mat4, b.ViewMat), glprog.Var(glprog.Mat4, b.ModelMat)}, nil)
	return v, err
}

// surfaceEpilogue binds the surface closure's channels to the fragment
// built-in outputs, then appends the anisotropy and screen-texture
// refraction blocks when their channels are present.
func (s *session) surfaceEpilogue(cv glprog.ClosureValue) error {
	sc := s.sc
	b := sc.Builtins()
	direct := []glprog.Channel{
		glprog.ChanAlbedo, glprog.ChanSSSStrength, glprog.ChanSpecular,
		glprog.ChanMetallic, glprog.ChanRoughness, glprog.ChanClearcoat,
		glprog.ChanClearcoatGloss, glprog.ChanEmission, glprog.ChanNormal,
	}
	for _, ch := range direct {
		if v, ok := cv.Get(ch); ok {
			sc.Linef("%s = %s", b.ChannelOut(ch), v)
		}
	}
	if v, ok := cv.Get(glprog.ChanTransmission); ok {
		sc.Linef("TRANSMISSION = vec3(1.0, 1.0, 1.0) * %s", v)
	}
	if v, ok := cv.Get(glprog.ChanOrenNayarRoughness); ok {
		sc.Commentf("uncomment it only when you set diffuse mode to oren nayar")
		sc.Commentf("ROUGHNESS = %s;", v)
	}

	tangent, hasTangent := cv.Get(glprog.ChanTangent)
	anisotropy, hasAniso := cv.Get(glprog.ChanAnisotropy)
	if hasTangent && hasAniso {
		sc.Linef("ANISOTROPY = %s", anisotropy)
		sc.Linef("TANGENT = normalize(cross(cross(%s, %s), %s))", tangent, b.Normal, b.Normal)
		sc.Linef("%s = cross(TANGENT, %s)", b.Binormal, b.Normal)
	}

	alpha, hasAlpha := cv.Get(glprog.ChanAlpha)
	if hasAlpha {
		offset := s.c.prog.Uniform(glprog.Float, "refraction_offset", "", "")
		if s.c.glassEffect {
			ior, ok := cv.Get(glprog.ChanIOR)
			if !ok {
				ior = glprog.FloatLit(1.45)
			}
			alpha = sc.Materialize(alpha, "alpha")
			err := sc.CallFunction(shaderlib.Intrinsic("refraction_fresnel"),
				[]glprog.Value{
					glprog.Var(glprog.Vec3, b.Vertex),
					glprog.Var(glprog.Vec3, b.Normal),
					ior,
				},
				[]glprog.Value{alpha})
			if err != nil {
				return err
			}
		}
		sc.Linef("%s += textureLod(%s, %s - %s.xy * %s, %s).rgb * (1.0 - %s)",
			b.Emission, b.ScreenTexture, b.ScreenUV, b.Normal, offset,
			b.Roughness, alpha)
		sc.Linef("%s *= %s", b.Albedo, alpha)
		sc.Linef("%s = 1.0", b.Alpha)
	}
	return nil
}

// displacementEpilogue perturbs the fragment normal with the compiled
// displacement height using the bump function with default strength.
func (s *session) displacementEpilogue(height glprog.Value) error {
	fn, ok := shaderlib.Lookup("node_bump")
	if !ok {
		return fmt.Errorf("displacement: bump function missing from catalog")
	}
	b := s.sc.Builtins()
	return s.sc.CallFunction(fn,
		[]glprog.Value{
			glprog.FloatLit(1),
			glprog.FloatLit(0.1),
			height,
			glprog.Var(glprog.Vec3, b.Normal),
			glprog.Var(glprog.Vec3, b.Vertex),
			glprog.FloatLit(0),
		},
		[]glprog.Value{glprog.Var(glprog.Vec3, b.Normal)})
}
