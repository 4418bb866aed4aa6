package gshade

import (
	"fmt"

	"github.com/gshade/gshade/glprog"
	"github.com/gshade/gshade/glprog/shaderlib"
)

// strategyFunc generates code for one node kind. Inputs are already
// compiled when it runs; it stores a result for every consumed output
// socket.
type strategyFunc func(*session, *Node) error

var strategies map[NodeKind]strategyFunc

func init() {
	strategies = map[NodeKind]strategyFunc{
		KindReroute:         compileReroute,
		KindRGB:             compileConstant,
		KindValue:           compileConstant,
		KindMath:            compileFuncCall,
		KindVectorMath:      compileFuncCall,
		KindRGBToBW:         compileFuncCall,
		KindGamma:           compileFuncCall,
		KindSeparateXYZ:     compileFuncCall,
		KindSeparateRGB:     compileFuncCall,
		KindCombineRGB:      compileFuncCall,
		KindMixRGB:          compileMixRGB,
		KindMapping:         compileMapping,
		KindImageTexture:    compileImageTexture,
		KindTexCoord:        compileTexCoord,
		KindUVMap:           compileUVMap,
		KindTangent:         compileTangent,
		KindNormalMap:       compileNormalMap,
		KindBump:            compileBump,
		KindBsdfPrincipled:  compileBsdf,
		KindBsdfDiffuse:     compileBsdf,
		KindBsdfGlossy:      compileBsdf,
		KindEmission:        compileBsdf,
		KindBsdfTransparent: compileBsdf,
		KindBsdfGlass:       compileBsdf,
		KindAddShader:       compileAddShader,
		KindMixShader:       compileMixShader,
	}
}

func compileReroute(s *session, n *Node) error {
	in := n.ins[0]
	var v glprog.Compiled
	if in.link != nil {
		var err error
		v, err = s.inputValue(in)
		if err != nil {
			return err
		}
	} else {
		s.warnf("reroute %q has no input", n.Name)
		if in.typ == glprog.Closure {
			v = glprog.DefaultClosure()
		} else {
			v = in.defaultValue()
		}
	}
	for _, out := range n.outs {
		s.vals[out] = v
	}
	return nil
}

func compileConstant(s *session, n *Node) error {
	out := n.Output()
	s.vals[out] = out.def
	return nil
}

// compileFuncCall is the generic strategy for nodes that translate to a
// single library call: inputs bind in socket order, each output gets a
// fresh variable.
func compileFuncCall(s *session, n *Node) error {
	fn, ok := shaderlib.Lookup(n.funcName())
	if !ok {
		s.unsupported(n, "no library function "+n.funcName())
		return nil
	}
	ins := make([]glprog.Value, 0, len(n.ins))
	for _, in := range n.ins {
		v, err := s.argValue(in)
		if err != nil {
			return err
		}
		ins = append(ins, v)
	}
	outs := make([]glprog.Value, 0, len(n.outs))
	for _, out := range n.outs {
		nv := s.sc.NewVar(out.typ, out.name)
		s.vals[out] = nv
		outs = append(outs, nv)
	}
	return s.sc.CallFunction(fn, ins, outs)
}

func compileMixRGB(s *session, n *Node) error {
	fac, err := s.argValue(n.In("Fac"))
	if err != nil {
		return err
	}
	fac = s.sc.Materialize(fac, "fac")
	s.sc.Linef("%s = clamp(%s, 0.0, 1.0)", fac, fac)

	fn, ok := shaderlib.Lookup(n.funcName())
	if !ok {
		s.warnf("blend type %s not supported at %q, fall back to blend type mix",
			n.blend, n.Name)
		s.sc.Commentf("blend type %s not supported, fall back to mix", n.blend)
		fn, _ = shaderlib.Lookup("node_mix_rgb_mix")
	}
	color1, err := s.argValue(n.In("Color1"))
	if err != nil {
		return err
	}
	color2, err := s.argValue(n.In("Color2"))
	if err != nil {
		return err
	}
	out := n.Output()
	nv := s.sc.NewVar(out.typ, out.name)
	if err := s.sc.CallFunction(fn, []glprog.Value{fac, color1, color2}, []glprog.Value{nv}); err != nil {
		return err
	}
	if n.useClamp {
		s.sc.Linef("%s = clamp(%s, vec4(0.0), vec4(1.0))", nv, nv)
	}
	s.vals[out] = nv
	return nil
}

func compileMapping(s *session, n *Node) error {
	fn, ok := shaderlib.Lookup("node_mapping")
	if !ok {
		s.unsupported(n, "no library function node_mapping")
		return nil
	}
	in, err := s.scalarInput(n.In("Vector"))
	if err != nil {
		return err
	}
	opts := n.mapping
	mat := mappingMatrix(opts)
	flag := func(b bool) glprog.Value {
		if b {
			return glprog.FloatLit(1)
		}
		return glprog.FloatLit(0)
	}
	out := n.Output()
	nv := s.sc.NewVar(out.typ, out.name)
	err = s.sc.CallFunction(fn,
		[]glprog.Value{
			in,
			glprog.Mat4Lit(mat),
			glprog.Vec3Lit(opts.Min),
			glprog.Vec3Lit(opts.Max),
			flag(opts.UseMin),
			flag(opts.UseMax),
		},
		[]glprog.Value{nv})
	if err != nil {
		return err
	}
	if opts.Type == MappingNormal {
		s.sc.Linef("%s = normalize(%s)", nv, nv)
	}
	s.vals[out] = nv
	return nil
}

func compileImageTexture(s *session, n *Node) error {
	fn, ok := shaderlib.Lookup("node_tex_image")
	if !ok {
		s.unsupported(n, "no library function node_tex_image")
		return nil
	}
	var co glprog.Value
	coSock := n.In("Vector")
	if coSock.link != nil {
		var err error
		co, err = s.scalarInput(coSock)
		if err != nil {
			return err
		}
	} else {
		co = glprog.Lit(glprog.Vec3, "vec3("+s.sc.Builtins().UV+", 0.0)")
	}
	if n.image == "" {
		s.warnf("image texture node %q has no image being set", n.Name)
	}
	sampler := s.c.prog.SamplerFor(n.image, feedsNormalMap(n))

	outs := make([]glprog.Value, 0, len(n.outs))
	for _, out := range n.outs {
		nv := s.sc.NewVar(out.typ, out.name)
		s.vals[out] = nv
		outs = append(outs, nv)
	}
	return s.sc.CallFunction(fn, []glprog.Value{co, sampler}, outs)
}

// feedsNormalMap reports whether the texture's color reaches the Color
// input of any downstream normal map node, in which case its sampler
// uniform carries the normal hint.
func feedsNormalMap(n *Node) bool {
	colorOut := n.Out("Color")
	if colorOut == nil {
		return false
	}
	type hop struct {
		node *Node
		to   *Socket
	}
	var queue []hop
	for _, l := range colorOut.outLinks {
		queue = append(queue, hop{l.To.node, l.To})
	}
	seen := make(map[*Node]bool)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h.node.Kind == KindNormalMap && h.to.name == "Color" {
			return true
		}
		if seen[h.node] {
			continue
		}
		seen[h.node] = true
		for _, out := range h.node.outs {
			for _, l := range out.outLinks {
				queue = append(queue, hop{l.To.node, l.To})
			}
		}
	}
	return false
}

func compileTexCoord(s *session, n *Node) error {
	sc := s.sc
	b := sc.Builtins()
	fragment := sc.Stage() == glprog.StageFragment

	for _, out := range n.outs {
		if len(out.outLinks) == 0 {
			continue
		}
		switch out.name {
		case "UV":
			s.vals[out] = glprog.Lit(glprog.Vec3, "vec3("+b.UV+", 0.0)")
		case "Window":
			if !fragment {
				s.warnf("texture coordinate Window not available in displacement at %q", n.Name)
				s.vals[out] = glprog.Lit(glprog.Vec3, "vec3(0.0, 0.0, 0.0)")
				continue
			}
			s.vals[out] = glprog.Lit(glprog.Vec3, "vec3("+b.ScreenUV+", 0.0)")
		case "Camera":
			s.vals[out] = glprog.Lit(glprog.Vec3,
				"vec3("+b.Vertex+".xy, -"+b.Vertex+".z)")
		case "Normal":
			nv := sc.NewVar(glprog.Vec3, out.name)
			sc.Assign(nv, glprog.Var(glprog.Vec3, b.Normal))
			if fragment {
				if _, err := s.viewToModel(nv, true); err != nil {
					return err
				}
			}
			if _, err := s.yupToZup(nv); err != nil {
				return err
			}
			s.vals[out] = nv
		case "Object":
			nv := sc.NewVar(glprog.Vec3, out.name)
			sc.Assign(nv, glprog.Var(glprog.Vec3, b.Vertex))
			if fragment {
				if _, err := s.viewToModel(nv, false); err != nil {
					return err
				}
			}
			if _, err := s.yupToZup(nv); err != nil {
				return err
			}
			s.vals[out] = nv
		case "Reflection":
			nv := sc.NewVar(glprog.Vec3, out.name)
			if fragment {
				sc.Linef("%s = (inverse(%s) * vec4(reflect(normalize(%s), %s), 0.0)).xyz",
					nv, b.ViewMat, b.Vertex, b.Normal)
			} else {
				sc.Linef("%s = reflect(normalize(%s), %s)", nv, b.Vertex, b.Normal)
			}
			if _, err := s.yupToZup(nv); err != nil {
				return err
			}
			s.vals[out] = nv
		case "Generated":
			s.warnf("texture coordinate Generated not supported at %q", n.Name)
			sc.Commentf("texture coordinate Generated is not supported")
			s.vals[out] = glprog.Lit(glprog.Vec3, "vec3(1.0, 1.0, 1.0)")
		}
	}
	return nil
}

func compileUVMap(s *session, n *Node) error {
	s.vals[n.Output()] = glprog.Lit(glprog.Vec3,
		"vec3("+s.sc.Builtins().UV+", 0.0)")
	return nil
}

func compileTangent(s *session, n *Node) error {
	s.vals[n.Output()] = glprog.Var(glprog.Vec3, s.sc.Builtins().Tangent)
	return nil
}

func compileNormalMap(s *session, n *Node) error {
	if s.sc.Stage() == glprog.StageVertex {
		return fmt.Errorf("normal map node %q not supported in true displacement", n.Name)
	}
	fn, ok := shaderlib.Lookup(n.funcName())
	if !ok {
		s.unsupported(n, "no library function "+n.funcName())
		return nil
	}
	strength, err := s.scalarInput(n.In("Strength"))
	if err != nil {
		return err
	}
	color, err := s.scalarInput(n.In("Color"))
	if err != nil {
		return err
	}
	b := s.sc.Builtins()
	normal := glprog.Var(glprog.Vec3, b.Normal)
	out := n.Output()
	nv := s.sc.NewVar(glprog.Vec3, n.Name+"_out_normal")

	switch n.space {
	case NormalMapTangent:
		err = s.sc.CallFunction(fn,
			[]glprog.Value{
				strength, color, normal,
				glprog.Var(glprog.Vec3, b.Tangent),
				glprog.Var(glprog.Vec3, b.Binormal),
			},
			[]glprog.Value{nv})
		if err != nil {
			return err
		}
		if _, err = s.viewToWorld(nv, true); err != nil {
			return err
		}
	case NormalMapWorld:
		err = s.sc.CallFunction(fn,
			[]glprog.Value{strength, color, normal, s.sc.InvViewMat()},
			[]glprog.Value{nv})
		if err != nil {
			return err
		}
	case NormalMapObject:
		err = s.sc.CallFunction(fn,
			[]glprog.Value{
				strength, color, normal, s.sc.InvViewMat(),
				glprog.Var(glprog.Mat4, b.ModelMat),
			},
			[]glprog.Value{nv})
		if err != nil {
			return err
		}
	}
	if _, err = s.yupToZup(nv); err != nil {
		return err
	}
	s.vals[out] = nv
	return nil
}

func compileBump(s *session, n *Node) error {
	fn, ok := shaderlib.Lookup("node_bump")
	if !ok {
		s.unsupported(n, "no library function node_bump")
		return nil
	}
	strength, err := s.scalarInput(n.In("Strength"))
	if err != nil {
		return err
	}
	dist, err := s.scalarInput(n.In("Distance"))
	if err != nil {
		return err
	}
	height, err := s.scalarInput(n.In("Height"))
	if err != nil {
		return err
	}
	b := s.sc.Builtins()
	var normal glprog.Value
	if normalSock := n.In("Normal"); normalSock.link != nil {
		normal, err = s.scalarInput(normalSock)
		if err != nil {
			return err
		}
		// bump math runs in view space, y-up
		if normal, err = s.zupToYup(normal); err != nil {
			return err
		}
		if normal, err = s.worldToView(normal, true); err != nil {
			return err
		}
	} else {
		normal = glprog.Var(glprog.Vec3, b.Normal)
	}
	invert := glprog.FloatLit(0)
	if n.invert {
		invert = glprog.FloatLit(1)
	}
	out := n.Output()
	nv := s.sc.NewVar(glprog.Vec3, n.Name+"_out_normal")
	err = s.sc.CallFunction(fn,
		[]glprog.Value{
			strength, dist, height, normal,
			glprog.Var(glprog.Vec3, b.Vertex), invert,
		},
		[]glprog.Value{nv})
	if err != nil {
		return err
	}
	if s.sc.Stage() == glprog.StageFragment {
		if _, err = s.viewToWorld(nv, true); err != nil {
			return err
		}
	}
	if _, err = s.yupToZup(nv); err != nil {
		return err
	}
	s.vals[out] = nv
	return nil
}

// compileBsdf is shared by the shading-node family: the library call
// fills closure channels from its out parameters; linked Normal and
// Tangent inputs bypass the call and convert into view space.
func compileBsdf(s *session, n *Node) error {
	meta, ok := shaderlib.BSDFByFunc(n.funcName())
	if !ok {
		s.unsupported(n, "no shading function "+n.funcName())
		return nil
	}
	var cv glprog.ClosureValue
	ins := make([]glprog.Value, 0, len(meta.Sockets))
	for _, name := range meta.Sockets {
		sock := n.In(name)
		if sock == nil {
			return fmt.Errorf("node %q misses input socket %q", n.Name, name)
		}
		v, err := s.argValue(sock)
		if err != nil {
			return err
		}
		ins = append(ins, v)
	}
	outs := make([]glprog.Value, 0, len(meta.Channels))
	for _, ch := range meta.Channels {
		nv := s.sc.NewVar(ch.Type(), n.Name+"_output_"+ch.String())
		cv.Set(ch, nv)
		outs = append(outs, nv)
	}
	if err := s.sc.CallFunction(meta.Func, ins, outs); err != nil {
		return err
	}

	for _, bind := range []struct {
		socket  string
		channel glprog.Channel
	}{
		{"Normal", glprog.ChanNormal},
		{"Tangent", glprog.ChanTangent},
	} {
		sock := n.In(bind.socket)
		if sock == nil || sock.link == nil {
			continue
		}
		v, err := s.scalarInput(sock)
		if err != nil {
			return err
		}
		if v, err = s.zupToYup(v); err != nil {
			return err
		}
		if v, err = s.worldToView(v, true); err != nil {
			return err
		}
		cv.Set(bind.channel, v)
	}

	if n.Kind == KindBsdfGlass || n.Kind == KindBsdfPrincipled {
		s.c.glassEffect = true
	}
	s.vals[n.Output()] = cv
	return nil
}

func (s *session) closureInput(in *Socket) (glprog.ClosureValue, error) {
	v, err := s.inputValue(in)
	if err != nil {
		return glprog.ClosureValue{}, err
	}
	cv, ok := v.(glprog.ClosureValue)
	if !ok {
		return glprog.ClosureValue{}, fmt.Errorf("socket %s.%s carries no closure", in.node.Name, in.name)
	}
	return cv, nil
}

// compileAddShader combines two closures channel by channel: albedo adds
// unclamped so emitters keep their range, alpha combines through its
// complement, everything else shared averages. Normals never combine.
func compileAddShader(s *session, n *Node) error {
	a, err := s.closureInput(n.ins[0])
	if err != nil {
		return err
	}
	b, err := s.closureInput(n.ins[1])
	if err != nil {
		return err
	}
	var out glprog.ClosureValue
	for ch := glprog.Channel(0); ch < glprog.NumChannels; ch++ {
		va, oka := a.Get(ch)
		vb, okb := b.Get(ch)
		if ch == glprog.ChanAlpha && oka != okb {
			// the side with no alpha is opaque
			if !oka {
				va = glprog.FloatLit(1)
			} else {
				vb = glprog.FloatLit(1)
			}
			oka, okb = true, true
		}
		switch {
		case oka && okb:
			if ch == glprog.ChanNormal || ch == glprog.ChanTangent {
				continue
			}
			nv := s.sc.NewVar(ch.Type(), n.Name+"_"+ch.String())
			switch ch {
			case glprog.ChanAlpha:
				s.sc.Linef("%s = 1.0 - clamp(2.0 - %s - %s, 0.0, 1.0)", nv, va, vb)
			case glprog.ChanAlbedo:
				s.sc.Linef("%s = %s + %s", nv, va, vb)
			default:
				s.sc.Linef("%s = mix(%s, %s, 0.5)", nv, va, vb)
			}
			out.Set(ch, nv)
		case oka:
			out.Set(ch, va)
		case okb:
			out.Set(ch, vb)
		}
	}
	s.vals[n.Output()] = out
	return nil
}

// compileMixShader interpolates two closures by the factor. A constant
// factor at either boundary folds the mix away entirely.
func compileMixShader(s *session, n *Node) error {
	a, err := s.closureInput(n.ins[1])
	if err != nil {
		return err
	}
	b, err := s.closureInput(n.ins[2])
	if err != nil {
		return err
	}
	const (
		foldNone = iota
		foldA
		foldB
	)
	fold := foldNone
	var fac glprog.Value
	facSock := n.In("Fac")
	if facSock.link == nil {
		f, num := facSock.def.Float()
		switch {
		case num && f <= 0:
			fold = foldA
		case num && f >= 1:
			fold = foldB
		default:
			fac = facSock.def
		}
	} else {
		fac, err = s.scalarInput(facSock)
		if err != nil {
			return err
		}
	}

	var out glprog.ClosureValue
	for ch := glprog.Channel(0); ch < glprog.NumChannels; ch++ {
		va, oka := a.Get(ch)
		vb, okb := b.Get(ch)
		if ch == glprog.ChanAlpha && oka != okb {
			if !oka {
				va = glprog.FloatLit(1)
			} else {
				vb = glprog.FloatLit(1)
			}
			oka, okb = true, true
		}
		switch {
		case oka && okb:
			if ch == glprog.ChanNormal || ch == glprog.ChanTangent {
				continue
			}
			switch fold {
			case foldA:
				out.Set(ch, va)
			case foldB:
				out.Set(ch, vb)
			default:
				nv := s.sc.NewVar(ch.Type(), n.Name+"_"+ch.String())
				s.sc.Linef("%s = mix(%s, %s, %s)", nv, va, vb, fac)
				out.Set(ch, nv)
			}
		case oka:
			out.Set(ch, va)
		case okb:
			out.Set(ch, vb)
		}
	}
	s.vals[n.Output()] = out
	return nil
}
